package internal

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dangazineu/ghcollect/internal/config"
	"github.com/dangazineu/ghcollect/internal/logging"
	"github.com/dangazineu/ghcollect/internal/sandbox"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *logging.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	var configFile string

	cmd := &cobra.Command{
		Use:   "ghcollect",
		Short: "ghcollect runs the test workflows of GitHub repositories locally.",
		Long: `ghcollect clones GitHub repositories, finds the GitHub Actions workflows that run tests,
rewrites them for a Linux-only sandbox and runs them with act, recording which tests failed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ./"+config.DefaultFileName+" when present)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.BoolP("quiet", "q", false, "Only log warnings and errors")
	flags.String("log-file", "", "Also write JSON logs to this file, with rotation")
	_ = a.v.BindPFlag("log::verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log::quiet", flags.Lookup("quiet"))
	_ = a.v.BindPFlag("log::file", flags.Lookup("log-file"))

	cmd.AddCommand(NewCollectCmd(a))
	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewRunCmd(a))
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func (a *app) setup(cmd *cobra.Command, configFile string) error {
	cfg, err := config.Load(a.v, configFile)
	if err != nil {
		return err
	}

	var console io.Writer
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		console = w
	}
	logger, err := logging.New(logging.Options{
		Verbose: cfg.Log.Verbose,
		Quiet:   cfg.Log.Quiet,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}

func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

func (a *app) newRunner(logger zerolog.Logger) *sandbox.Runner {
	return sandbox.NewRunner(
		sandbox.WithBinary(a.cfg.Act.Path),
		sandbox.WithPlatforms(a.cfg.Act.Platforms),
		sandbox.WithResultsDirs(a.cfg.Results.Dirs...),
		sandbox.WithCacheDir(a.cfg.Act.CacheDir),
		sandbox.WithEnv(a.cfg.Act.Env...),
		sandbox.WithLogger(logger),
	)
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
