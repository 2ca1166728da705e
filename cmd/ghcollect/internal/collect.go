package internal

import (
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dangazineu/ghcollect/internal/collect"
	"github.com/dangazineu/ghcollect/internal/forge"
)

func NewCollectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect owner/repo...",
		Short: "Collect workflow and test data for GitHub repositories",
		Long: `Collect looks up each repository on GitHub, clones it, counts its workflows and test workflows,
and when exactly one test workflow exists runs it with act. One JSON record per repository is written
to the output folder, also when processing fails. Repositories are processed one after another.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if _, _, err := forge.ParseFullName(name); err != nil {
					return err
				}
			}
			skipRun, _ := cmd.Flags().GetBool("skip-run")
			cleanupAge, _ := cmd.Flags().GetDuration("cleanup-age")
			runID, _ := cmd.Flags().GetString("run-id")
			logger := zerolog.Ctx(cmd.Context())

			client, err := forge.NewClient(a.cfg.GitHub.Token, a.cfg.GitHub.BaseURL)
			if err != nil {
				return err
			}
			collector, err := collect.New(collect.Options{
				Metadata: client.WithLogger(*logger),
				Runner:   a.newRunner(*logger),
				OutDir:   a.cfg.Out,
				WorkDir:  a.cfg.WorkDir,
				RunID:    runID,
				SkipRun:  skipRun,
				Logger:   *logger,
			})
			if err != nil {
				return err
			}

			if cleanupAge > 0 {
				cm := collect.NewCleanupManager(collector.WorkDir(), cleanupAge, *logger)
				if _, err := cm.CleanupOrphanedRuns(collector.RunID()); err != nil {
					logger.Warn().Err(err).Msg("could not clean up orphaned runs")
				}
			}

			var errs []error
			for _, name := range args {
				logger.Info().Str("repo", name).Str("run_id", collector.RunID()).Msg("collecting repository")
				record, err := collector.HandleRepo(cmd.Context(), name)
				if record != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, collector.RecordPath(record.Repository))
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
				}
			}
			return stderrors.Join(errs...)
		},
	}
	cmd.Flags().String("out", "./out/", "Folder where the records are saved")
	cmd.Flags().String("work-dir", "", "Folder for temporary clones (default the system temp dir)")
	cmd.Flags().String("run-id", "", "Group clones under this run ID instead of a generated one")
	cmd.Flags().Bool("skip-run", false, "Prepare the test workflow but do not run it")
	cmd.Flags().Duration("cleanup-age", collect.DefaultCleanupAge, "Remove clones of earlier runs older than this (0 disables)")
	_ = a.v.BindPFlag("out", cmd.Flags().Lookup("out"))
	_ = a.v.BindPFlag("work_dir", cmd.Flags().Lookup("work-dir"))
	return cmd
}
