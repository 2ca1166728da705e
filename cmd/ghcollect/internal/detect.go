package internal

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dangazineu/ghcollect/internal/errors"
	"github.com/dangazineu/ghcollect/internal/workflow"
)

func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect workflow.yml...",
		Short: "Report whether workflow files run tests",
		Long: `Detect prints found, not-found or unknown for every workflow file. With --rewrite the
unsupported runner targets are replaced and the result is written next to the source, with
the suffix added before the extension.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rewrite, _ := cmd.Flags().GetBool("rewrite")
			suffix, _ := cmd.Flags().GetString("suffix")
			logger := zerolog.Ctx(cmd.Context())

			for _, path := range args {
				doc, err := workflow.Load(path)
				if err != nil {
					if rewrite || errors.IsIO(err) {
						return err
					}
					// unparsable workflows never count as test workflows
					logger.Warn().Err(err).Str("workflow", path).Msg("could not parse workflow")
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, workflow.DetectionNotFound)
					continue
				}
				detection, err := doc.Detect()
				if err != nil {
					logger.Debug().Err(err).Str("workflow", path).Msg("workflow shape not recognized")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, detection)

				if !rewrite {
					continue
				}
				if err := doc.RemoveUnsupportedOS(); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				target := rewrittenPath(path, suffix)
				if err := doc.Save(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  rewritten to %s\n", target)
			}
			return nil
		},
	}
	cmd.Flags().Bool("rewrite", false, "Write a copy without unsupported runner targets")
	cmd.Flags().String("suffix", "-crawler", "Suffix of the rewritten copy")
	return cmd
}

// rewrittenPath turns tests.yml into tests<suffix>.yml.
func rewrittenPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
