package internal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dangazineu/ghcollect/internal/sandbox"
)

func NewRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run repo-path workflow...",
		Short: "Run workflows of a local checkout with act",
		Long: `Run executes each workflow, given relative to the checkout, with act one after another and
prints the exit code and failed tests of every run. A failing workflow is not a command error.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			logger := zerolog.Ctx(cmd.Context())

			runner := a.newRunner(*logger)
			outcomes, err := runner.RunWorkflows(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}

			if asJSON {
				records := make([]map[string]any, 0, len(outcomes))
				for _, o := range outcomes {
					records = append(records, o.AsMap())
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "    ")
				return enc.Encode(records)
			}
			for _, o := range outcomes {
				printOutcome(cmd, o)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the outcomes as JSON")
	return cmd
}

func printOutcome(cmd *cobra.Command, o *sandbox.RunOutcome) {
	status := "passed"
	if o.Failed {
		status = "failed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (exit code %d, %d failed tests, %s)\n",
		o.Workflow, status, o.ExitCode, len(o.FailedTests), o.Duration().Round(time.Millisecond))
	for _, t := range o.FailedTests {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s: %s\n", t.ClassName, t.Type, t.Message)
	}
}
