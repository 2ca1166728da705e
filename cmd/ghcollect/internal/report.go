package internal

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dangazineu/ghcollect/internal/junit"
)

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report results-dir",
		Short: "List the failed tests of the JUnit reports under a directory",
		Long: `Report walks a directory for JUnit XML reports and prints one line per failed test.
Unreadable reports are skipped with a warning unless --strict is set. --filter takes a CEL
expression over classname, failure_type and message, for example:

  ghcollect report target/surefire-reports --filter 'failure_type.startsWith("java.lang")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, _ := cmd.Flags().GetString("filter")
			strict, _ := cmd.Flags().GetBool("strict")
			asJSON, _ := cmd.Flags().GetBool("json")
			logger := zerolog.Ctx(cmd.Context())

			filter, err := junit.NewFilter()
			if err != nil {
				return err
			}
			if expr != "" {
				if err := filter.Compile(expr); err != nil {
					return err
				}
			}

			var failures []junit.TestOutcome
			if strict {
				failures, err = junit.Collect(args[0])
				if err != nil {
					return err
				}
			} else {
				var skipped []error
				failures, skipped = junit.CollectTolerant(args[0])
				for _, e := range skipped {
					logger.Warn().Err(e).Msg("skipping unreadable test report")
				}
			}

			failures, err = filter.Apply(expr, failures)
			if err != nil {
				return err
			}

			if asJSON {
				if failures == nil {
					failures = []junit.TestOutcome{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "    ")
				return enc.Encode(failures)
			}
			for _, f := range failures {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.ClassName, f.Type, f.Message)
			}
			return nil
		},
	}
	cmd.Flags().String("filter", "", "CEL expression selecting failures")
	cmd.Flags().Bool("strict", false, "Fail on the first unreadable report")
	cmd.Flags().Bool("json", false, "Print the failures as JSON")
	return cmd
}
