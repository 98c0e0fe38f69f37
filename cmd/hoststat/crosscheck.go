package main

import (
	"github.com/danpilch/hoststat/pkg/crosscheck"
	"github.com/danpilch/hoststat/pkg/output"
	"github.com/danpilch/hoststat/pkg/use"
	"github.com/spf13/cobra"
)

func newCrosscheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crosscheck",
		Short: "Compare samples against gopsutil and procfs and run sanity checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prev, curr, err := samplePair(cmd.Context(), a)
			if err != nil {
				return err
			}
			checks := use.NewChecker(use.DefaultThresholds(), a.logger).Run(prev, curr)

			g := crosscheck.NewGatherer(a.cfg.ProcRoot, a.logger)
			validations, sanity := crosscheck.Run(g, curr, checks)

			out := cmd.OutOrStdout()
			if a.format == output.FormatJSON {
				if err := crosscheck.ReportJSON(out, validations, sanity); err != nil {
					return err
				}
			} else {
				crosscheck.Report(out, validations, sanity)
			}

			if crosscheck.Failed(validations, sanity) {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}
