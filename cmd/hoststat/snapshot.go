package main

import (
	"github.com/danpilch/hoststat/pkg/debug"
	"github.com/danpilch/hoststat/pkg/output"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var timing bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take one sample and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var timer debug.Timer
			var opts []sampler.Option
			if timing {
				opts = append(opts, sampler.WithWrap(timer.Wrap))
			}

			s := sampler.New(a.cfg, a.logger, opts...)
			snap, err := s.Sample(cmd.Context())
			if snap == nil {
				return err
			}
			// Failed collectors are listed in the rendered snapshot.
			if err != nil {
				a.logger.WithError(err).Debug("Snapshot incomplete")
			}

			if err := output.NewFormatter(a.format, cmd.OutOrStdout()).RenderSnapshot(snap); err != nil {
				return err
			}
			if timing {
				debug.TimingReport(cmd.ErrOrStderr(), timer.Timings())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&timing, "timing", false, "report how long each collector took")
	return cmd
}
