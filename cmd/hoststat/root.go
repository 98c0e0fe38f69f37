package main

import (
	"fmt"
	"io"
	"time"

	"github.com/danpilch/hoststat/pkg/config"
	"github.com/danpilch/hoststat/pkg/debug"
	"github.com/danpilch/hoststat/pkg/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is the state every subcommand shares once the root command has
// resolved the configuration.
type app struct {
	cfg    config.Config
	format output.Format
	logger *logrus.Logger

	envFile  string
	procRoot string
	interval time.Duration
	logLevel string
	logJSON  bool
	trace    bool
	fmtName  string
	pprof    string

	stopPprof func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "hoststat",
		Short: "Bounded-buffer host resource sampler",
		Long: "hoststat reads per-core CPU jiffies, memory and swap usage, physical\n" +
			"filesystem capacity and I/O, and network interface counters from the\n" +
			"kernel into fixed-capacity buffers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.stopPprof != nil {
				a.stopPprof()
			}
		},
	}

	defaults := config.Default()
	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "env file to read settings from")
	flags.StringVar(&a.procRoot, "proc-root", defaults.ProcRoot, "directory holding the kernel tables")
	flags.DurationVar(&a.interval, "interval", defaults.Interval, "time between the two samples of a delta")
	flags.StringVar(&a.logLevel, "log-level", defaults.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	flags.BoolVar(&a.trace, "trace", false, "write every log entry as a trace line")
	flags.StringVarP(&a.fmtName, "format", "o", defaults.Format, "output format (table, json, tsv, markdown)")
	flags.StringVar(&a.pprof, "pprof", "", "serve pprof on this address")

	root.AddCommand(
		newSnapshotCmd(a),
		newWatchCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
		newCrosscheckCmd(a),
		newBenchCmd(a),
	)
	return root
}

// setup loads the configuration, lets explicitly set flags override it and
// builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("proc-root") {
		cfg.ProcRoot = a.procRoot
	}
	if flags.Changed("interval") {
		cfg.Interval = a.interval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("format") {
		cfg.Format = a.fmtName
	}
	if flags.Changed("pprof") {
		cfg.Pprof = a.pprof
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.format, err = output.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	a.logger, err = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, a.logJSON, a.trace)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger.WithFields(logrus.Fields{
		"proc_root": cfg.ProcRoot,
		"interval":  cfg.Interval,
		"env_file":  cfg.EnvFile,
	}).Debug("Configuration loaded")

	if cfg.Pprof != "" {
		_, stop, err := debug.StartPprofServer(cfg.Pprof, a.logger)
		if err != nil {
			return err
		}
		a.stopPprof = stop
	}
	return nil
}

func newLogger(w io.Writer, level string, jsonOut, trace bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(lvl)

	if jsonOut {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if trace {
		logger.SetLevel(logrus.TraceLevel)
		logger.SetOutput(io.Discard)
		logger.AddHook(debug.NewTraceHook(w))
	}
	return logger, nil
}
