// Package sampler owns the buffers the collectors fill and runs them
// together to take a snapshot of the host.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danpilch/hoststat/pkg/bounded"
	"github.com/danpilch/hoststat/pkg/collectors"
	"github.com/danpilch/hoststat/pkg/collectors/cpu"
	"github.com/danpilch/hoststat/pkg/collectors/filesystem"
	"github.com/danpilch/hoststat/pkg/collectors/memory"
	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/config"
	"github.com/sirupsen/logrus"
)

// Snapshot is the result of one sampling pass. Its lists and the views
// inside filesystem samples belong to the Sampler that produced it and
// are overwritten by the next pass.
type Snapshot struct {
	Taken       time.Time
	Cores       *bounded.List[cpu.CoreSample]
	Memory      memory.MemorySample
	Filesystems *bounded.List[filesystem.FilesystemSample]
	Interfaces  *bounded.List[network.NetworkInterfaceSample]

	// Errors maps a collector name to the error of its last pass. Lists
	// of collectors that overflowed still hold the entries that fit.
	Errors map[string]error
}

// Err returns the error recorded for the named collector.
func (s *Snapshot) Err(name string) error {
	return s.Errors[name]
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMemoryQuery replaces the sysinfo(2) query of the memory collector.
func WithMemoryQuery(query memory.QueryFunc) Option {
	return func(s *Sampler) {
		s.memory = memory.NewWithQuery(query)
	}
}

// WithWrap decorates every collector before it is registered.
func WithWrap(wrap func(collectors.Collector) collectors.Collector) Option {
	return func(s *Sampler) {
		s.wrap = wrap
	}
}

// Sampler runs every collector into buffers sized from a Config.
type Sampler struct {
	logger   *logrus.Logger
	registry *collectors.Registry
	memory   *memory.Collector
	wrap     func(collectors.Collector) collectors.Collector

	snapshot    Snapshot
	coreScratch []byte
	fsScratch   []byte
	netScratch  []byte
}

// New allocates the sampler's buffers and registers its collectors.
func New(cfg config.Config, logger *logrus.Logger, opts ...Option) *Sampler {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	s := &Sampler{
		logger: logger,
		memory: memory.New(),
		snapshot: Snapshot{
			Cores:       bounded.NewList(make([]cpu.CoreSample, cfg.MaxCores)),
			Filesystems: bounded.NewList(make([]filesystem.FilesystemSample, cfg.MaxFilesystems)),
			Interfaces:  bounded.NewList(make([]network.NetworkInterfaceSample, cfg.MaxInterfaces)),
			Errors:      make(map[string]error),
		},
		coreScratch: make([]byte, cfg.ScratchSize),
		fsScratch:   make([]byte, cfg.ScratchSize),
		netScratch:  make([]byte, cfg.ScratchSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	cores := cpu.New(cfg.ProcRoot)
	filesystems := filesystem.New(cfg.ProcRoot)
	netifs := network.New(cfg.ProcRoot)

	s.registry = collectors.NewRegistry()
	for _, c := range []collectors.Collector{
		collectors.Bind(cores.Name(), func() error {
			return cores.ReadCores(s.snapshot.Cores, s.coreScratch)
		}),
		collectors.Bind(s.memory.Name(), func() error {
			return s.memory.ReadMemory(&s.snapshot.Memory)
		}),
		collectors.Bind(filesystems.Name(), func() error {
			return filesystems.ReadFilesystems(s.snapshot.Filesystems, s.fsScratch)
		}),
		collectors.Bind(netifs.Name(), func() error {
			return netifs.ReadNetifs(s.snapshot.Interfaces, s.netScratch)
		}),
	} {
		if s.wrap != nil {
			c = s.wrap(c)
		}
		if err := s.registry.Register(c); err != nil {
			s.logger.WithError(err).WithField("collector", c.Name()).Warn("Collector not registered")
		}
	}
	return s
}

// Registry returns the sampler's collectors, each bound to its buffers.
func (s *Sampler) Registry() *collectors.Registry {
	return s.registry
}

// Sample runs every collector concurrently and returns the snapshot. The
// returned error joins the failures of individual collectors; the snapshot
// is returned even then.
//
// The collectors themselves cannot be interrupted: ctx is checked once
// before the pass starts.
func (s *Sampler) Sample(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := s.registry.Collectors()
	results := make([]error, len(all))

	var wg sync.WaitGroup
	for i, c := range all {
		wg.Add(1)
		go func(i int, c collectors.Collector) {
			defer wg.Done()

			start := time.Now()
			err := c.Collect()
			results[i] = err

			entry := s.logger.WithFields(logrus.Fields{
				"collector": c.Name(),
				"duration":  time.Since(start),
			})
			if err != nil {
				entry.WithField("error", err).Warn("Collector failed")
				return
			}
			entry.Debug("Collector finished")
		}(i, c)
	}
	wg.Wait()

	s.snapshot.Taken = time.Now()
	clear(s.snapshot.Errors)

	var errs []error
	for i, err := range results {
		if err == nil {
			continue
		}
		name := all[i].Name()
		s.snapshot.Errors[name] = err
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	s.logger.WithFields(logrus.Fields{
		"cores":       s.snapshot.Cores.Len(),
		"filesystems": s.snapshot.Filesystems.Len(),
		"interfaces":  s.snapshot.Interfaces.Len(),
		"errors":      len(errs),
	}).Debug("Sample taken")

	return &s.snapshot, errors.Join(errs...)
}

// Pair alternates two samplers so the previous snapshot stays intact while
// the next one is taken.
type Pair struct {
	samplers [2]*Sampler
	turn     int
	prev     *Snapshot
}

// NewPair creates two samplers with the same configuration.
func NewPair(cfg config.Config, logger *logrus.Logger, opts ...Option) *Pair {
	return &Pair{
		samplers: [2]*Sampler{
			New(cfg, logger, opts...),
			New(cfg, logger, opts...),
		},
	}
}

// Next takes a snapshot with the sampler whose turn it is and returns it
// with the snapshot before it. prev is nil on the first call.
func (p *Pair) Next(ctx context.Context) (prev, curr *Snapshot, err error) {
	curr, err = p.samplers[p.turn].Sample(ctx)
	if curr == nil {
		return p.prev, nil, err
	}
	prev = p.prev
	p.prev = curr
	p.turn ^= 1
	return prev, curr, err
}

// Current returns the sampler that the next call to Next will use.
func (p *Pair) Current() *Sampler {
	return p.samplers[p.turn]
}

// CoreBusyPercent returns the share of the interval between two samples
// of one core that was not idle. It reports false when no jiffies elapsed.
func CoreBusyPercent(prev, curr cpu.CoreSample) (float64, bool) {
	if curr.Total <= prev.Total {
		return 0, false
	}
	total := curr.Total - prev.Total

	var idle uint64
	if curr.Idle > prev.Idle {
		idle = curr.Idle - prev.Idle
	}
	if idle > total {
		idle = total
	}
	return float64(total-idle) * 100 / float64(total), true
}
