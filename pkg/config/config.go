// Package config loads hoststat settings from an optional env file and
// HOSTSTAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "HOSTSTAT_"

// DefaultEnvFiles are tried in order when no env file is named.
var DefaultEnvFiles = []string{
	"/etc/hoststat/hoststat.env",
	"hoststat.env",
}

// Config holds the settings shared by every hoststat command.
type Config struct {
	// ProcRoot is where the kernel tables are read from.
	ProcRoot string
	// Interval separates the two samples of a delta.
	Interval time.Duration

	// Buffer capacities.
	MaxCores       int
	MaxFilesystems int
	MaxInterfaces  int
	ScratchSize    int

	Listen   string
	LogLevel string
	Format   string
	// Pprof is the profiling listen address; empty disables it.
	Pprof string

	// EnvFile is the env file the settings were read from, if any.
	EnvFile string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ProcRoot:       "/proc",
		Interval:       time.Second,
		MaxCores:       256,
		MaxFilesystems: 64,
		MaxInterfaces:  64,
		ScratchSize:    64 * 1024,
		Listen:         ":9740",
		LogLevel:       "warn",
		Format:         "table",
	}
}

// Load starts from Default, applies the env file and then the process
// environment, which wins over the file. An explicitly named env file must
// exist; otherwise the first of DefaultEnvFiles that exists is used, and
// having none is fine.
func Load(envFile string) (Config, error) {
	cfg := Default()

	values, path, err := readEnvFile(envFile)
	if err != nil {
		return cfg, err
	}
	cfg.EnvFile = path

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			return v, true
		}
		v, ok := values[envPrefix+key]
		return v, ok
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			return
		}
		*dst = d
	}

	str("PROC_ROOT", &cfg.ProcRoot)
	dur("INTERVAL", &cfg.Interval)
	num("MAX_CORES", &cfg.MaxCores)
	num("MAX_FILESYSTEMS", &cfg.MaxFilesystems)
	num("MAX_INTERFACES", &cfg.MaxInterfaces)
	num("SCRATCH_SIZE", &cfg.ScratchSize)
	str("LISTEN", &cfg.Listen)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("FORMAT", &cfg.Format)
	str("PPROF", &cfg.Pprof)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func readEnvFile(envFile string) (map[string]string, string, error) {
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil {
			return nil, "", fmt.Errorf("reading env file %s: %w", envFile, err)
		}
		return values, envFile, nil
	}

	for _, path := range DefaultEnvFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading env file %s: %w", path, err)
		}
		return values, path, nil
	}
	return nil, "", nil
}

// Validate reports every setting that cannot drive a collection pass.
func (c Config) Validate() error {
	var problems []string

	if c.ProcRoot == "" {
		problems = append(problems, "proc root is empty")
	}
	if c.Interval <= 0 {
		problems = append(problems, fmt.Sprintf("interval must be positive, got %s", c.Interval))
	}
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"max cores", c.MaxCores},
		{"max filesystems", c.MaxFilesystems},
		{"max interfaces", c.MaxInterfaces},
		{"scratch size", c.ScratchSize},
	} {
		if limit.value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", limit.name, limit.value))
		}
	}
	switch c.Format {
	case "table", "json", "tsv", "markdown":
	default:
		problems = append(problems, fmt.Sprintf("unknown format %q", c.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}
