// Package baseline stores USE check results under a name and compares
// later runs against them to spot drift.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/danpilch/hoststat/pkg/use"
)

// Baseline is a named set of check results from one host.
type Baseline struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Hostname  string            `json:"hostname"`
	Checks    []use.Check       `json:"checks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DefaultDir returns the default baseline storage directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hoststat", "baselines")
	}
	return filepath.Join(home, ".hoststat", "baselines")
}

// New creates a baseline from checks. Unknown checks carry no value and
// are left out.
func New(name string, checks []use.Check) *Baseline {
	hostname, _ := os.Hostname()
	kept := make([]use.Check, 0, len(checks))
	for _, c := range checks {
		if c.Status != use.StatusUnknown {
			kept = append(kept, c)
		}
	}
	return &Baseline{
		Name:      name,
		Timestamp: time.Now(),
		Hostname:  hostname,
		Checks:    kept,
	}
}

func path(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid baseline name %q", name)
	}
	if dir == "" {
		dir = DefaultDir()
	}
	return filepath.Join(dir, name+".json"), nil
}

// Save writes b to dir as <name>.json.
func (b *Baseline) Save(dir string) error {
	p, err := path(dir, b.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	return nil
}

// Load reads the baseline called name from dir.
func Load(name, dir string) (*Baseline, error) {
	p, err := path(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading baseline %q: %w", name, err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing baseline %q: %w", name, err)
	}
	return &b, nil
}

// List returns the names of the baselines saved in dir, sorted. A missing
// directory holds none.
func List(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
