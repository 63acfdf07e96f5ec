// Package config loads a simulation scenario (cache geometry, prefetcher
// choice, domain layout, and the trace to replay) from YAML via
// gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"memtrace/internal/addr"
	"memtrace/internal/engine"
	"memtrace/internal/prefetch"
	"memtrace/internal/simerr"
)

// Scenario is the on-disk shape of a simulation run.
type Scenario struct {
	LineSize        uint64 `yaml:"line_size"`
	NumLines        uint64 `yaml:"num_lines"`
	Assoc           uint64 `yaml:"assoc"`
	PageSize        string `yaml:"page_size"` // "4k" (default) or "2m"
	NumDomains      int    `yaml:"num_domains"`
	TidToDomain     []int  `yaml:"tid_to_domain"`
	Prefetcher      string `yaml:"prefetcher"` // "none" (default), "adjacent", "sequential"
	CountCompulsory bool   `yaml:"count_compulsory"`
	AddrTranslation bool   `yaml:"addr_translation"`
	PhysPageBudget  int64  `yaml:"phys_page_budget"` // 0 means unbounded

	Trace       string `yaml:"trace"`
	TraceFormat string `yaml:"trace_format"` // "binary" (default) or "text"
	Tid         int    `yaml:"tid"`          // thread id every trace record replays as
	Shards      int    `yaml:"shards"`       // 0 or 1 disables the parallel driver
}

// Load decodes a Scenario from r, rejecting unknown fields so a typo in
// a scenario file surfaces immediately instead of silently using a
// zero value.
func Load(r io.Reader) (Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", simerr.ConfigInvalid, err)
	}
	return s, nil
}

// LoadFile opens path and decodes a Scenario from it.
func LoadFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", simerr.ConfigInvalid, err)
	}
	defer f.Close()
	return Load(f)
}

// Geometry derives an addr.Geometry from the scenario's sizing fields.
func (s Scenario) Geometry() (*addr.Geometry, error) {
	pageSize := addr.Page4KiB
	switch s.PageSize {
	case "", "4k", "4KiB":
		pageSize = addr.Page4KiB
	case "2m", "2MiB":
		pageSize = addr.Page2MiB
	default:
		return nil, fmt.Errorf("%w: unrecognized page_size %q", simerr.ConfigInvalid, s.PageSize)
	}
	return addr.New(s.LineSize, s.NumLines, s.Assoc, pageSize)
}

// Prefetcher builds the configured Prefetcher for the given geometry.
func (s Scenario) Prefetcher(geom *addr.Geometry) (prefetch.Prefetcher, error) {
	switch s.Prefetcher {
	case "", "none":
		return prefetch.Null{}, nil
	case "adjacent":
		return prefetch.NewAdjacent(geom), nil
	case "sequential":
		return prefetch.NewSequential(geom), nil
	default:
		return nil, fmt.Errorf("%w: unrecognized prefetcher %q", simerr.ConfigInvalid, s.Prefetcher)
	}
}

// EngineConfig builds an engine.Config from the scenario, wiring the
// derived geometry and prefetcher in.
func (s Scenario) EngineConfig() (engine.Config, error) {
	geom, err := s.Geometry()
	if err != nil {
		return engine.Config{}, err
	}
	pf, err := s.Prefetcher(geom)
	if err != nil {
		return engine.Config{}, err
	}
	numDomains := s.NumDomains
	if numDomains == 0 {
		numDomains = 1
	}
	tidToDomain := s.TidToDomain
	if len(tidToDomain) == 0 {
		tidToDomain = []int{0}
	}
	return engine.Config{
		Geometry:        geom,
		NumDomains:      numDomains,
		TidToDomain:     tidToDomain,
		CountCompulsory: s.CountCompulsory,
		AddrTranslation: s.AddrTranslation,
		Prefetcher:      pf,
		PhysPageBudget:  s.PhysPageBudget,
	}, nil
}
