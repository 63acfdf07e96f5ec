// Command cachesim replays a memory-access trace against a configured
// cache/coherence/NUMA model and reports the resulting StatsBlock.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"memtrace/internal/config"
	"memtrace/internal/engine"
	"memtrace/internal/logging"
	"memtrace/internal/parallel"
	"memtrace/internal/profile"
	"memtrace/internal/simerr"
	"memtrace/internal/stats"
	"memtrace/internal/tracefmt"
)

func run() error {
	configPath := flag.String("config", "", "path to a YAML scenario file (required)")
	tracePath := flag.String("trace", "", "override the scenario's trace path")
	traceFormat := flag.String("trace-format", "", "override the scenario's trace_format (binary|text)")
	shards := flag.Int("shards", -1, "override the scenario's shard count (0 or 1 disables the parallel driver)")
	profilePath := flag.String("profile", "", "write a pprof set-miss profile here after the run")
	progress := flag.Bool("progress", false, "show a progress bar while draining the trace")
	flag.Parse()

	if *configPath == "" {
		return fmt.Errorf("%w: -config is required", simerr.ConfigInvalid)
	}

	scenario, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if *tracePath != "" {
		scenario.Trace = *tracePath
	}
	if *traceFormat != "" {
		scenario.TraceFormat = *traceFormat
	}
	if *shards >= 0 {
		scenario.Shards = *shards
	}

	cfg, err := scenario.EngineConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(scenario.Trace)
	if err != nil {
		return fmt.Errorf("%w: %v", simerr.ConfigInvalid, err)
	}
	defer f.Close()

	reader, closeReader, err := tracefmt.Open(scenario.Trace, f)
	if err != nil {
		return err
	}
	defer closeReader()

	var tr tracefmt.Reader
	switch scenario.TraceFormat {
	case "", "binary":
		tr = tracefmt.NewBinary(reader)
	case "text":
		tr = tracefmt.NewText(reader)
	default:
		return fmt.Errorf("%w: unrecognized trace_format %q", simerr.ConfigInvalid, scenario.TraceFormat)
	}

	var bar *progressbar.ProgressBar
	if *progress {
		size := int64(-1)
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		bar = progressbar.DefaultBytes(size, "replaying trace")
		defer bar.Finish()
	}

	log := logging.Standard("cachesim: ")
	runID := profile.NewRunID()
	log.Printf("run %s starting", runID)

	var st stats.Block
	var eng *engine.Engine

	if scenario.Shards > 1 {
		recs := make(chan tracefmt.Record, 1024)
		go func() {
			defer close(recs)
			for {
				rec, err := tr.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					log.Printf("trace read error: %v", err)
					return
				}
				recs <- rec
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
		driver := parallel.New(cfg, scenario.Shards)
		st, err = driver.Run(context.Background(), recs, scenario.Tid)
		if err != nil {
			return err
		}
	} else {
		eng, err = engine.New(cfg)
		if err != nil {
			return err
		}
		for {
			rec, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if err := eng.MemAccess(rec.Address, rec.Access, scenario.Tid); err != nil {
				return err
			}
			if bar != nil {
				bar.Add(1)
			}
		}
		st = eng.Stats
	}

	stats.Fprint(os.Stdout, fmt.Sprintf("Run %s complete", runID), &st)

	if *profilePath != "" {
		if eng == nil {
			log.Printf("profile export needs a non-sharded run; skipping")
		} else {
			pf, err := os.Create(*profilePath)
			if err != nil {
				return err
			}
			defer pf.Close()
			if err := profile.Export(pf, runID, profile.SetMisses(eng.MissesBySet())); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cachesim: %v\n", err)
		os.Exit(1)
	}
}
