package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dusk-indust/repograph/internal/config"
	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/graph"
)

// buildSinks creates one sink per configured format. The returned close
// function releases any graph store opened for the graph format.
func buildSinks(cfg config.ProjectConfig, now func() time.Time) ([]export.Sink, func() error, error) {
	var (
		sinks   []export.Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	for _, format := range cfg.Formats {
		switch format {
		case "csv":
			sinks = append(sinks, &export.CSVSink{Dir: cfg.OutputDir, Now: now})
		case "json":
			sinks = append(sinks, &export.JSONSink{Dir: cfg.OutputDir, Now: now})
		case "sqlite":
			sinks = append(sinks, &export.SQLiteSink{Path: cfg.SQLitePath})
		case "mermaid":
			sinks = append(sinks, &export.MermaidSink{Dir: cfg.OutputDir, Now: now})
		case "graph":
			store, err := openGraphStore(cfg.GraphPath)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("open graph store: %w", err)
			}
			closers = append(closers, store.Close)
			sinks = append(sinks, &export.GraphSink{Store: store})
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown format %q", format)
		}
	}
	return sinks, closeAll, nil
}

// graphSink returns the graph sink among sinks, if any.
func graphSink(sinks []export.Sink) (graph.Store, bool) {
	for _, s := range sinks {
		if g, ok := s.(*export.GraphSink); ok {
			return g.Store, true
		}
	}
	return nil, false
}
