package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// csvHeader is shared by the fact and edge tables.
var csvHeader = []string{"type", "module", "function", "file_defined", "file_used"}

// CSVSink writes the fact table, the edge table and the import rule table as
// three CSV files in Dir.
type CSVSink struct {
	Dir string
	// Now stamps file names; time.Now when nil.
	Now func() time.Time
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Paths returns the fact and edge file paths a Write of res produces.
func (s *CSVSink) Paths(res *extract.Result) (facts, edges string) {
	base := s.base(res)
	return base + ".csv", base + "_edges.csv"
}

// RulesPath returns the import rule file path a Write of res produces.
func (s *CSVSink) RulesPath(res *extract.Result) string {
	return s.base(res) + "_import_rules.csv"
}

func (s *CSVSink) base(res *extract.Result) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return filepath.Join(s.Dir, BaseName(res, now()))
}

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, res *extract.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	factsPath, edgesPath := s.Paths(res)
	if err := writeCSVFile(factsPath, func(w io.Writer) error { return WriteFactsCSV(w, res.Facts) }); err != nil {
		return err
	}
	if err := writeCSVFile(edgesPath, func(w io.Writer) error { return WriteEdgesCSV(w, res.Edges) }); err != nil {
		return err
	}
	rules := ImportRules(res.Facts)
	return writeCSVFile(s.RulesPath(res), func(w io.Writer) error { return WriteImportRulesCSV(w, rules) })
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteFactsCSV writes one row per fact, duplicates included.
func WriteFactsCSV(w io.Writer, facts []graph.Fact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, f := range facts {
		if err := cw.Write(factRow(f)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgesCSV writes one row per resolved edge, duplicates included.
func WriteEdgesCSV(w io.Writer, edges []graph.ResolvedEdge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range edges {
		if err := cw.Write([]string{string(e.Kind), "", e.Symbol, e.Defining, e.Using}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func factRow(f graph.Fact) []string {
	switch f.Kind {
	case graph.FactImport:
		if f.Qualifier != "" {
			return []string{"Import", f.Qualifier, f.Symbol, "", f.Unit}
		}
		return []string{"Import", f.Symbol, "", "", f.Unit}
	case graph.FactDefinition:
		return []string{"Definition", f.Unit, f.Symbol, f.Unit, ""}
	case graph.FactClassDefinition:
		return []string{"Class Definition", f.Unit, f.Symbol, f.Unit, ""}
	default:
		return []string{string(f.Kind), f.Qualifier, f.Symbol, "", f.Unit}
	}
}
