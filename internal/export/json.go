package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// Document is the nested JSON form of an extraction.
type Document struct {
	Root       string               `json:"root"`
	ExportedAt string               `json:"exportedAt"`
	Files      map[string]FileEntry `json:"files"`
	Edges      []graph.ResolvedEdge `json:"edges"`
	Errors     []graph.ScanError    `json:"errors"`
}

// FileEntry lists what one unit defines and imports.
type FileEntry struct {
	Functions []string `json:"functions"`
	Classes   []string `json:"classes"`
	Imports   []string `json:"imports"`
}

// BuildDocument groups res by unit. Every scanned unit gets an entry, even
// one with no facts or one that failed to scan.
func BuildDocument(res *extract.Result, now time.Time) *Document {
	doc := &Document{
		Root:       res.Root,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Files:      make(map[string]FileEntry, len(res.Units)),
		Edges:      res.Edges,
		Errors:     res.ScanErrors,
	}
	for _, u := range res.Units {
		doc.Files[u] = FileEntry{Functions: []string{}, Classes: []string{}, Imports: []string{}}
	}
	for _, f := range res.Facts {
		entry := doc.Files[f.Unit]
		switch f.Kind {
		case graph.FactDefinition:
			entry.Functions = append(entry.Functions, f.Symbol)
		case graph.FactClassDefinition:
			entry.Classes = append(entry.Classes, f.Symbol)
		case graph.FactImport:
			entry.Imports = append(entry.Imports, f.Symbol)
		default:
			continue
		}
		doc.Files[f.Unit] = entry
	}
	if doc.Edges == nil {
		doc.Edges = []graph.ResolvedEdge{}
	}
	if doc.Errors == nil {
		doc.Errors = []graph.ScanError{}
	}
	return doc
}

// EncodeDocument writes doc as indented JSON.
func EncodeDocument(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// JSONSink writes the nested document to <Dir>/<base name>.json.
type JSONSink struct {
	Dir string
	Now func() time.Time
}

// Name implements Sink.
func (s *JSONSink) Name() string { return "json" }

// Path returns the file a Write of res produces.
func (s *JSONSink) Path(res *extract.Result) string {
	return filepath.Join(s.Dir, BaseName(res, s.now())+".json")
}

func (s *JSONSink) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Write implements Sink.
func (s *JSONSink) Write(_ context.Context, res *extract.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := s.Path(res)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeDocument(f, BuildDocument(res, s.now())); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
