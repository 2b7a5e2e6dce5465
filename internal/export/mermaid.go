package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Files are grouped by directory; each USED_IN file pair becomes one arrow
// labeled with the symbols that connect them.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	type pair struct{ from, to string }
	labels := make(map[pair]map[string]bool)
	var pairs []pair
	files := make(map[string]bool)
	for _, e := range edges {
		if e.Kind != graph.EdgeKindUsedIn {
			continue
		}
		p := pair{e.SourceID, e.TargetID}
		if labels[p] == nil {
			labels[p] = make(map[string]bool)
			pairs = append(pairs, p)
		}
		labels[p][e.Symbol] = true
		files[e.SourceID] = true
		files[e.TargetID] = true
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	paths := sortedKeys(files)
	nodeIDs := make(map[string]string, len(paths))
	for i, p := range paths {
		nodeIDs[p] = fmt.Sprintf("N%d", i)
	}

	groups := make(map[string][]string)
	for _, p := range paths {
		dir := path.Dir(p)
		groups[dir] = append(groups[dir], p)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for gi, dir := range sortedKeys(groups) {
		members := groups[dir]
		if dir == "." {
			for _, m := range members {
				sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeIDs[m], shortPath(m)))
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("  subgraph G%d[\"%.40s\"]\n", gi, dir))
		for _, m := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeIDs[m], shortPath(m)))
		}
		sb.WriteString("  end\n")
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].from != pairs[j].from {
			return pairs[i].from < pairs[j].from
		}
		return pairs[i].to < pairs[j].to
	})
	for _, p := range pairs {
		label := strings.Join(sortedKeys(labels[p]), ", ")
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", nodeIDs[p.from], mermaidEscape(label), nodeIDs[p.to]))
	}

	return sb.String(), nil
}

// MermaidSink renders a result's USED_IN graph to <Dir>/<base name>.mmd.
type MermaidSink struct {
	Dir string
	Now func() time.Time
}

// Name implements Sink.
func (s *MermaidSink) Name() string { return "mermaid" }

// Path returns the file a Write of res produces.
func (s *MermaidSink) Path(res *extract.Result) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return filepath.Join(s.Dir, BaseName(res, now())+".mmd")
}

// Write implements Sink.
func (s *MermaidSink) Write(ctx context.Context, res *extract.Result) error {
	store := graph.NewMemStore()
	defer store.Close()
	if err := LoadGraph(ctx, store, res); err != nil {
		return err
	}
	diagram, err := GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(s.Path(res), []byte(diagram), 0o644)
}

// shortPath returns the last 2 path segments for readability.
func shortPath(p string) string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	if len(parts) <= 2 {
		return p
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// mermaidEscape strips characters that end a Mermaid edge label.
func mermaidEscape(s string) string {
	return strings.NewReplacer("|", "/", "\"", "'").Replace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
