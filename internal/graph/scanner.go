package graph

import "context"

// Scanner extracts raw facts from a single source unit.
// Implementations: TreeSitterScanner (production), stub scanners in tests.
type Scanner interface {
	// Scan returns the facts observed in unit. On failure it returns no facts
	// and a *ScanError; it never panics past this boundary.
	Scan(ctx context.Context, unit SourceUnit) ([]Fact, error)

	// Language returns the language this scanner understands.
	Language() Language
}
