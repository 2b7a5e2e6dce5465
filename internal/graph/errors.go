package graph

import "fmt"

// ScanError reports that one unit could not be scanned. The walk continues.
type ScanError struct {
	Unit string `json:"unit"`
	Msg  string `json:"message"`
	Line int    `json:"line,omitempty"`
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %s", e.Unit, e.Msg)
}

// WalkFatalError aborts a whole walk before any unit is scanned (or, for
// Op "walk", when enumeration itself fails).
type WalkFatalError struct {
	Root string
	Op   string // "stat", "fetch" or "walk"
	Err  error
}

func (e *WalkFatalError) Error() string {
	return fmt.Sprintf("walk %s: %s: %v", e.Root, e.Op, e.Err)
}

func (e *WalkFatalError) Unwrap() error { return e.Err }
