// Package diag collects recoverable build problems.
//
// Nothing recoverable aborts a build. Each degraded step records a
// Diagnostic instead and the caller decides how to report the list.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindRetrieval       Kind = "retrieval"
	KindMalformedSource Kind = "malformed_source"
	KindPageImport      Kind = "page_import"
	KindOverlayMerge    Kind = "overlay_merge"
	KindLinkWiring      Kind = "link_wiring"
)

// Fatal conditions. These stop a build before anything is written.
var (
	ErrManifestMissing = errors.New("manifest missing")
	ErrNoItems         = errors.New("no eligible sections in manifest")
	ErrNoSources       = errors.New("no sources could be retrieved")
)

// Diagnostic is one recorded degradation.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Page    int    `json:"page,omitempty"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Page > 0 {
		return fmt.Sprintf("%s: %s (page %d): %s", d.Kind, d.Subject, d.Page, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// List is an ordered set of diagnostics.
type List []Diagnostic

// Add appends a diagnostic, filling Message from Err.
func (l *List) Add(kind Kind, subject string, page int, err error) {
	d := Diagnostic{Kind: kind, Subject: subject, Page: page, Err: err}
	if err != nil {
		d.Message = err.Error()
	}
	*l = append(*l, d)
}

// Merge appends every diagnostic in other.
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// OfKind returns the diagnostics of one kind, in order.
func (l List) OfKind(kind Kind) List {
	var out List
	for _, d := range l {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Counts tallies diagnostics per kind.
func (l List) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range l {
		counts[d.Kind]++
	}
	return counts
}

// RetrievalError reports a source that could not be fetched.
type RetrievalError struct {
	Locator string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.Locator, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// MalformedSourceError reports a fetched file that is not a usable PDF.
type MalformedSourceError struct {
	Path string
	Err  error
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source %s: %v", e.Path, e.Err)
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// KindOf maps a source failure onto its diagnostic kind.
func KindOf(err error) Kind {
	var malformed *MalformedSourceError
	if errors.As(err, &malformed) {
		return KindMalformedSource
	}
	return KindRetrieval
}
