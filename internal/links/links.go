// Package links turns index rows into clickable jumps to their sections.
//
// Strategies are tried in order for each record. A record that no strategy
// can wire stays pending and the caller reports it.
package links

import (
	"fmt"

	"github.com/dgallion1/binder/internal/layout"
)

// Record is one link to wire. Pages are zero-based and physical.
type Record struct {
	Title    string
	FromPage int
	ToPage   int
	Rect     layout.Rect
}

// Resolve maps placed index rows to physical pages. A row pointing at body
// page b lands on physical page indexPages+b-1.
func Resolve(rows []layout.IndexRow, indexPages int) []Record {
	recs := make([]Record, len(rows))
	for i, r := range rows {
		recs[i] = Record{
			Title:    r.Title,
			FromPage: r.PageIndex,
			ToPage:   indexPages + r.BodyPage - 1,
			Rect:     r.Rect,
		}
	}
	return recs
}

// Strategy wires one record.
type Strategy interface {
	Name() string
	Link(rec Record) error
}

// Pending is a record no strategy has wired yet, with the last failure.
type Pending struct {
	Record Record
	Err    error
}

// Apply runs s over every record and returns the ones it could not wire.
func Apply(s Strategy, recs []Record) []Pending {
	var pending []Pending
	for _, rec := range recs {
		if err := s.Link(rec); err != nil {
			pending = append(pending, Pending{Record: rec, Err: fmt.Errorf("%s: %w", s.Name(), err)})
		}
	}
	return pending
}

// Records unwraps pending entries for the next strategy.
func Records(pending []Pending) []Record {
	recs := make([]Record, len(pending))
	for i, p := range pending {
		recs[i] = p.Record
	}
	return recs
}

// InternalLinker is satisfied by the in-memory document.
type InternalLinker interface {
	LinkInternal(from, to int, r layout.Rect) error
}

// Internal wires links on the document before it is rendered.
type Internal struct {
	doc InternalLinker
}

func NewInternal(doc InternalLinker) *Internal {
	return &Internal{doc: doc}
}

func (s *Internal) Name() string { return "internal" }

func (s *Internal) Link(rec Record) error {
	return s.doc.LinkInternal(rec.FromPage, rec.ToPage, rec.Rect)
}
