// Package numbering computes body and absolute page ranges.
//
// Numbering runs in two passes. BodyRanges needs only page counts, so the
// index can be laid out against body numbers. Absolute runs once the index
// length is known and shifts every range by it.
package numbering

import (
	"fmt"

	"github.com/dgallion1/binder/internal/inventory"
)

// BodyRange is a source's page span in body numbering (first body page = 1).
type BodyRange struct {
	Title     string `json:"title"`
	StartBody int    `json:"start_body"`
	EndBody   int    `json:"end_body"`
}

// Pages returns the number of pages in the range.
func (r BodyRange) Pages() int { return r.EndBody - r.StartBody + 1 }

// PageMap is a source's span in both body and physical (1-based) numbering.
type PageMap struct {
	Title     string `json:"title"`
	StartBody int    `json:"start_body"`
	EndBody   int    `json:"end_body"`
	StartAbs  int    `json:"start_abs"`
	EndAbs    int    `json:"end_abs"`
}

// Pages returns the number of pages in the range.
func (m PageMap) Pages() int { return m.EndBody - m.StartBody + 1 }

// BodyRanges lays the entries end to end starting at body page 1.
func BodyRanges(entries []inventory.SourceEntry) ([]BodyRange, error) {
	ranges := make([]BodyRange, 0, len(entries))
	next := 1
	for i, e := range entries {
		if e.PageCount < 1 {
			return nil, fmt.Errorf("entry %d (%q): page count %d < 1", i, e.Title, e.PageCount)
		}
		r := BodyRange{Title: e.Title, StartBody: next, EndBody: next + e.PageCount - 1}
		ranges = append(ranges, r)
		next = r.EndBody + 1
	}
	return ranges, nil
}

// Absolute offsets body ranges by the number of index pages in front of them.
func Absolute(ranges []BodyRange, indexPages int) ([]PageMap, error) {
	if indexPages < 1 {
		return nil, fmt.Errorf("index page count %d < 1", indexPages)
	}
	maps := make([]PageMap, len(ranges))
	for i, r := range ranges {
		maps[i] = PageMap{
			Title:     r.Title,
			StartBody: r.StartBody,
			EndBody:   r.EndBody,
			StartAbs:  indexPages + r.StartBody,
			EndAbs:    indexPages + r.EndBody,
		}
	}
	return maps, nil
}

// TotalBodyPages is the body page count covered by ranges.
func TotalBodyPages(ranges []BodyRange) int {
	if len(ranges) == 0 {
		return 0
	}
	return ranges[len(ranges)-1].EndBody
}
