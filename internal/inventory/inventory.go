// Package inventory turns manifest items into retrieved, page-counted
// sources. Failures drop the item and are reported as diagnostics.
package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/pdfinfo"
)

// Item is one declared section: a title and where to get its PDF.
type Item struct {
	Title   string `json:"title"`
	Locator string `json:"locator"`
}

// SourceEntry is an item whose PDF is on disk and readable.
type SourceEntry struct {
	Title     string `json:"title"`
	Locator   string `json:"locator"`
	Path      string `json:"path"`
	PageCount int    `json:"page_count"`
}

// Materializer makes the source at a manifest position available locally.
type Materializer interface {
	Materialize(ctx context.Context, index int, locator string) (string, error)
}

// Inventory fetches and counts sources with bounded concurrency.
type Inventory struct {
	source      Materializer
	counter     pdfinfo.Counter
	concurrency int
	timeout     time.Duration
	log         *slog.Logger
}

func New(source Materializer, counter pdfinfo.Counter, concurrency int, timeout time.Duration, log *slog.Logger) *Inventory {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Inventory{
		source:      source,
		counter:     counter,
		concurrency: concurrency,
		timeout:     timeout,
		log:         log,
	}
}

// FetchAll returns the readable items in manifest order. A failed item is
// absent from the result and named in the diagnostics.
func (inv *Inventory) FetchAll(ctx context.Context, items []Item) ([]SourceEntry, diag.List) {
	type result struct {
		entry SourceEntry
		err   error
		idx   int
	}
	results := make(chan result, len(items))
	sem := make(chan struct{}, inv.concurrency)

	for i, it := range items {
		sem <- struct{}{}
		go func(i int, it Item) {
			defer func() { <-sem }()
			entry, err := inv.fetchOne(ctx, i, it)
			results <- result{entry: entry, err: err, idx: i}
		}(i, it)
	}

	slots := make([]*SourceEntry, len(items))
	errs := make([]error, len(items))
	for range items {
		r := <-results
		if r.err != nil {
			errs[r.idx] = r.err
			continue
		}
		slots[r.idx] = &r.entry
	}

	var (
		entries []SourceEntry
		diags   diag.List
	)
	for i, it := range items {
		if errs[i] != nil {
			inv.log.Warn("skipping source", "index", i, "title", it.Title, "locator", it.Locator, "error", errs[i])
			diags.Add(diag.KindOf(errs[i]), it.Title, 0, errs[i])
			continue
		}
		entries = append(entries, *slots[i])
	}
	inv.log.Info("inventory complete", "items", len(items), "sources", len(entries), "skipped", len(diags))
	return entries, diags
}

func (inv *Inventory) fetchOne(ctx context.Context, i int, it Item) (SourceEntry, error) {
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}
	path, err := inv.source.Materialize(ctx, i, it.Locator)
	if err != nil {
		return SourceEntry{}, err
	}
	n, err := inv.counter.CountPages(path)
	if err != nil {
		return SourceEntry{}, err
	}
	inv.log.Debug("source ready", "index", i, "title", it.Title, "pages", n)
	return SourceEntry{Title: it.Title, Locator: it.Locator, Path: path, PageCount: n}, nil
}
