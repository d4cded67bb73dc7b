// Package pipeline runs a complete build: manifest to master PDF to a
// rewritten page map.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/binder/internal/assemble"
	"github.com/dgallion1/binder/internal/config"
	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/fetch"
	"github.com/dgallion1/binder/internal/fsutil"
	"github.com/dgallion1/binder/internal/inventory"
	"github.com/dgallion1/binder/internal/layout"
	"github.com/dgallion1/binder/internal/links"
	"github.com/dgallion1/binder/internal/manifest"
	"github.com/dgallion1/binder/internal/numbering"
	"github.com/dgallion1/binder/internal/pdfinfo"
)

// Options configures one build.
type Options struct {
	ManifestPath string
	OutputPath   string
	CacheDir     string

	FetchTimeout     time.Duration
	FetchRetries     int
	FetchConcurrency int
	UserAgent        string

	PageSize       string
	IndexMargin    float64
	IndexHeading   string
	LinkStrategies []string

	// DryRun renders everything in memory and writes nothing.
	DryRun bool
	// NoManifest writes the artifact but leaves the manifest alone.
	NoManifest bool
}

// OptionsFromConfig copies the build settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ManifestPath:     cfg.ManifestPath,
		OutputPath:       cfg.OutputPath,
		CacheDir:         cfg.CacheDir,
		FetchTimeout:     cfg.FetchTimeout,
		FetchRetries:     cfg.FetchRetries,
		FetchConcurrency: cfg.FetchConcurrency,
		UserAgent:        cfg.UserAgent,
		PageSize:         cfg.PageSize,
		IndexMargin:      cfg.IndexMargin,
		IndexHeading:     cfg.IndexHeading,
		LinkStrategies:   cfg.LinkStrategies,
	}
}

// Result describes a finished build.
type Result struct {
	Title        string              `json:"title"`
	PageMap      []numbering.PageMap `json:"page_map"`
	Diagnostics  diag.List           `json:"diagnostics"`
	IndexPages   int                 `json:"index_pages"`
	BodyPages    int                 `json:"body_pages"`
	TotalPages   int                 `json:"total_pages"`
	LinkedRows   int                 `json:"linked_rows"`
	ArtifactPath string              `json:"artifact_path"`
	SizeBytes    int64               `json:"size_bytes"`
	FinishedAt   time.Time           `json:"finished_at"`

	// Written is false for dry runs.
	Written bool `json:"written"`

	OldManifest string `json:"-"`
	NewManifest string `json:"-"`
}

// Builder runs builds with fixed options.
type Builder struct {
	opts    Options
	counter pdfinfo.Counter
	log     *slog.Logger

	// Now stamps the page map. Tests pin it.
	Now func() time.Time
	// Backoff overrides the wait between download attempts when set.
	Backoff func(attempt int) time.Duration
}

func NewBuilder(opts Options, log *slog.Logger) *Builder {
	if len(opts.LinkStrategies) == 0 {
		opts.LinkStrategies = []string{config.StrategyInternal, config.StrategyRaw}
	}
	if opts.IndexHeading == "" {
		opts.IndexHeading = "Index"
	}
	if opts.PageSize == "" {
		opts.PageSize = "A4"
	}
	return &Builder{
		opts:    opts,
		counter: pdfinfo.Default(),
		log:     log,
		Now:     time.Now,
	}
}

// Run performs one build. It returns diag.ErrManifestMissing when the
// manifest cannot be read, diag.ErrNoItems when it declares no sections
// and diag.ErrNoSources when every section failed. None of those write
// anything.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := b.log.With("manifest", b.opts.ManifestPath)

	src, err := os.ReadFile(b.opts.ManifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", diag.ErrManifestMissing, b.opts.ManifestPath)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	res := &Result{OldManifest: string(src), NewManifest: string(src)}

	m := manifest.Parse(src, manifest.Options{AllowLocal: true})
	res.Title = m.Cover.Title
	if len(m.Items) == 0 {
		log.Info("manifest declares no sections, nothing to build")
		return res, diag.ErrNoItems
	}
	log.Info("manifest parsed", "title", m.Cover.Title, "items", len(m.Items))

	inv, fetcher := b.inventory()
	defer fetcher.Close()
	entries, diags := inv.FetchAll(ctx, m.Items)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Diagnostics = diags
	if len(entries) == 0 {
		return res, fmt.Errorf("%w: %d items failed", diag.ErrNoSources, len(m.Items))
	}

	ranges, err := numbering.BodyRanges(entries)
	if err != nil {
		return res, fmt.Errorf("body ranges: %w", err)
	}

	doc, err := assemble.New(b.opts.PageSize, b.style(), b.log)
	if err != nil {
		return res, err
	}
	doc.IndexTitle = b.opts.IndexHeading

	idx := make([]layout.Entry, len(ranges))
	for i, r := range ranges {
		idx[i] = layout.Entry{Title: r.Title, BodyPage: r.StartBody}
	}
	lay, err := doc.LayoutIndex(coverFromManifest(m.Cover), idx)
	if err != nil {
		return res, fmt.Errorf("lay out index: %w", err)
	}

	maps, err := numbering.Absolute(ranges, lay.PageCount)
	if err != nil {
		return res, fmt.Errorf("absolute numbering: %w", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	adiags, err := doc.Assemble(maps, paths)
	res.Diagnostics.Merge(adiags)
	if err != nil {
		return res, err
	}

	data, pending, err := b.wireLinks(doc, links.Resolve(lay.Rows, lay.PageCount))
	if err != nil {
		return res, err
	}
	for _, p := range pending {
		body := p.Record.ToPage - lay.PageCount + 1
		log.Warn("index row left unlinked", "title", p.Record.Title, "body_page", body, "error", p.Err)
		res.Diagnostics.Add(diag.KindLinkWiring, p.Record.Title, body, p.Err)
	}

	res.PageMap = maps
	res.IndexPages = lay.PageCount
	res.BodyPages = numbering.TotalBodyPages(ranges)
	res.TotalPages = doc.PageCount()
	res.LinkedRows = len(lay.Rows) - len(pending)
	res.ArtifactPath = b.opts.OutputPath
	res.SizeBytes = int64(len(data))
	res.FinishedAt = b.Now()

	block := manifest.RenderSummary(manifest.Summary{
		ArtifactLink: artifactLink(b.opts.ManifestPath, b.opts.OutputPath),
		SizeBytes:    res.SizeBytes,
		Updated:      res.FinishedAt,
		Entries:      maps,
	})
	res.NewManifest = manifest.Rewrite(res.OldManifest, block)

	if b.opts.DryRun {
		log.Info("dry run complete", "pages", res.TotalPages, "diagnostics", len(res.Diagnostics))
		return res, nil
	}

	if err := fsutil.WriteFileAtomic(b.opts.OutputPath, data); err != nil {
		return res, fmt.Errorf("write artifact: %w", err)
	}
	if !b.opts.NoManifest && res.NewManifest != res.OldManifest {
		if err := fsutil.WriteFileAtomic(b.opts.ManifestPath, []byte(res.NewManifest)); err != nil {
			return res, fmt.Errorf("write manifest: %w", err)
		}
	}
	res.Written = true

	log.Info("build complete",
		"output", b.opts.OutputPath,
		"pages", res.TotalPages,
		"index_pages", res.IndexPages,
		"sections", len(maps),
		"diagnostics", len(res.Diagnostics),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (b *Builder) inventory() (*inventory.Inventory, *fetch.Client) {
	fetcher := fetch.NewClient(fetch.Options{
		CacheDir:  b.opts.CacheDir,
		BaseDir:   filepath.Dir(b.opts.ManifestPath),
		UserAgent: b.opts.UserAgent,
		Timeout:   b.opts.FetchTimeout,
		Retries:   b.opts.FetchRetries,
	}, b.log)
	if b.Backoff != nil {
		fetcher.Backoff = b.Backoff
	}
	// Each attempt is bounded by the HTTP client timeout. The item deadline
	// covers every attempt.
	timeout := time.Duration(0)
	if b.opts.FetchTimeout > 0 {
		timeout = b.opts.FetchTimeout * time.Duration(max(b.opts.FetchRetries, 1)+1)
	}
	return inventory.New(fetcher, b.counter, b.opts.FetchConcurrency, timeout, b.log), fetcher
}

func (b *Builder) style() layout.Style {
	st := layout.DefaultStyle()
	if m := b.opts.IndexMargin; m > 0 {
		st.MarginTop, st.MarginBottom, st.MarginLeft, st.MarginRight = m, m, m, m
	}
	return st
}

// wireLinks runs the configured strategies and renders the document. Any
// record still pending afterwards comes back with its last error.
func (b *Builder) wireLinks(doc *assemble.Document, recs []links.Record) ([]byte, []links.Pending, error) {
	pending := make([]links.Pending, len(recs))
	for i, r := range recs {
		pending[i] = links.Pending{Record: r, Err: errors.New("no link strategy configured")}
	}

	rendered := false
	var data []byte
	render := func() error {
		if rendered {
			return nil
		}
		out, err := doc.Bytes()
		if err != nil {
			return err
		}
		data, rendered = out, true
		return nil
	}

	for _, name := range b.opts.LinkStrategies {
		if len(pending) == 0 {
			break
		}
		switch name {
		case config.StrategyInternal:
			if rendered {
				continue
			}
			pending = links.Apply(links.NewInternal(doc), links.Records(pending))
		case config.StrategyRaw:
			if err := render(); err != nil {
				return nil, nil, err
			}
			pending = b.applyRaw(data, doc.PageHeight, pending, &data)
		}
		b.log.Debug("link strategy applied", "strategy", name, "pending", len(pending))
	}

	if err := render(); err != nil {
		return nil, nil, err
	}
	return data, pending, nil
}

// applyRaw annotates the rendered bytes. On success *out holds the new
// document. If the result cannot be written every record stays pending.
func (b *Builder) applyRaw(data []byte, height func(int) float64, pending []links.Pending, out *[]byte) []links.Pending {
	raw, err := links.OpenRaw(data, height)
	if err != nil {
		return failAll(pending, fmt.Errorf("raw: %w", err))
	}
	left := links.Apply(raw, links.Records(pending))
	if len(left) == len(pending) {
		return left
	}
	annotated, err := raw.Bytes()
	if err != nil {
		return failAll(pending, fmt.Errorf("raw: %w", err))
	}
	*out = annotated
	return left
}

func failAll(pending []links.Pending, err error) []links.Pending {
	out := make([]links.Pending, len(pending))
	for i, p := range pending {
		out[i] = links.Pending{Record: p.Record, Err: err}
	}
	return out
}

func coverFromManifest(c manifest.Cover) layout.Cover {
	cover := layout.Cover{
		Title:         c.Title,
		Intro:         c.Intro,
		MajorsHeading: c.MajorsHeading,
		Majors:        c.Majors,
	}
	if c.Helpful != nil {
		cover.Helpful = &layout.Link{Text: c.Helpful.Text, URL: c.Helpful.URL}
	}
	return cover
}

// artifactLink is the artifact path as the manifest should link to it.
func artifactLink(manifestPath, outputPath string) string {
	base, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return filepath.ToSlash(outputPath)
	}
	target, err := filepath.Abs(outputPath)
	if err != nil {
		return filepath.ToSlash(outputPath)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(outputPath)
	}
	return filepath.ToSlash(rel)
}
