// Package assemble renders the master document: index pages first, then
// every source page in order with a body page number stamped in its footer.
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/layout"
	"github.com/dgallion1/binder/internal/numbering"
)

// Document is an in-memory master document under construction.
type Document struct {
	pdf   *gofpdf.Fpdf
	imp   *gofpdi.Importer
	style layout.Style
	tr    func(string) string
	log   *slog.Logger

	// IndexTitle labels the outline node for the first page.
	IndexTitle string

	defaultSize gofpdf.SizeType
	sizes       []gofpdf.SizeType
	indexPages  int
	out         []byte
}

// New starts a document whose index pages use pageSize (A4, Letter, ...).
func New(pageSize string, st layout.Style, log *slog.Logger) (*Document, error) {
	pdf := gofpdf.New("P", "pt", pageSize, "")
	if pdf.Err() {
		return nil, fmt.Errorf("new document: %w", pdf.Error())
	}
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("binder", true)
	w, h := pdf.GetPageSize()
	return &Document{
		pdf:         pdf,
		imp:         gofpdi.NewImporter(),
		style:       st,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""),
		log:         log,
		IndexTitle:  "Index",
		defaultSize: gofpdf.SizeType{Wd: w, Ht: h},
	}, nil
}

// LayoutIndex paginates the front matter onto the first pages.
func (d *Document) LayoutIndex(cover layout.Cover, entries []layout.Entry) (*layout.IndexLayout, error) {
	if len(d.sizes) > 0 {
		return nil, errors.New("index already laid out")
	}
	lay, err := layout.Paginate(d.pdf, cover, entries, d.style, layout.Options{Translate: d.tr})
	if err != nil {
		return nil, err
	}
	if d.pdf.Err() {
		return nil, fmt.Errorf("render index: %w", d.pdf.Error())
	}
	for range lay.PageCount {
		d.sizes = append(d.sizes, d.defaultSize)
	}
	d.indexPages = lay.PageCount
	d.log.Info("index laid out", "pages", lay.PageCount, "rows", len(lay.Rows))
	return lay, nil
}

// Assemble appends every source page in order and writes the outline.
// paths[i] is the file for maps[i].
func (d *Document) Assemble(maps []numbering.PageMap, paths []string) (diag.List, error) {
	if d.indexPages == 0 {
		return nil, errors.New("assemble before index layout")
	}
	if len(maps) != len(paths) {
		return nil, fmt.Errorf("%d page maps for %d sources", len(maps), len(paths))
	}

	var diags diag.List
	for i, m := range maps {
		if want := d.indexPages + m.StartBody; m.StartAbs != want || len(d.sizes)+1 != want {
			return diags, fmt.Errorf("section %q: expected first page %d, at %d", m.Title, want, len(d.sizes)+1)
		}
		for p := 1; p <= m.Pages(); p++ {
			d.addBodyPage(m.Title, paths[i], p, m.StartBody+p-1, &diags)
		}
	}

	d.writeOutline(BuildOutline(d.IndexTitle, d.indexPages, maps), 0)
	d.pdf.SetPage(len(d.sizes))

	if d.pdf.Err() {
		return diags, fmt.Errorf("assemble: %w", d.pdf.Error())
	}
	d.log.Info("document assembled", "pages", len(d.sizes), "sections", len(maps), "diagnostics", len(diags))
	return diags, nil
}

func (d *Document) addBodyPage(title, path string, n, body int, diags *diag.List) {
	log := d.log.With("title", title, "page", n, "body_page", body)

	tpl, w, h, err := d.importPage(path, n)
	if err != nil {
		log.Warn("page import failed, inserting blank page", "error", err)
		diags.Add(diag.KindPageImport, title, body, err)
		d.addPage(d.defaultSize)
		d.stampFooter(body)
		return
	}

	size := gofpdf.SizeType{Wd: w, Ht: h}
	known := w > 0 && h > 0
	if !known {
		size = d.defaultSize
	}
	d.addPage(size)
	if err := d.placeTemplate(tpl, size); err != nil {
		log.Warn("template placement failed", "error", err)
		diags.Add(diag.KindPageImport, title, body, err)
	}
	if !known {
		log.Warn("no media box, page left unnumbered")
		diags.Add(diag.KindOverlayMerge, title, body, errors.New("page has no usable media box"))
		return
	}
	d.stampFooter(body)
}

// importPage registers page n of path as a template. The importer reports
// unreadable files by panicking.
func (d *Document) importPage(path string, n int) (tpl int, w, h float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import %s page %d: %v", path, n, r)
		}
	}()
	tpl = d.imp.ImportPage(d.pdf, path, n, "/MediaBox")
	if box, ok := d.imp.GetPageSizes()[n]["/MediaBox"]; ok {
		w, h = box["w"], box["h"]
	}
	return tpl, w, h, nil
}

func (d *Document) placeTemplate(tpl int, size gofpdf.SizeType) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("place template %d: %v", tpl, r)
		}
	}()
	d.imp.UseImportedTemplate(d.pdf, tpl, 0, 0, size.Wd, size.Ht)
	return nil
}

func (d *Document) addPage(size gofpdf.SizeType) {
	d.pdf.AddPageFormat("P", size)
	d.sizes = append(d.sizes, size)
}

func (d *Document) stampFooter(body int) {
	st := d.style
	size := d.sizes[len(d.sizes)-1]
	label := strconv.Itoa(body)
	d.pdf.SetFont(st.Footer.Family, st.Footer.Style, st.Footer.Size)
	d.pdf.SetTextColor(st.TextColor.R, st.TextColor.G, st.TextColor.B)
	x := size.Wd - st.FooterRight - d.pdf.GetStringWidth(label)
	d.pdf.Text(x, size.Ht-st.FooterBottom, label)
}

func (d *Document) writeOutline(nodes []Bookmark, level int) {
	for _, n := range nodes {
		// Bookmarks attach to the current page.
		d.pdf.SetPage(n.Page + 1)
		d.pdf.Bookmark(d.tr(n.Title), level, d.outlineY(n.Page))
		d.writeOutline(n.Children, level+1)
	}
}

// outlineY returns the bookmark offset that lands on the top of page i.
// Outline destinations are flipped against the last page's height.
func (d *Document) outlineY(i int) float64 {
	y := d.sizes[len(d.sizes)-1].Ht - d.sizes[i].Ht
	if y == -1 {
		// -1 asks for the current y position.
		y = -0.99
	}
	return y
}

// LinkInternal makes rect on page from jump to page to. Both are zero-based
// physical pages.
func (d *Document) LinkInternal(from, to int, r layout.Rect) error {
	if d.out != nil {
		return errors.New("document already rendered")
	}
	if from < 0 || from >= len(d.sizes) || to < 0 || to >= len(d.sizes) {
		return fmt.Errorf("link %d -> %d outside %d pages", from, to, len(d.sizes))
	}
	cur := len(d.sizes)
	id := d.pdf.AddLink()
	d.pdf.SetLink(id, 0, to+1)

	// Link rectangles are flipped against the last added page's height, not
	// the page they land on.
	shift := d.sizes[cur-1].Ht - d.sizes[from].Ht
	d.pdf.SetPage(from + 1)
	d.pdf.Link(r.X, r.Y+shift, r.W, r.H, id)
	d.pdf.SetPage(cur)

	if d.pdf.Err() {
		return d.pdf.Error()
	}
	return nil
}

// Bytes renders the document. It can be called more than once.
func (d *Document) Bytes() ([]byte, error) {
	if d.out != nil {
		return d.out, nil
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	d.out = buf.Bytes()
	return d.out, nil
}

// PageCount is the number of physical pages added so far.
func (d *Document) PageCount() int { return len(d.sizes) }

// PageHeight returns the height of zero-based page i in points.
func (d *Document) PageHeight(i int) float64 {
	if i < 0 || i >= len(d.sizes) {
		return 0
	}
	return d.sizes[i].Ht
}
