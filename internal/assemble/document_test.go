package assemble

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/inventory"
	"github.com/dgallion1/binder/internal/layout"
	"github.com/dgallion1/binder/internal/numbering"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sourcePDF(t *testing.T, dir, name string, pages int, w, h float64) string {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: w, Ht: h}})
	pdf.SetFont("Helvetica", "", 14)
	for i := range pages {
		pdf.AddPage()
		pdf.Text(50, 50, fmt.Sprintf("%s page %d", name, i+1))
	}
	path := filepath.Join(dir, name+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func pageMaps(t *testing.T, indexPages int, counts ...int) []numbering.PageMap {
	t.Helper()
	var entries []inventory.SourceEntry
	for i, n := range counts {
		entries = append(entries, inventory.SourceEntry{Title: fmt.Sprintf("Section %d", i+1), PageCount: n})
	}
	ranges, err := numbering.BodyRanges(entries)
	if err != nil {
		t.Fatal(err)
	}
	maps, err := numbering.Absolute(ranges, indexPages)
	if err != nil {
		t.Fatal(err)
	}
	return maps
}

func layoutIndex(t *testing.T, doc *Document, bodyPages ...int) *layout.IndexLayout {
	t.Helper()
	var entries []layout.Entry
	for i, b := range bodyPages {
		entries = append(entries, layout.Entry{Title: fmt.Sprintf("Section %d", i+1), BodyPage: b})
	}
	lay, err := doc.LayoutIndex(layout.Cover{Title: "Programme", Intro: []string{"Intro — with a dash."}}, entries)
	if err != nil {
		t.Fatal(err)
	}
	return lay
}

func TestAssemble_PagesAndSizes(t *testing.T) {
	dir := t.TempDir()
	a := sourcePDF(t, dir, "a", 2, 612, 792)
	b := sourcePDF(t, dir, "b", 1, 842, 595)

	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1, 3)
	maps := pageMaps(t, lay.PageCount, 2, 1)

	diags, err := doc.Assemble(maps, []string{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
	if doc.PageCount() != lay.PageCount+3 {
		t.Errorf("expected %d pages, got %d", lay.PageCount+3, doc.PageCount())
	}
	if h := doc.PageHeight(lay.PageCount); h != 792 {
		t.Errorf("expected first body page height 792, got %.2f", h)
	}
	if h := doc.PageHeight(lay.PageCount + 2); h != 595 {
		t.Errorf("expected landscape page height 595, got %.2f", h)
	}

	data, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatal(err)
	}
	if n != lay.PageCount+3 {
		t.Errorf("expected rendered page count %d, got %d", lay.PageCount+3, n)
	}
}

func TestAssemble_UnreadableSourceGetsBlankPage(t *testing.T) {
	dir := t.TempDir()
	a := sourcePDF(t, dir, "a", 1, 595, 842)
	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1, 2)
	maps := pageMaps(t, lay.PageCount, 1, 1)

	diags, err := doc.Assemble(maps, []string{a, junk})
	if err != nil {
		t.Fatal(err)
	}
	got := diags.OfKind(diag.KindPageImport)
	if len(got) != 1 || got[0].Page != 2 || got[0].Subject != "Section 2" {
		t.Errorf("expected one import diagnostic for body page 2, got %v", diags)
	}
	if doc.PageCount() != lay.PageCount+2 {
		t.Errorf("expected placeholder page kept, got %d pages", doc.PageCount())
	}
	if _, err := doc.Bytes(); err != nil {
		t.Errorf("expected document to render, got %v", err)
	}
}

// handWrittenPDF writes a one-page file. pagesExtra goes into the /Pages
// dictionary; the page itself never declares a /MediaBox.
func handWrittenPDF(t *testing.T, dir, name, pagesExtra string) string {
	t.Helper()
	content := "BT /F1 12 Tf 50 50 Td (bare) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 " + pagesExtra + ">>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name+".pdf")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssemble_PageWithoutMediaBoxStaysUnnumbered(t *testing.T) {
	dir := t.TempDir()
	bare := handWrittenPDF(t, dir, "bare", "")
	a := sourcePDF(t, dir, "a", 1, 595, 842)

	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1, 2)
	maps := pageMaps(t, lay.PageCount, 1, 1)

	diags, err := doc.Assemble(maps, []string{bare, a})
	if err != nil {
		t.Fatal(err)
	}
	got := diags.OfKind(diag.KindOverlayMerge)
	if len(got) != 1 || got[0].Page != 1 || got[0].Subject != "Section 1" {
		t.Errorf("expected one overlay diagnostic for body page 1, got %v", diags)
	}
	if len(diags) != 1 {
		t.Errorf("expected no other diagnostics, got %v", diags)
	}
	if doc.PageCount() != lay.PageCount+2 {
		t.Errorf("expected the page kept, got %d pages", doc.PageCount())
	}
	if h := doc.PageHeight(lay.PageCount); h != doc.PageHeight(0) {
		t.Errorf("expected default height %.2f, got %.2f", doc.PageHeight(0), h)
	}
	if _, err := doc.Bytes(); err != nil {
		t.Errorf("expected document to render, got %v", err)
	}
}

func TestAssemble_InheritedMediaBox(t *testing.T) {
	dir := t.TempDir()
	path := handWrittenPDF(t, dir, "inherited", "/MediaBox [0 0 300 400] ")

	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1)
	diags, err := doc.Assemble(pageMaps(t, lay.PageCount, 1), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
	if h := doc.PageHeight(lay.PageCount); h != 400 {
		t.Errorf("expected inherited height 400, got %.2f", h)
	}
}

func TestOutlineY_LandsOnPageTop(t *testing.T) {
	doc := &Document{sizes: []gofpdf.SizeType{{Wd: 595, Ht: 842}, {Wd: 842, Ht: 595}, {Wd: 612, Ht: 792}}}
	// The renderer writes top = lastHt - y.
	for i, want := range []float64{842, 595, 792} {
		if top := 792 - doc.outlineY(i); top != want {
			t.Errorf("page %d: expected top %.2f, got %.2f", i, want, top)
		}
	}

	doc = &Document{sizes: []gofpdf.SizeType{{Ht: 601}, {Ht: 600}}}
	if y := doc.outlineY(0); y == -1 {
		t.Error("expected offset to avoid the current-position sentinel")
	}
}

func TestAssemble_RejectsMisalignedMap(t *testing.T) {
	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1)
	maps := pageMaps(t, lay.PageCount+1, 1)
	if _, err := doc.Assemble(maps, []string{"unused"}); err == nil {
		t.Error("expected error when page map disagrees with index length")
	}
}

func TestLinkInternal_Bounds(t *testing.T) {
	dir := t.TempDir()
	a := sourcePDF(t, dir, "a", 2, 595, 842)
	doc, err := New("A4", layout.DefaultStyle(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	lay := layoutIndex(t, doc, 1)
	if _, err := doc.Assemble(pageMaps(t, lay.PageCount, 2), []string{a}); err != nil {
		t.Fatal(err)
	}

	r := lay.Rows[0].Rect
	if err := doc.LinkInternal(0, lay.PageCount, r); err != nil {
		t.Errorf("expected link to first body page, got %v", err)
	}
	if err := doc.LinkInternal(0, doc.PageCount(), r); err == nil {
		t.Error("expected error for target past the last page")
	}
	if _, err := doc.Bytes(); err != nil {
		t.Fatal(err)
	}
	if err := doc.LinkInternal(0, lay.PageCount, r); err == nil {
		t.Error("expected error after rendering")
	}
}

func TestNew_UnknownPageSize(t *testing.T) {
	if _, err := New("Napkin", layout.DefaultStyle(), quietLog()); err == nil {
		t.Error("expected error for unknown page size")
	}
}

func TestBuildOutline(t *testing.T) {
	maps := []numbering.PageMap{
		{Title: "A", StartBody: 1, EndBody: 2, StartAbs: 3, EndAbs: 4},
		{Title: "B", StartBody: 3, EndBody: 3, StartAbs: 5, EndAbs: 5},
	}
	outline := BuildOutline("Index", 2, maps)
	if len(outline) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(outline))
	}
	if outline[0].Title != "Index" || outline[0].Page != 0 {
		t.Errorf("expected Index at page 0, got %+v", outline[0])
	}
	sections := outline[1]
	if !sections.Group || sections.Page != 2 {
		t.Errorf("expected group at first body page 2, got %+v", sections)
	}
	if len(sections.Children) != 2 || sections.Children[0].Page != 2 || sections.Children[1].Page != 4 {
		t.Errorf("expected children at pages 2 and 4, got %+v", sections.Children)
	}

	if got := BuildOutline("", 1, nil); len(got) != 1 || got[0].Title != "Index" {
		t.Errorf("expected lone Index node, got %+v", got)
	}
}
