package links

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/binder/internal/layout"
)

func TestResolve(t *testing.T) {
	rows := []layout.IndexRow{
		{Title: "A", BodyPage: 1, PageIndex: 0, Rect: layout.Rect{X: 72, Y: 100, W: 450, H: 18}},
		{Title: "B", BodyPage: 4, PageIndex: 1, Rect: layout.Rect{X: 72, Y: 72, W: 450, H: 36}},
	}
	recs := Resolve(rows, 2)
	if recs[0].ToPage != 2 || recs[1].ToPage != 5 {
		t.Errorf("expected targets 2 and 5, got %d and %d", recs[0].ToPage, recs[1].ToPage)
	}
	if recs[1].FromPage != 1 || recs[1].Rect != rows[1].Rect {
		t.Errorf("expected source page and rect carried over, got %+v", recs[1])
	}
}

type flaky struct {
	fail map[string]bool
	seen []string
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Link(rec Record) error {
	f.seen = append(f.seen, rec.Title)
	if f.fail[rec.Title] {
		return errors.New("no")
	}
	return nil
}

func TestApply_FallsThrough(t *testing.T) {
	recs := []Record{{Title: "A"}, {Title: "B"}, {Title: "C"}}
	first := &flaky{fail: map[string]bool{"B": true, "C": true}}
	second := &flaky{fail: map[string]bool{"C": true}}

	pending := Apply(first, recs)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending after first strategy, got %d", len(pending))
	}
	pending = Apply(second, Records(pending))
	if len(pending) != 1 || pending[0].Record.Title != "C" {
		t.Fatalf("expected only C pending, got %+v", pending)
	}
	if len(second.seen) != 2 {
		t.Errorf("expected second strategy to see only pending records, saw %v", second.seen)
	}
	if pending[0].Err == nil || pending[0].Err.Error() != "flaky: no" {
		t.Errorf("expected strategy-qualified error, got %v", pending[0].Err)
	}
}

type recorder struct {
	calls [][2]int
}

func (r *recorder) LinkInternal(from, to int, _ layout.Rect) error {
	r.calls = append(r.calls, [2]int{from, to})
	return nil
}

func TestInternal_Delegates(t *testing.T) {
	r := &recorder{}
	s := NewInternal(r)
	if err := s.Link(Record{FromPage: 0, ToPage: 3}); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 || r.calls[0] != [2]int{0, 3} {
		t.Errorf("expected one call 0->3, got %v", r.calls)
	}
}

func renderPages(t *testing.T, n int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := range n {
		pdf.AddPage()
		pdf.Text(72, 72, string(rune('A'+i)))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRaw_AddsLinkAnnotation(t *testing.T) {
	data := renderPages(t, 3)
	raw, err := OpenRaw(data, func(int) float64 { return 841.89 })
	if err != nil {
		t.Fatal(err)
	}
	rec := Record{FromPage: 0, ToPage: 2, Rect: layout.Rect{X: 72, Y: 100, W: 400, H: 20}}
	if err := raw.Link(rec); err != nil {
		t.Fatal(err)
	}
	if err := raw.Link(Record{FromPage: 0, ToPage: 9}); err == nil {
		t.Error("expected error for target outside the document")
	}
	out, err := raw.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := api.ReadContext(bytes.NewReader(out), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatal(err)
	}
	page, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		t.Fatal(err)
	}
	annots, err := ctx.DereferenceArray(page["Annots"])
	if err != nil {
		t.Fatal(err)
	}
	if len(annots) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(annots))
	}
	annot, err := ctx.DereferenceDict(annots[0])
	if err != nil {
		t.Fatal(err)
	}
	if st := annot.NameEntry("Subtype"); st == nil || *st != "Link" {
		t.Errorf("expected /Link subtype, got %v", st)
	}
	if _, ok := annot["Dest"]; !ok {
		t.Error("expected /Dest entry")
	}
}
