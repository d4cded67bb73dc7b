package links

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Raw adds /Link annotations with explicit /Dest arrays to a rendered file.
type Raw struct {
	ctx    *model.Context
	height func(page int) float64
}

// OpenRaw parses a rendered document. height returns the height of a
// zero-based page, used to flip top-left rectangles into PDF space.
func OpenRaw(data []byte, height func(page int) float64) (*Raw, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("validate rendered document: %w", err)
	}
	if err := api.OptimizeContext(ctx); err != nil {
		return nil, fmt.Errorf("optimize rendered document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	return &Raw{ctx: ctx, height: height}, nil
}

func (r *Raw) Name() string { return "raw" }

func (r *Raw) Link(rec Record) error {
	if rec.FromPage < 0 || rec.FromPage >= r.ctx.PageCount || rec.ToPage < 0 || rec.ToPage >= r.ctx.PageCount {
		return fmt.Errorf("link %d -> %d outside %d pages", rec.FromPage, rec.ToPage, r.ctx.PageCount)
	}
	_, target, _, err := r.ctx.PageDict(rec.ToPage+1, false)
	if err != nil {
		return fmt.Errorf("target page: %w", err)
	}
	if target == nil {
		return errors.New("target page has no indirect reference")
	}
	page, _, _, err := r.ctx.PageDict(rec.FromPage+1, false)
	if err != nil {
		return fmt.Errorf("source page: %w", err)
	}
	if page == nil {
		return errors.New("source page missing")
	}

	h := r.height(rec.FromPage)
	if h <= 0 {
		return fmt.Errorf("unknown height for page %d", rec.FromPage)
	}
	rect := rec.Rect
	annot := types.Dict(map[string]types.Object{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Link"),
		"Rect":    types.NewNumberArray(rect.X, h-(rect.Y+rect.H), rect.X+rect.W, h-rect.Y),
		"Border":  types.NewIntegerArray(0, 0, 0),
		"Dest":    types.Array{*target, types.Name("Fit")},
	})
	ref, err := r.ctx.IndRefForNewObject(annot)
	if err != nil {
		return fmt.Errorf("add annotation: %w", err)
	}

	existing := page["Annots"]
	annots, err := r.ctx.DereferenceArray(existing)
	if err != nil {
		return fmt.Errorf("page annotations: %w", err)
	}
	annots = append(annots, *ref)

	// An indirect /Annots array is updated in place so other pages that
	// share it are not disturbed.
	if ir, ok := existing.(types.IndirectRef); ok {
		entry, found := r.ctx.FindTableEntryForIndRef(&ir)
		if !found {
			return fmt.Errorf("annotation array %s not found", ir)
		}
		entry.Object = annots
		return nil
	}
	page["Annots"] = annots
	return nil
}

// Bytes writes the annotated document.
func (r *Raw) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(r.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write annotated document: %w", err)
	}
	return buf.Bytes(), nil
}
