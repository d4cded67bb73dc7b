// Package layout paginates the front-matter index.
//
// Coordinates are top-left based points, matching the canvas. Row
// rectangles are reported in the same space so link wiring can convert
// them later without re-measuring anything.
package layout

import (
	"errors"
	"fmt"
	"strconv"
)

const epsilon = 1e-6

// Canvas is the drawing surface. *gofpdf.Fpdf satisfies it.
type Canvas interface {
	AddPage()
	GetPageSize() (width, height float64)
	SetFont(family, style string, size float64)
	SetTextColor(r, g, b int)
	SetDrawColor(r, g, b int)
	SetLineWidth(width float64)
	GetStringWidth(s string) float64
	Text(x, y float64, txt string)
	Line(x1, y1, x2, y2 float64)
	LinkString(x, y, w, h float64, link string)
}

// Link is a labelled external URL.
type Link struct {
	Text string
	URL  string
}

// Cover is the front-matter content drawn above the entries.
type Cover struct {
	Title         string
	Intro         []string
	MajorsHeading string
	Majors        []string
	Helpful       *Link
}

// Entry is a navigable index line. BodyPage is body-relative.
type Entry struct {
	Title    string
	BodyPage int
}

// Rect is a top-left based rectangle.
type Rect struct {
	X, Y, W, H float64
}

// IndexRow is a placed entry. All of its lines sit on page PageIndex.
type IndexRow struct {
	Title     string
	BodyPage  int
	PageIndex int
	Rect      Rect
	Lines     []string
}

// IndexLayout is the measured result of pagination.
type IndexLayout struct {
	PageCount int
	Rows      []IndexRow
}

// Options tunes rendering.
type Options struct {
	// Translate converts UTF-8 text to the canvas encoding before it is
	// measured or drawn. Nil means identity.
	Translate func(string) string
}

type pager struct {
	c     Canvas
	st    Style
	tr    func(string) string
	pages int
	y     float64
	w, h  float64
}

// Paginate draws the cover and entries onto c, adding pages as needed, and
// returns where every entry landed. It always produces at least one page.
func Paginate(c Canvas, cover Cover, entries []Entry, st Style, opts Options) (*IndexLayout, error) {
	p := &pager{c: c, st: st, tr: opts.Translate}
	if p.tr == nil {
		p.tr = func(s string) string { return s }
	}
	p.w, p.h = c.GetPageSize()
	if p.contentWidth() <= 0 || p.bottom() <= p.top() {
		return nil, fmt.Errorf("page %.0fx%.0f leaves no content area", p.w, p.h)
	}
	for _, f := range []Font{st.Title, st.Body, st.Header, st.Entry, st.Label} {
		if f.Size <= 0 {
			return nil, errors.New("font sizes must be positive")
		}
	}

	c.SetTextColor(st.TextColor.R, st.TextColor.G, st.TextColor.B)
	c.SetDrawColor(st.RuleColor.R, st.RuleColor.G, st.RuleColor.B)
	c.SetLineWidth(st.RuleWidth)

	p.drawCover(cover)

	out := &IndexLayout{}
	if len(entries) > 0 {
		rows, err := p.drawEntries(entries)
		if err != nil {
			return nil, err
		}
		out.Rows = rows
	}
	if p.pages == 0 {
		p.newPage()
	}
	out.PageCount = p.pages
	return out, nil
}

func (p *pager) top() float64          { return p.st.MarginTop }
func (p *pager) bottom() float64       { return p.h - p.st.MarginBottom }
func (p *pager) left() float64         { return p.st.MarginLeft }
func (p *pager) right() float64        { return p.w - p.st.MarginRight }
func (p *pager) contentWidth() float64 { return p.right() - p.left() }

func (p *pager) newPage() {
	p.c.AddPage()
	p.pages++
	p.w, p.h = p.c.GetPageSize()
	p.y = p.top()
}

// reserve makes sure a unit of height h can be drawn at the cursor. A unit
// that fits exactly stays. A unit taller than a whole page is drawn at the
// top of a fresh page rather than looping.
func (p *pager) reserve(h float64) {
	if p.pages == 0 {
		p.newPage()
		return
	}
	if p.y+h > p.bottom()+epsilon && p.y > p.top()+epsilon {
		p.newPage()
	}
}

func (p *pager) gap(g float64) {
	if p.pages > 0 {
		p.y += g
	}
}

func (p *pager) font(f Font) {
	p.c.SetFont(f.Family, f.Style, f.Size)
}

func (p *pager) measure(s string) float64 {
	return p.c.GetStringWidth(p.tr(s))
}

// text draws s in a line box whose top is at top.
func (p *pager) text(x, top float64, f Font, s string) {
	lh := p.st.lineHeight(f)
	baseline := top + (lh+f.Size*0.7)/2
	p.c.Text(x, baseline, p.tr(s))
}

// lines draws wrapped text one line at a time, breaking pages between lines.
func (p *pager) lines(f Font, s string, indent float64, centered bool) {
	p.font(f)
	lh := p.st.lineHeight(f)
	width := p.contentWidth() - indent
	for _, line := range Wrap(p.measure, s, width) {
		p.reserve(lh)
		x := p.left() + indent
		if centered {
			x = p.left() + (p.contentWidth()-p.measure(line))/2
		}
		p.text(x, p.y, f, line)
		p.y += lh
	}
}

func (p *pager) drawCover(cover Cover) {
	st := p.st
	if cover.Title != "" {
		p.lines(st.Title, cover.Title, 0, true)
		p.gap(st.TitleGap)
	}
	for _, para := range cover.Intro {
		p.lines(st.Body, para, 0, false)
		p.gap(st.ParagraphGap)
	}
	if len(cover.Majors) > 0 {
		p.gap(st.SectionGap)
		if cover.MajorsHeading != "" {
			p.lines(st.MajorsHeading, cover.MajorsHeading, 0, false)
			p.gap(st.ParagraphGap)
		}
		for _, m := range cover.Majors {
			p.bullet(m)
		}
	}
	if cover.Helpful != nil && cover.Helpful.URL != "" {
		p.gap(st.SectionGap)
		p.helpful(*cover.Helpful)
	}
}

func (p *pager) bullet(item string) {
	f := p.st.Body
	p.font(f)
	lh := p.st.lineHeight(f)
	for i, line := range Wrap(p.measure, item, p.contentWidth()-p.st.BulletIndent) {
		p.reserve(lh)
		if i == 0 && p.st.Bullet != "" {
			p.text(p.left(), p.y, f, p.st.Bullet)
		}
		p.text(p.left()+p.st.BulletIndent, p.y, f, line)
		p.y += lh
	}
}

func (p *pager) helpful(link Link) {
	st := p.st
	f := st.Body
	p.font(f)
	lh := st.lineHeight(f)
	label := link.Text
	if label == "" {
		label = link.URL
	}
	p.c.SetTextColor(st.LinkColor.R, st.LinkColor.G, st.LinkColor.B)
	for _, line := range Wrap(p.measure, st.HelpfulPrefix+label, p.contentWidth()) {
		p.reserve(lh)
		p.text(p.left(), p.y, f, line)
		p.c.LinkString(p.left(), p.y, p.measure(line), lh, link.URL)
		p.y += lh
	}
	p.c.SetTextColor(st.TextColor.R, st.TextColor.G, st.TextColor.B)
}

func (p *pager) drawEntries(entries []Entry) ([]IndexRow, error) {
	st := p.st
	labels := make([]string, len(entries))
	p.font(st.Label)
	labelW := p.measure(st.HeaderPage)
	for i, e := range entries {
		labels[i] = strconv.Itoa(e.BodyPage)
		if w := p.measure(labels[i]); w > labelW {
			labelW = w
		}
	}

	avail := p.contentWidth() - labelW - st.LabelGap
	if avail <= 0 {
		return nil, fmt.Errorf("page labels leave no room for titles (%.1fpt wide)", labelW)
	}

	p.font(st.Entry)
	lhEntry := st.lineHeight(st.Entry)
	wrapped := make([][]string, len(entries))
	for i, e := range entries {
		lines := Wrap(p.measure, e.Title, avail)
		if len(lines) == 0 {
			lines = []string{""}
		}
		wrapped[i] = lines
	}
	rowHeight := func(i int) float64 {
		return float64(len(wrapped[i]))*lhEntry + 2*st.RowPadding
	}

	p.gap(st.SectionGap)
	p.header(rowHeight(0))

	rows := make([]IndexRow, len(entries))
	for i, e := range entries {
		h := rowHeight(i)
		p.reserve(h)
		top := p.y

		p.font(st.Entry)
		for j, line := range wrapped[i] {
			p.text(p.left(), top+st.RowPadding+float64(j)*lhEntry, st.Entry, line)
		}
		p.font(st.Label)
		last := top + st.RowPadding + float64(len(wrapped[i])-1)*lhEntry
		p.text(p.right()-p.measure(labels[i]), last, st.Label, labels[i])

		rows[i] = IndexRow{
			Title:     e.Title,
			BodyPage:  e.BodyPage,
			PageIndex: p.pages - 1,
			Rect:      Rect{X: p.left(), Y: top, W: p.contentWidth(), H: h},
			Lines:     wrapped[i],
		}
		p.y += h
	}
	return rows, nil
}

// header draws the rule-delimited column header. It is kept on the same
// page as the first row.
func (p *pager) header(firstRow float64) {
	st := p.st
	lh := st.lineHeight(st.Header)
	h := lh + 2*st.RuleGap
	p.reserve(h + firstRow)

	top := p.y
	p.c.Line(p.left(), top, p.right(), top)
	p.font(st.Header)
	p.text(p.left(), top+st.RuleGap, st.Header, st.HeaderSection)
	p.text(p.right()-p.measure(st.HeaderPage), top+st.RuleGap, st.Header, st.HeaderPage)
	p.c.Line(p.left(), top+h, p.right(), top+h)
	p.y = top + h
}
