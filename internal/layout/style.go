package layout

// Font selects a core font face.
type Font struct {
	Family string
	Style  string
	Size   float64
}

// Color is an RGB triple in 0..255.
type Color struct {
	R, G, B int
}

// Style holds every front-matter presentation choice. Units are points.
type Style struct {
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	Title         Font
	Body          Font
	MajorsHeading Font
	Header        Font
	Entry         Font
	Label         Font
	Footer        Font

	// LineHeight is a multiplier applied to a font's size.
	LineHeight float64

	TitleGap     float64
	ParagraphGap float64
	SectionGap   float64
	RuleGap      float64
	RuleWidth    float64
	RowPadding   float64
	LabelGap     float64
	BulletIndent float64
	Bullet       string

	HeaderSection string
	HeaderPage    string
	HelpfulPrefix string

	TextColor Color
	LinkColor Color
	RuleColor Color

	// Footer position, measured from the page's right and bottom edges.
	FooterRight  float64
	FooterBottom float64
}

// DefaultStyle is the standard front-matter look.
func DefaultStyle() Style {
	return Style{
		MarginTop:    72,
		MarginBottom: 72,
		MarginLeft:   72,
		MarginRight:  72,

		Title:         Font{Family: "Helvetica", Style: "B", Size: 24},
		Body:          Font{Family: "Helvetica", Size: 12},
		MajorsHeading: Font{Family: "Helvetica", Style: "B", Size: 14},
		Header:        Font{Family: "Helvetica", Style: "B", Size: 11},
		Entry:         Font{Family: "Helvetica", Size: 12},
		Label:         Font{Family: "Helvetica", Size: 12},
		Footer:        Font{Family: "Helvetica", Size: 9},

		LineHeight: 1.25,

		TitleGap:     18,
		ParagraphGap: 6,
		SectionGap:   14,
		RuleGap:      4,
		RuleWidth:    0.5,
		RowPadding:   2,
		LabelGap:     12,
		BulletIndent: 14,
		Bullet:       "•",

		HeaderSection: "Section",
		HeaderPage:    "Page",
		HelpfulPrefix: "Helpful: ",

		TextColor: Color{0, 0, 0},
		LinkColor: Color{0, 0, 160},
		RuleColor: Color{120, 120, 120},

		FooterRight:  36,
		FooterBottom: 18,
	}
}

func (s Style) lineHeight(f Font) float64 {
	lh := s.LineHeight
	if lh <= 0 {
		lh = 1
	}
	return f.Size * lh
}
