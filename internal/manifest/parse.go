// Package manifest reads section declarations out of a markdown README and
// writes the generated page-map block back into it.
package manifest

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"github.com/dgallion1/binder/internal/inventory"
)

const (
	BeginMarker = "<!-- BEGIN MASTER INDEX -->"
	EndMarker   = "<!-- END MASTER INDEX -->"

	DefaultTitle = "Programme"

	downloadLabel = "download pdf"
	majorsPrefix  = "major subjects"
)

// Link is a labelled URL found in the manifest.
type Link struct {
	Text string
	URL  string
}

// Cover is the front matter taken from the manifest's top block.
type Cover struct {
	Title         string
	Intro         []string
	MajorsHeading string
	Majors        []string
	Helpful       *Link
}

// Manifest is the parsed README.
type Manifest struct {
	Cover Cover
	Items []inventory.Item
}

// Options controls which links count as sources.
type Options struct {
	// AllowLocal accepts relative .pdf paths as section sources in addition
	// to http(s) URLs.
	AllowLocal bool
}

// Parse extracts the cover and section items from src. Anything at or after
// the generated block's begin marker is ignored.
func Parse(src []byte, opts Options) *Manifest {
	if i := bytes.Index(src, []byte(BeginMarker)); i >= 0 {
		src = src[:i]
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	m := &Manifest{}
	var (
		inTop     = true
		introOpen bool
		majors    bool
		section   string
		hasSource bool
	)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := plainText(node, src)
			introOpen = false
			switch node.Level {
			case 1:
				if m.Cover.Title == "" && inTop {
					m.Cover.Title = title
					introOpen = true
				}
				majors, section = false, ""
			case 2:
				majors = inTop && strings.HasPrefix(strings.ToLower(title), majorsPrefix)
				if majors && m.Cover.MajorsHeading == "" {
					m.Cover.MajorsHeading = title
				}
				section = ""
			case 3:
				inTop, majors = false, false
				section, hasSource = title, false
			}
			continue
		case *ast.ThematicBreak:
			introOpen, majors = false, false
			continue
		case *ast.Paragraph:
			if introOpen && inTop {
				if t := plainText(node, src); t != "" {
					m.Cover.Intro = append(m.Cover.Intro, t)
				}
			}
		case *ast.List:
			if majors && inTop {
				for item := node.FirstChild(); item != nil; item = item.NextSibling() {
					if t := plainText(item, src); t != "" {
						m.Cover.Majors = append(m.Cover.Majors, t)
					}
				}
			}
		}

		for _, l := range links(n, src) {
			if inTop && m.Cover.Helpful == nil && isRemotePDF(l.URL) {
				helpful := l
				m.Cover.Helpful = &helpful
			}
			if section == "" || hasSource {
				continue
			}
			if !strings.Contains(strings.ToLower(l.Text), downloadLabel) {
				continue
			}
			if isRemotePDF(l.URL) || (opts.AllowLocal && isLocalPDF(l.URL)) {
				m.Items = append(m.Items, inventory.Item{Title: section, Locator: l.URL})
				hasSource = true
			}
		}
	}

	if m.Cover.Title == "" {
		m.Cover.Title = DefaultTitle
	}
	return m
}

// plainText flattens a node's inline content, dropping markup.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		if c.Kind() == ast.KindListItem && c != n {
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// links returns markdown, autolink and raw HTML anchors under n in order.
func links(n ast.Node, src []byte) []Link {
	var out []Link
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch l := c.(type) {
		case *ast.Link:
			out = append(out, Link{Text: plainText(l, src), URL: string(l.Destination)})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			u := string(l.URL(src))
			out = append(out, Link{Text: u, URL: u})
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			out = append(out, htmlAnchors(blockSource(l, src))...)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			// Inline <a> tags split into separate raw nodes around their
			// text, so the paragraph source is parsed as HTML instead.
			if hasRawHTML(l) {
				out = append(out, htmlAnchors(blockSource(l, src))...)
			}
		}
		return ast.WalkContinue, nil
	})
	return out
}

func hasRawHTML(n ast.Node) bool {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.RawHTML); ok {
			return true
		}
	}
	return false
}

func blockSource(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

func htmlAnchors(raw []byte) []Link {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	var out []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" {
					out = append(out, Link{Text: htmlText(n), URL: strings.TrimSpace(a.Val)})
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func htmlText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isRemotePDF(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" || u.Host == "" {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

func isLocalPDF(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}
