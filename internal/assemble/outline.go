package assemble

import "github.com/dgallion1/binder/internal/numbering"

// Bookmark is an outline node. Page is a zero-based physical page.
type Bookmark struct {
	Title    string     `json:"title"`
	Page     int        `json:"page"`
	Group    bool       `json:"group,omitempty"`
	Children []Bookmark `json:"children,omitempty"`
}

// BuildOutline returns the index node followed by a grouping node with one
// child per section. The group is omitted when there are no sections.
func BuildOutline(indexTitle string, indexPages int, maps []numbering.PageMap) []Bookmark {
	if indexTitle == "" {
		indexTitle = "Index"
	}
	outline := []Bookmark{{Title: indexTitle, Page: 0}}
	if len(maps) == 0 {
		return outline
	}
	sections := Bookmark{Title: "Sections", Page: indexPages, Group: true}
	for _, m := range maps {
		sections.Children = append(sections.Children, Bookmark{Title: m.Title, Page: m.StartAbs - 1})
	}
	return append(outline, sections)
}
