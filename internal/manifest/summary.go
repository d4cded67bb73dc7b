package manifest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/binder/internal/numbering"
)

// Summary is the content of the generated block.
type Summary struct {
	// ArtifactLink is the artifact path relative to the manifest, slash separated.
	ArtifactLink string
	SizeBytes    int64
	Updated      time.Time
	Entries      []numbering.PageMap
}

// RenderSummary renders the block, markers included.
func RenderSummary(s Summary) string {
	lines := []string{
		BeginMarker,
		"",
		"## Master PDF",
		fmt.Sprintf("- 📘 **[Download Master PDF](%s)** (%s)", s.ArtifactLink, HumanSize(s.SizeBytes)),
		"- _Index pages are unnumbered; body pages start at 1._",
		fmt.Sprintf("- _Last updated: %s_", s.Updated.UTC().Format("2006-01-02 15:04 UTC")),
		"",
		"### Page map (body numbering)",
	}
	if len(s.Entries) == 0 {
		lines = append(lines, "- *(no PDFs found in manifest)*")
	}
	for _, e := range s.Entries {
		span := fmt.Sprintf("pp. %d–%d", e.StartBody, e.EndBody)
		if e.StartBody == e.EndBody {
			span = fmt.Sprintf("p. %d", e.StartBody)
		}
		lines = append(lines, fmt.Sprintf("- **%s** — %s (open: [p.%d](%s#page=%d))",
			e.Title, span, e.StartBody, s.ArtifactLink, e.StartAbs))
	}
	lines = append(lines, "", EndMarker)
	return strings.Join(lines, "\n")
}

// Rewrite replaces the existing generated block in md with block, or
// appends block after a rule when md has none. Applying the same block
// twice gives the same result as applying it once.
func Rewrite(md, block string) string {
	if b := strings.Index(md, BeginMarker); b >= 0 {
		if e := strings.Index(md[b:], EndMarker); e >= 0 {
			end := b + e + len(EndMarker)
			return md[:b] + block + md[end:]
		}
	}
	sep := "\n\n---\n\n"
	if strings.HasSuffix(md, "\n") {
		sep = "\n---\n\n"
	}
	return md + sep + block + "\n"
}

// HumanSize formats n bytes with one decimal and a binary unit.
func HumanSize(n int64) string {
	f := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if f < 1024 {
			return fmt.Sprintf("%.1f %s", f, unit)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f TB", f)
}

var pageMapLine = regexp.MustCompile(`^- \*\*(.+)\*\* — pp?\. (\d+)(?:–(\d+))? \(open: \[p\.\d+\]\([^)#]*#page=(\d+)\)\)$`)

// ReadPageMap recovers the page map recorded in md's generated block.
// It reports false when md has no block.
func ReadPageMap(md string) ([]numbering.PageMap, bool) {
	b := strings.Index(md, BeginMarker)
	if b < 0 {
		return nil, false
	}
	block := md[b:]
	if e := strings.Index(block, EndMarker); e >= 0 {
		block = block[:e]
	}

	var out []numbering.PageMap
	for _, line := range strings.Split(block, "\n") {
		m := pageMapLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		start, _ := strconv.Atoi(m[2])
		end := start
		if m[3] != "" {
			end, _ = strconv.Atoi(m[3])
		}
		abs, _ := strconv.Atoi(m[4])
		out = append(out, numbering.PageMap{
			Title:     m[1],
			StartBody: start,
			EndBody:   end,
			StartAbs:  abs,
			EndAbs:    abs + end - start,
		})
	}
	return out, true
}
