package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/manifest"
	"github.com/dgallion1/binder/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// FormatSummary renders the build box and the page map table.
func FormatSummary(w io.Writer, res *pipeline.Result) {
	status := successStyle.Render("written")
	if !res.Written {
		status = warnStyle.Render("dry run")
	}
	head := fmt.Sprintf("%s %s\n%s %s (%s)\n%s %d index + %d body = %d\n%s %d of %d rows linked",
		dimStyle.Render("Title:"), titleStyle.Render(res.Title),
		dimStyle.Render("Output:"), res.ArtifactPath, status,
		dimStyle.Render("Pages:"), res.IndexPages, res.BodyPages, res.TotalPages,
		dimStyle.Render("Links:"), res.LinkedRows, len(res.PageMap),
	)
	fmt.Fprintln(w, boxStyle.Render(head))

	rows := make([][3]string, len(res.PageMap))
	width := len("Section")
	for i, m := range res.PageMap {
		span := fmt.Sprintf("%d–%d", m.StartBody, m.EndBody)
		if m.StartBody == m.EndBody {
			span = fmt.Sprintf("%d", m.StartBody)
		}
		rows[i] = [3]string{m.Title, span, fmt.Sprintf("#page=%d", m.StartAbs)}
		width = max(width, lipgloss.Width(m.Title))
	}
	cell := lipgloss.NewStyle().Width(width + 2)
	fmt.Fprintln(w, dimStyle.Render(cell.Render("Section")+"Body pages   Link"))
	for _, r := range rows {
		fmt.Fprintln(w, cell.Render(r[0])+lipgloss.NewStyle().Width(13).Render(r[1])+dimStyle.Render(r[2]))
	}
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Size:"), manifest.HumanSize(res.SizeBytes))

	if len(res.Diagnostics) > 0 {
		FormatDiagnostics(w, res.Diagnostics)
	}
}

// FormatDiagnostics lists degradations grouped by kind.
func FormatDiagnostics(w io.Writer, diags diag.List) {
	counts := diags.Counts()
	var parts []string
	for _, k := range []diag.Kind{diag.KindRetrieval, diag.KindMalformedSource, diag.KindPageImport, diag.KindOverlayMerge, diag.KindLinkWiring} {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d diagnostics (%s)", len(diags), strings.Join(parts, ", "))))
	for _, d := range diags {
		fmt.Fprintln(w, "  "+warnStyle.Render("!")+" "+d.String())
	}
}

// unifiedDiff returns an a/b patch of the manifest change, or "" when the
// texts are equal.
func unifiedDiff(name, before, after string) string {
	if before == after {
		return ""
	}
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n(diff unavailable: %v)\n", name, name, err)
	}
	return s
}
