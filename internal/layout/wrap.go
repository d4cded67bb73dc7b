package layout

import "strings"

// Wrap breaks s into lines no wider than width using the given measure.
// Words are placed greedily. A word wider than width on its own is split
// between runes. The result is empty only when s has no words.
func Wrap(measure func(string) float64, s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	cur := ""
	for _, word := range words {
		if cur != "" {
			if candidate := cur + " " + word; measure(candidate) <= width+epsilon {
				cur = candidate
				continue
			}
			lines = append(lines, cur)
			cur = ""
		}
		if measure(word) <= width+epsilon {
			cur = word
			continue
		}
		parts := hardSplit(measure, word, width)
		lines = append(lines, parts[:len(parts)-1]...)
		cur = parts[len(parts)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// hardSplit cuts word into runs that each fit width. A single rune wider
// than width still gets its own run.
func hardSplit(measure func(string) float64, word string, width float64) []string {
	var (
		parts []string
		run   []rune
	)
	for _, r := range word {
		next := append(run, r)
		if len(run) > 0 && measure(string(next)) > width+epsilon {
			parts = append(parts, string(run))
			run = []rune{r}
			continue
		}
		run = next
	}
	if len(run) > 0 {
		parts = append(parts, string(run))
	}
	return parts
}
