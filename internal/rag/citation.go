package rag

import (
	"regexp"
	"strconv"
)

var citationRe = regexp.MustCompile(`\[(\d{1,4})\]`)

// ExtractCitations returns the bracket numbers cited in text, in order of
// first appearance.
func ExtractCitations(text string) []int {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	seen := make(map[int]struct{}, len(matches))
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// InvalidCitations returns the cited numbers outside 1..sourceCount.
func InvalidCitations(text string, sourceCount int) []int {
	var bad []int
	for _, n := range ExtractCitations(text) {
		if n < 1 || n > sourceCount {
			bad = append(bad, n)
		}
	}
	return bad
}
