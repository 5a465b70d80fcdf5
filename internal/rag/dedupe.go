package rag

import (
	"strings"

	"github.com/xxxsen/notebookrag/internal/model"
)

// Dedupe collapses sources that share a chunk id or whose content is equal
// after normalization. The highest similarity instance of every group
// survives and survivors keep their relative input order.
func Dedupe(sources []model.RetrievedSource) []model.RetrievedSource {
	if len(sources) == 0 {
		return []model.RetrievedSource{}
	}
	parent := make([]int, len(sources))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	byID := make(map[string]int, len(sources))
	byContent := make(map[string]int, len(sources))
	for i, src := range sources {
		if j, ok := byID[src.ChunkID]; ok {
			union(j, i)
		} else {
			byID[src.ChunkID] = i
		}
		key := NormalizeContent(src.Content)
		if key == "" {
			continue
		}
		if j, ok := byContent[key]; ok {
			union(j, i)
		} else {
			byContent[key] = i
		}
	}

	best := make(map[int]int, len(sources))
	for i, src := range sources {
		root := find(i)
		cur, ok := best[root]
		if !ok || src.Similarity > sources[cur].Similarity {
			best[root] = i
		}
	}
	out := make([]model.RetrievedSource, 0, len(best))
	for i, src := range sources {
		if best[find(i)] == i {
			out = append(out, src)
		}
	}
	return out
}

// NormalizeContent lowercases text and collapses runs of whitespace.
func NormalizeContent(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
