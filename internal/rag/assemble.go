package rag

import (
	"fmt"
	"strings"

	"github.com/xxxsen/notebookrag/internal/model"
)

const NoContextMarker = "No relevant context was found in the documents of this collection."

// Assemble renders sources as numbered blocks in the given order, under a
// header for each run of sources from the same file. The returned index
// map holds the citation number of every source.
func Assemble(sources []model.RetrievedSource) (string, []int) {
	if len(sources) == 0 {
		return NoContextMarker, []int{}
	}
	index := make([]int, len(sources))
	var sb strings.Builder
	lastFile := ""
	for i, src := range sources {
		index[i] = i + 1
		if src.FileName != "" && src.FileName != lastFile {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("## File: ")
			sb.WriteString(src.FileName)
			sb.WriteString("\n\n")
		} else if src.FileName == "" && lastFile != "" {
			sb.WriteString("\n## File: (unnamed)\n\n")
		}
		lastFile = src.FileName
		sb.WriteString(fmt.Sprintf("[Source %d]\n", i+1))
		sb.WriteString(strings.TrimSpace(src.Content))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n"), index
}
