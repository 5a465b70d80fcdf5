package rag

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

const (
	defaultChunkTokens   = 400
	defaultOverlapTokens = 80
)

// Piece is one passage cut from a document, ready to be embedded.
type Piece struct {
	Content  string
	Heading  string
	Position int
	Tokens   int
}

type Chunker struct {
	maxTokens     int
	overlapTokens int
}

func NewChunker(maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = defaultChunkTokens
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = defaultOverlapTokens
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens}
}

// Chunk splits markdown or plain text into passages. Level 1 and 2 headings
// start a new passage and are carried as context; consecutive text passages
// overlap by a few paragraphs.
func (c *Chunker) Chunk(ctx context.Context, markdown string) []Piece {
	logger := logutil.GetLogger(ctx)
	reader := text.NewReader([]byte(markdown))
	doc := goldmark.New().Parser().Parse(reader)
	source := reader.Source()

	var (
		pieces  []Piece
		parts   []string
		tokens  int
		heading string
		hasCode bool
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		body := strings.Join(parts, "\n\n")
		if heading != "" {
			body = "Heading: " + heading + "\n" + body
		}
		pieces = append(pieces, Piece{
			Content:  body,
			Heading:  heading,
			Position: len(pieces),
			Tokens:   estimateTokens(body),
		})
		if !hasCode && len(parts) > 1 {
			parts, tokens = c.overlap(parts)
		} else {
			parts, tokens = nil, 0
		}
		hasCode = false
	}
	add := func(txt string, n int) {
		if tokens > 0 && tokens+n > c.maxTokens {
			flush()
		}
		parts = append(parts, txt)
		tokens += n
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			txt := strings.TrimSpace(string(n.Text(source)))
			if n.Level <= 2 {
				flush()
				parts, tokens = nil, 0
				heading = txt
				continue
			}
			if txt != "" {
				add(txt, estimateTokens(txt))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var sb strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
			code := strings.TrimRight(sb.String(), "\n")
			if code == "" {
				continue
			}
			lang := ""
			if fenced, ok := n.(*ast.FencedCodeBlock); ok {
				lang = string(fenced.Language(source))
			}
			add("```"+lang+"\n"+code+"\n```", estimateTokens(code))
			hasCode = true
		default:
			txt := extractText(n, source)
			if txt == "" {
				continue
			}
			add(txt, estimateTokens(txt))
		}
	}
	flush()
	logger.Debug("chunking completed", zap.Int("size", len(markdown)), zap.Int("pieces", len(pieces)))
	return pieces
}

func (c *Chunker) overlap(parts []string) ([]string, int) {
	var kept []string
	total := 0
	for i := len(parts) - 1; i >= 1; i-- {
		t := estimateTokens(parts[i])
		if total+t > c.overlapTokens {
			break
		}
		total += t
		kept = append([]string{parts[i]}, kept...)
	}
	return kept, total
}

// estimateTokens counts words plus one token per non-ASCII rune, which
// tracks CJK text better than a pure word count.
func estimateTokens(s string) int {
	count := 0
	for _, r := range s {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(s))
	if count == 0 && len(s) > 0 {
		return 1
	}
	return count
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
