package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/model"
)

type StreamerEntry struct {
	Name     string
	Streamer IStreamer
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupStreamer struct {
	items []StreamerEntry
}

// NewGroupStreamer tries streamers in order. A streamer that fails after
// emitting text is not retried on the next one, so callers never see two
// partial answers spliced together.
func NewGroupStreamer(items []StreamerEntry) IStreamer {
	if len(items) == 0 {
		return nil
	}
	return &groupStreamer{items: items}
}

func (g *groupStreamer) Stream(ctx context.Context, system string, msgs []model.ChatMessage, onDelta DeltaFunc) error {
	var lastErr error
	for i, item := range g.items {
		if item.Streamer == nil {
			continue
		}
		emitted := false
		err := item.Streamer.Stream(ctx, system, msgs, func(delta string) error {
			emitted = true
			return onDelta(delta)
		})
		if err == nil {
			return nil
		}
		if emitted || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return err
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("streamer failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("streamer not configured")
	}
	return lastErr
}

func (g *groupStreamer) ModelName() string {
	return joinNames(len(g.items), func(i int) string { return g.items[i].Name })
}

type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	return joinNames(len(g.items), func(i int) string { return g.items[i].Name })
}

func joinNames(n int, name func(int) string) string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if v := name(i); v != "" {
			names = append(names, v)
		}
	}
	return strings.Join(names, "|")
}
