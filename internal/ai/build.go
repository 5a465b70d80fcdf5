package ai

import (
	"fmt"

	"github.com/xxxsen/notebookrag/internal/config"
)

// BuildStreamer creates the configured generation providers as one
// fallback group.
func BuildStreamer(items []config.AIProviderConfig) (IStreamer, error) {
	entries := make([]StreamerEntry, 0, len(items))
	for i, item := range items {
		p, err := NewChatProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init generator #%d: %w", i, err)
		}
		entries = append(entries, StreamerEntry{Name: entryName(item), Streamer: NewStreamer(p, item.Model)})
	}
	if len(entries) == 1 {
		return entries[0].Streamer, nil
	}
	return NewGroupStreamer(entries), nil
}

// EmbedderWrapper decorates one provider embedder, e.g. with a cache.
type EmbedderWrapper func(IEmbedder) IEmbedder

// BuildEmbedder creates the configured embedding providers as one fallback
// group. Wrappers apply to each member rather than the group: members may
// produce vectors of different dimensions, so anything keyed by model name
// must see the member that actually answered.
func BuildEmbedder(items []config.AIProviderConfig, wrappers ...EmbedderWrapper) (IEmbedder, error) {
	entries := make([]EmbedderEntry, 0, len(items))
	for i, item := range items {
		p, err := NewEmbedProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedder #%d: %w", i, err)
		}
		e := NewEmbedder(p, item.Model)
		for _, wrap := range wrappers {
			e = wrap(e)
		}
		entries = append(entries, EmbedderEntry{Name: entryName(item), Embedder: e})
	}
	if len(entries) == 1 {
		return entries[0].Embedder, nil
	}
	return NewGroupEmbedder(entries), nil
}

func entryName(item config.AIProviderConfig) string {
	if item.Name != "" {
		return item.Name
	}
	return item.Provider + ":" + item.Model
}
