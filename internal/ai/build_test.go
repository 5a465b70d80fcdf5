package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/config"
)

type dimsProvider struct {
	dims int
	down bool
}

func (d *dimsProvider) Name() string { return "dims" }

func (d *dimsProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if d.down {
		return nil, errors.New("down")
	}
	return make([]float32, d.dims), nil
}

type recordingWrap struct {
	seen map[string][]int
}

type recordingEmbedder struct {
	next IEmbedder
	rec  *recordingWrap
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	v, err := r.next.Embed(ctx, text, taskType)
	if err == nil {
		r.rec.seen[r.next.ModelName()] = append(r.rec.seen[r.next.ModelName()], len(v))
	}
	return v, err
}

func (r *recordingEmbedder) ModelName() string { return r.next.ModelName() }

func TestBuildEmbedderWrapsEachMember(t *testing.T) {
	primary := &dimsProvider{dims: 768, down: true}
	backup := &dimsProvider{dims: 1536}
	RegisterEmbed("dims-primary", func(args interface{}) (IEmbedProvider, error) { return primary, nil })
	RegisterEmbed("dims-backup", func(args interface{}) (IEmbedProvider, error) { return backup, nil })

	rec := &recordingWrap{seen: map[string][]int{}}
	e, err := BuildEmbedder([]config.AIProviderConfig{
		{Provider: "dims-primary", Model: "small"},
		{Provider: "dims-backup", Model: "large"},
	}, func(next IEmbedder) IEmbedder { return &recordingEmbedder{next: next, rec: rec} })
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "q", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, v, 1536)

	primary.down = false
	v, err = e.Embed(context.Background(), "q", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, v, 768)

	for name, dims := range rec.seen {
		for _, d := range dims {
			require.Equal(t, dims[0], d, "model %s answered with mixed dimensions", name)
		}
	}
	require.Len(t, rec.seen, 2)
}

func TestBuildEmbedderSingleEntryIsNotGrouped(t *testing.T) {
	RegisterEmbed("dims-single", func(args interface{}) (IEmbedProvider, error) { return &dimsProvider{dims: 4}, nil })
	e, err := BuildEmbedder([]config.AIProviderConfig{{Provider: "dims-single", Model: "m"}})
	require.NoError(t, err)
	_, grouped := e.(*groupEmbedder)
	require.False(t, grouped)
}
