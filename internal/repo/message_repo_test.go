package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
)

func TestEncodeSourcesEmptyIsNull(t *testing.T) {
	v, err := encodeSources(nil)
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = encodeSources([]model.RetrievedSource{})
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestEncodeDecodeSources(t *testing.T) {
	in := []model.RetrievedSource{{ChunkID: "c1", Content: "alpha", Similarity: 0.9, FileName: "a.pdf"}}
	v, err := encodeSources(in)
	require.NoError(t, err)
	out, err := decodeSources([]byte(v.(string)))
	require.NoError(t, err)
	require.Equal(t, in, out)

	out, err = decodeSources(nil)
	require.NoError(t, err)
	require.Nil(t, out)
}
