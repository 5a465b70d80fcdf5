package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
)

func newStreamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.Equal(t, "system", req.Messages[0].Role)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func TestOpenAIStreamChat(t *testing.T) {
	srv := newStreamServer(t, []string{
		`: keep-alive`,
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"content":" world"}}]}`,
		`data: [DONE]`,
	})
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	var sb strings.Builder
	err = p.StreamChat(context.Background(), "m", "sys", []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}}, func(d string) error {
		sb.WriteString(d)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Hello world", sb.String())
}

func TestOpenAIStreamWithoutDoneFails(t *testing.T) {
	srv := newStreamServer(t, []string{`data: {"choices":[{"delta":{"content":"partial"}}]}`})
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	err = p.StreamChat(context.Background(), "m", "sys", nil, func(string) error { return nil })
	require.Error(t, err)
}

func TestOpenAIStreamErrorPayload(t *testing.T) {
	srv := newStreamServer(t, []string{`data: {"error":{"message":"quota"}}`})
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	err = p.StreamChat(context.Background(), "m", "sys", nil, func(string) error { return nil })
	require.ErrorContains(t, err, "quota")
}

func TestOpenAIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "m", "x", "")
	require.ErrorContains(t, err, "502")
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	vec, err := p.Embed(context.Background(), "m", "x", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestMissingAPIKeyUnavailable(t *testing.T) {
	p, err := newOpenRouterProvider(map[string]interface{}{})
	require.NoError(t, err)
	err = p.StreamChat(context.Background(), "m", "", nil, func(string) error { return nil })
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenRouterHeaders(t *testing.T) {
	var referer, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p, err := newOpenRouterProvider(map[string]interface{}{
		"api_key": "k", "base_url": srv.URL, "http_referer": "https://x", "x_title": "nb",
	})
	require.NoError(t, err)
	require.NoError(t, p.StreamChat(context.Background(), "m", "", nil, func(string) error { return nil }))
	require.Equal(t, "https://x", referer)
	require.Equal(t, "nb", title)
}

func TestRegistry(t *testing.T) {
	_, err := NewChatProvider("nope", nil)
	require.Error(t, err)
	_, err = NewChatProvider("", nil)
	require.Error(t, err)
	p, err := NewEmbedProvider(" OpenAI ", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())
}
