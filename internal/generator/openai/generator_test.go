package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)

	gen, err := New(Config{APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, gen)
}

func TestGenerateReturnsCompletionContent(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "generated text"}}]}`))
	}))
	defer server.Close()

	gen, err := New(Config{BaseURL: server.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}, zap.NewNop())
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "write some ad copy")
	require.NoError(t, err)
	require.Equal(t, "generated text", out)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	require.Equal(t, "write some ad copy", gotReq.Messages[0].Content)
}

func TestGenerateProviderErrorPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	gen, err := New(Config{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGenerateNonOKStatusWithoutErrorPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gen, err := New(Config{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

func TestGenerateEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	gen, err := New(Config{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no completion content")
}
