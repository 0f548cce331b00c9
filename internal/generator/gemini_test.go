package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/config"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
)

func geminiServer(t *testing.T, status int, text string) (*httptest.Server, *geminiRequest) {
	t.Helper()
	captured := &geminiRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
			return
		}
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": text}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestClient(endpoint string) *GeminiClient {
	return NewGeminiClient(&config.GeneratorConfig{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-model",
		Timeout:  2 * time.Second,
	})
}

func TestGeminiPrompts(t *testing.T) {
	srv, captured := geminiServer(t, http.StatusOK, "1. Find someone who surfs\n- Find someone who knits\n\n* Find someone who codes\n4) Find someone who sings")
	client := newTestClient(srv.URL)

	prompts, err := client.Prompts(context.Background(), "fintech", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Find someone who surfs", "Find someone who knits", "Find someone who codes"}, prompts)
	require.Len(t, captured.Contents, 1)
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "fintech")
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "exactly 3")
}

func TestGeminiIcebreaker(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "\n\"I once biked across Spain!\"\nextra")
	client := newTestClient(srv.URL)

	text, err := client.Icebreaker(context.Background(), "biked across Spain")
	require.NoError(t, err)
	assert.Equal(t, "I once biked across Spain!", text)
}

func TestGeminiFollowUpQuestions(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "Why?\nHow?\nWhen?\nWhere?")
	client := newTestClient(srv.URL)

	questions, err := client.FollowUpQuestions(context.Background(), "I love surfing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Why?", "How?", "When?"}, questions)
}

func TestGeminiHTTPError(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusTooManyRequests, "")
	client := newTestClient(srv.URL)

	_, err := client.Prompts(context.Background(), "x", 2)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailed))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiEmptyCandidates(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "   ")
	client := newTestClient(srv.URL)

	_, err := client.Icebreaker(context.Background(), "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailed))
}

func TestGeminiMissingKey(t *testing.T) {
	client := NewGeminiClient(&config.GeneratorConfig{Endpoint: "http://127.0.0.1:1", Model: "m"})
	_, err := client.Prompts(context.Background(), "x", 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailed))
}

func TestGeminiUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).FollowUpQuestions(context.Background(), "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrGeneratorFailed))
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(&config.GeneratorConfig{Provider: "gemini"}))
	assert.Nil(t, New(&config.GeneratorConfig{Provider: "none", APIKey: "k"}))
	assert.NotNil(t, New(&config.GeneratorConfig{Provider: "gemini", APIKey: "k"}))
}

func TestParseList(t *testing.T) {
	got := parseList("  1. one\n2) two\n\n- three\n•  four \n\"five\"")
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, got)
	assert.Empty(t, parseList(strings.Repeat("\n", 3)))
}
