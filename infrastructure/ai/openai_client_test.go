package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartbot/domain/entities"

	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
}

// completionServer answers every chat completion with content and records the requests
func completionServer(t *testing.T, content string, status int) (*httptest.Server, *[]chatRequest) {
	t.Helper()
	var seen []chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error": {"message": "boom", "type": "server_error"}}`)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newTestClient(t *testing.T, srv *httptest.Server) *OpenAIClient {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c, err := NewOpenAIClient(Options{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/",
		Timeout:        5 * time.Second,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	}, logger)
	require.NoError(t, err)
	return c
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Options{}, logrus.New())
	assert.Error(t, err)
}

func TestParseIntent(t *testing.T) {
	srv, seen := completionServer(t, "```json\n{\"website\": \"https://www.amazon.com\", \"search\": \"headphones\"}\n```", http.StatusOK)
	c := newTestClient(t, srv)

	intent, err := c.ParseIntent(context.Background(), "Search headphones on Amazon")

	require.NoError(t, err)
	assert.Equal(t, entities.Intent{Website: "https://www.amazon.com", Search: "headphones"}, intent)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, DefaultModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, intentInstruction, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Search headphones on Amazon", req.Messages[1].Content)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.2, *req.Temperature, 1e-9)
}

func TestParseIntent_Unparseable(t *testing.T) {
	srv, _ := completionServer(t, "I can help you shop for headphones!", http.StatusOK)
	c := newTestClient(t, srv)

	_, err := c.ParseIntent(context.Background(), "Search headphones on Amazon")

	assert.ErrorIs(t, err, entities.ErrIntentParse)
}

func TestParseIntent_ServerError(t *testing.T) {
	srv, _ := completionServer(t, "", http.StatusInternalServerError)
	c := newTestClient(t, srv)

	_, err := c.ParseIntent(context.Background(), "Search headphones on Amazon")

	require.Error(t, err)
	assert.NotErrorIs(t, err, entities.ErrIntentParse)
}

func TestClassifySearchField(t *testing.T) {
	srv, seen := completionServer(t, "  Yes\n", http.StatusOK)
	c := newTestClient(t, srv)

	verdict, err := c.ClassifySearchField(context.Background(), "Search Amazon\nAll departments")

	require.NoError(t, err)
	assert.Equal(t, "Yes", verdict)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "Text near input: \"Search Amazon\nAll departments\"\nIs this a search bar on a shopping site? Reply yes or no.", req.Messages[0].Content)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
}
