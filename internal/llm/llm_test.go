package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageAnalysisPrompt_IncludesContextAndCategories(t *testing.T) {
	prompt := ImageAnalysisPrompt("--- Page 1 ---\n\nOrders service")

	assert.True(t, strings.HasPrefix(prompt, "\nContext: --- Page 1 ---"))
	for _, category := range []string{
		"database diagrams",
		"API endpoints",
		"architecture diagrams",
		"sequence diagrams",
		"flowcharts",
		"UML diagrams",
		"any other type",
	} {
		assert.Contains(t, prompt, category)
	}
}

func TestNewAnthropicClient_MissingKey(t *testing.T) {
	_, err := NewAnthropicClient(AnthropicConfig{APIKey: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestAnthropicClient_AnalyzeImage(t *testing.T) {
	var captured struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content []struct {
				Type   string `json:"type"`
				Text   string `json:"text"`
				Source struct {
					Type      string `json:"type"`
					MediaType string `json:"media_type"`
					Data      string `json:"data"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected /v1/messages, got %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20240620",
			"content": [{"type": "text", "text": "Entity relationship diagram with 3 tables."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	analysis, err := client.AnalyzeImage(context.Background(), []byte("png-bytes"), "image/png", "page text")
	require.NoError(t, err)
	assert.Equal(t, "Entity relationship diagram with 3 tables.", analysis)

	assert.Equal(t, DefaultAnthropicModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "text", captured.Messages[0].Content[0].Type)
	assert.Contains(t, captured.Messages[0].Content[0].Text, "Context: page text")
	image := captured.Messages[0].Content[1]
	assert.Equal(t, "image", image.Type)
	assert.Equal(t, "base64", image.Source.Type)
	assert.Equal(t, "image/png", image.Source.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), image.Source.Data)
}

func TestAnthropicClient_AnalyzeImage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"Image does not match the provided media type"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.AnalyzeImage(context.Background(), []byte("jp2"), "image/jp2", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestOpenAIClient_Review(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("expected Bearer token in Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Looks good to proceed."}}]
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	review, err := client.Review(context.Background(), "--- Page 1 ---\n\nDesign")
	require.NoError(t, err)
	assert.Equal(t, "Looks good to proceed.", review)

	assert.Equal(t, DefaultReviewModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, ReviewSystemPrompt, captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "\n\n# HERE IS THE TECHNICAL DESIGN DOCUMENT TO REVIEW:\n--- Page 1 ---\n\nDesign", captured.Messages[1].Content)
}

func TestOpenAIClient_Review_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "model": "gpt-4o", "choices": []}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Review(context.Background(), "doc")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
