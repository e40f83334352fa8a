package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

var testRequest = vision.Build(domain.EncodedImage{
	MediaType: "image/jpeg",
	Data:      []byte{0xFF, 0xD8},
})

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *Analyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	analyzer := NewAnalyzer("sk-test", "claude-sonnet-4-5")
	analyzer.baseURL = server.URL
	return analyzer
}

func TestClaudeGenerate(t *testing.T) {
	var gotKey string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type   string `json:"type"`
				Text   string `json:"text"`
				Source *struct {
					Type      string `json:"type"`
					MediaType string `json:"media_type"`
					Data      string `json:"data"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}

	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		resp := map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-5",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "# Your Flower\n\n- **Petals**: paper"},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 12},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	text, err := analyzer.Generate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "# Your Flower\n\n- **Petals**: paper", text)

	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "claude-sonnet-4-5", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	require.Len(t, gotBody.Messages[0].Content, 2)
	assert.Equal(t, "image", gotBody.Messages[0].Content[0].Type)
	require.NotNil(t, gotBody.Messages[0].Content[0].Source)
	assert.Equal(t, "image/jpeg", gotBody.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "/9g=", gotBody.Messages[0].Content[0].Source.Data)
	assert.Equal(t, vision.AnalysisPrompt, gotBody.Messages[0].Content[1].Text)
}

func TestClaudeGenerateRateLimited(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := analyzer.Generate(context.Background(), testRequest)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindService, domain.KindOf(err))
}

func TestClaudeGenerateNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	analyzer := NewAnalyzer("sk-test", "")
	analyzer.baseURL = url

	_, err := analyzer.Generate(context.Background(), testRequest)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindNetwork, domain.KindOf(err))
}

func TestClaudeGenerateMissingKey(t *testing.T) {
	_, err := NewAnalyzer("", "").Generate(context.Background(), testRequest)
	assert.ErrorIs(t, err, vision.ErrMissingAPIKey)
	assert.Equal(t, domain.ErrorKindService, domain.KindOf(err))
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/heic"))
}

func TestClaudeGenerateReusesClient(t *testing.T) {
	var calls int
	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := analyzer.Generate(context.Background(), testRequest)
	require.Error(t, err)
	first := analyzer.client
	require.NotNil(t, first)

	_, err = analyzer.Generate(context.Background(), testRequest)
	require.Error(t, err)
	assert.Same(t, first, analyzer.client)
	assert.Equal(t, 2, calls)
}
