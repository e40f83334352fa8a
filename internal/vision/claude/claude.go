package claude

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

const (
	backendName  = "claude"
	defaultModel = "claude-sonnet-4-5"

	// A full reading with headings, three interpretations and a resource list
	// runs to roughly 800 tokens; 2048 leaves room for verbose answers.
	maxTokens = 2048
)

type Analyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	clientOnce sync.Once
	client     *anthropic.Client
}

func NewAnalyzer(apiKey, model string) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Analyzer{
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (a *Analyzer) Name() string { return backendName }

// buildMessages constructs the single user turn: image first, then the prompt.
func buildMessages(req domain.AnalysisRequest) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(anthropic.MessageContentSource{
				Type:      anthropic.MessagesContentSourceTypeBase64,
				MediaType: normaliseMIME(req.Image.MediaType),
				Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
			}),
			anthropic.NewTextMessageContent(req.Prompt),
		},
	}}
}

func (a *Analyzer) Generate(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if a.apiKey == "" {
		return "", vision.MissingKeyError(backendName)
	}

	resp, err := a.sdkClient().CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(req),
	})
	if err != nil {
		return "", vision.BackendError(backendName, err)
	}

	var parts []string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText && c.Text != nil {
			parts = append(parts, *c.Text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// sdkClient builds the Anthropic client on first use and reuses it afterwards.
func (a *Analyzer) sdkClient() *anthropic.Client {
	a.clientOnce.Do(func() {
		opts := []anthropic.ClientOption{anthropic.WithHTTPClient(a.httpClient)}
		if a.baseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(a.baseURL))
		}
		a.client = anthropic.NewClient(a.apiKey, opts...)
	})
	return a.client
}

// normaliseMIME maps media types to the values the Anthropic API accepts.
// The API accepts only jpeg, png, gif, and webp; anything else is sent as jpeg.
func normaliseMIME(mediaType string) string {
	switch mediaType {
	case "image/png", "image/gif", "image/webp":
		return mediaType
	default:
		return "image/jpeg"
	}
}
