package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

const (
	backendName  = "openai"
	defaultModel = "gpt-4o-mini"
	maxTokens    = 2048
)

// Analyzer talks to any OpenAI-compatible chat completions endpoint that
// accepts image_url parts.
type Analyzer struct {
	apiKey  string
	model   string
	baseURL string

	clientOnce sync.Once
	client     *openai.Client
}

func NewAnalyzer(apiKey, model, baseURL string) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Analyzer{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: strings.TrimSpace(baseURL),
	}
}

func (a *Analyzer) Name() string { return backendName }

func (a *Analyzer) Generate(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if a.apiKey == "" {
		return "", vision.MissingKeyError(backendName)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(req.Image),
						Detail: openai.ImageURLDetailAuto,
					},
				},
				{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			},
		}},
	}
	// Reasoning models reject max_tokens and want max_completion_tokens.
	if strings.HasPrefix(a.model, "o1") || strings.HasPrefix(a.model, "o3") || strings.HasPrefix(a.model, "o4") || strings.HasPrefix(a.model, "gpt-5") {
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
	}

	resp, err := a.sdkClient().CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", vision.BackendError(backendName, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// sdkClient builds the OpenAI client on first use and reuses it afterwards.
func (a *Analyzer) sdkClient() *openai.Client {
	a.clientOnce.Do(func() {
		cfg := openai.DefaultConfig(a.apiKey)
		if a.baseURL != "" {
			cfg.BaseURL = a.baseURL
		}
		a.client = openai.NewClientWithConfig(cfg)
	})
	return a.client
}

func dataURL(img domain.EncodedImage) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MediaType, base64.StdEncoding.EncodeToString(img.Data))
}
