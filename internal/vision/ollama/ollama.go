package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

const backendName = "ollama"

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Analyzer calls a local Ollama server. No API key is involved.
type Analyzer struct {
	host   string
	model  string
	client *http.Client
}

func NewAnalyzer(host, model string) *Analyzer {
	return &Analyzer{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (a *Analyzer) Name() string { return backendName }

func (a *Analyzer) Generate(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  a.model,
		Prompt: req.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.Image.Data)},
		Stream: false,
	})
	if err != nil {
		return "", domain.NewUnknownError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", domain.NewUnknownError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", vision.BackendError(backendName, fmt.Errorf("failed to call ollama: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.NewServiceError(fmt.Sprintf("ollama returned status %d", resp.StatusCode), fmt.Errorf("%s", bytes.TrimSpace(errBody)))
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", vision.BackendError(backendName, fmt.Errorf("failed to decode response: %w", err))
	}
	if body.Error != "" {
		return "", domain.NewServiceError("ollama reported an error", fmt.Errorf("%s", body.Error))
	}

	return body.Response, nil
}
