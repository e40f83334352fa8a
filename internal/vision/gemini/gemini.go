package gemini

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

const (
	backendName  = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// Analyzer calls Gemini through the genai SDK with one inline image part and
// one text part.
type Analyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

func NewAnalyzer(apiKey, model string) *Analyzer {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultModel
	}
	return &Analyzer{
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (a *Analyzer) Name() string { return backendName }

func (a *Analyzer) Generate(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if a.apiKey == "" {
		return "", vision.MissingKeyError(backendName)
	}

	client, err := a.sdkClient(ctx)
	if err != nil {
		return "", vision.BackendError(backendName, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", vision.BackendError(backendName, err)
	}
	if resp == nil {
		return "", nil
	}

	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				out.WriteString(part.Text)
			}
		}
		break
	}
	return out.String(), nil
}

// sdkClient builds the genai client on first use and reuses it afterwards.
// A failed build is not cached.
func (a *Analyzer) sdkClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     a.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}
