package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// ConfigFileEnv names the environment variable holding an optional YAML file
// of the same keys.
const ConfigFileEnv = "PETALSCOPE_CONFIG"

type Config struct {
	ListenAddr       string
	InferenceBackend string
	InferenceTimeout time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	ClaudeAPIKey     string
	ClaudeModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OllamaHost       string
	OllamaModel      string
	PreviewDir       string
	LogLevel         string
	LogFile          string
	LogFormat        string
}

// source resolves a key from the environment, then .env, then the YAML file.
type source struct {
	dotenv map[string]string
	file   map[string]string
}

// Load reads configuration from the process environment, a .env file in the
// working directory, and the YAML file named by PETALSCOPE_CONFIG, in that
// order of precedence. A missing .env is fine; a PETALSCOPE_CONFIG that names
// a missing file is an error.
func Load() (*Config, error) {
	src := source{}

	dotenv, err := godotenv.Read(".env")
	switch {
	case err == nil:
		src.dotenv = dotenv
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if path := src.get(ConfigFileEnv, ""); path != "" {
		file, err := readYAML(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	timeout, err := time.ParseDuration(src.get("INFERENCE_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid INFERENCE_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid INFERENCE_TIMEOUT: must be positive, got %s", timeout)
	}

	cfg := &Config{
		ListenAddr:       src.get("LISTEN_ADDR", ":8080"),
		InferenceBackend: strings.ToLower(src.get("INFERENCE_BACKEND", BackendGemini)),
		InferenceTimeout: timeout,
		GeminiAPIKey:     src.get("GEMINI_API_KEY", ""),
		GeminiModel:      src.get("GEMINI_MODEL", "gemini-2.5-flash"),
		ClaudeAPIKey:     src.get("CLAUDE_API_KEY", ""),
		ClaudeModel:      src.get("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OpenAIAPIKey:     src.get("OPENAI_API_KEY", ""),
		OpenAIModel:      src.get("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    src.get("OPENAI_BASE_URL", ""),
		OllamaHost:       src.get("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      src.get("OLLAMA_MODEL", "llava"),
		PreviewDir:       src.get("PREVIEW_DIR", ""),
		LogLevel:         src.get("LOG_LEVEL", "info"),
		LogFile:          src.get("LOG_FILE", ""),
		LogFormat:        src.get("LOG_FORMAT", "json"),
	}

	switch cfg.InferenceBackend {
	case BackendGemini, BackendClaude, BackendOpenAI, BackendOllama:
	default:
		return nil, fmt.Errorf("unknown INFERENCE_BACKEND %q", cfg.InferenceBackend)
	}
	return cfg, nil
}

func (s source) get(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	if val, exists := s.dotenv[key]; exists {
		return val
	}
	if val, exists := s.file[key]; exists {
		return val
	}
	return defaultVal
}

func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var out map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return out, nil
}
