package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LISTEN_ADDR", "INFERENCE_BACKEND", "INFERENCE_TIMEOUT",
	"GEMINI_API_KEY", "GEMINI_MODEL", "CLAUDE_API_KEY", "CLAUDE_MODEL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"OLLAMA_HOST", "OLLAMA_MODEL", "PREVIEW_DIR",
	"LOG_LEVEL", "LOG_FILE", "LOG_FORMAT", ConfigFileEnv,
}

// isolate clears every config key and runs the test from an empty directory
// so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendGemini, cfg.InferenceBackend)
	assert.Equal(t, 60*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "claude-sonnet-4-5", cfg.ClaudeModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "llava", cfg.OllamaModel)
	assert.Empty(t, cfg.PreviewDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadCustomValues(t *testing.T) {
	isolate(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("INFERENCE_BACKEND", "Claude")
	t.Setenv("INFERENCE_TIMEOUT", "15s")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, BackendClaude, cfg.InferenceBackend)
	assert.Equal(t, 15*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("LISTEN_ADDR=:7000\nGEMINI_API_KEY=from-dotenv\n"), 0600))

	yamlPath := filepath.Join(dir, "petalscope.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"LISTEN_ADDR: \":6000\"\nGEMINI_API_KEY: from-yaml\nOLLAMA_MODEL: bakllava\nLOG_LEVEL: debug\n"), 0600))
	t.Setenv(ConfigFileEnv, yamlPath)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.ListenAddr, ".env beats YAML")
	assert.Equal(t, "from-dotenv", cfg.GeminiAPIKey)
	assert.Equal(t, "bakllava", cfg.OllamaModel, "YAML beats defaults")
	assert.Equal(t, "warn", cfg.LogLevel, "environment beats everything")
}

func TestLoadMissingConfigFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv(ConfigFileEnv, filepath.Join(dir, "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"INFERENCE_BACKEND": "bard"}},
		{"bad timeout", map[string]string{"INFERENCE_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"INFERENCE_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LISTEN_ADDR: [unclosed"), 0600))
	t.Setenv(ConfigFileEnv, path)

	_, err := Load()
	assert.Error(t, err)
}
