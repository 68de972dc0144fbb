package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdpudding/factorio-llm/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const profilesYAML = `
ollama_url: http://localhost:11434
max_tool_iterations: 5

models:
  ministral:
    name: ministral-3:14b-instruct-2512-q8_0
    temperature: 0.15
    num_ctx: 16384
    num_predict: 2048
  qwen:
    name: qwen3:8b
    temperature: 0.6
    top_p: 0.95
    num_ctx: 8192
    num_predict: 1024
    think: true
active_model: ministral

rcon_host: 127.0.0.1
rcon_port: 27015
rcon_password: secret123
`

func TestLoadProfilesFormat(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, profilesYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "ministral-3:14b-instruct-2512-q8_0", cfg.Model)
	assert.Equal(t, "ministral", cfg.ActiveKey)
	assert.InDelta(t, 0.15, cfg.Options.Temperature, 1e-9)
	assert.InDelta(t, 1.0, cfg.Options.TopP, 1e-9, "top_p should default to 1.0")
	assert.Equal(t, 16384, cfg.Options.NumCtx)
	assert.Equal(t, 2048, cfg.Options.NumPredict)
	assert.Nil(t, cfg.Think, "absent think should stay unset")

	assert.Equal(t, 5, cfg.MaxToolIterations)
	assert.Equal(t, 20, cfg.MaxHistoryMessages, "default history bound")
	assert.Equal(t, 500, cfg.MaxPromptHistory, "default prompt history bound")

	assert.Equal(t, "127.0.0.1", cfg.RCONHost)
	assert.Equal(t, 27015, cfg.RCONPort)
	assert.Equal(t, "secret123", cfg.RCONPassword)

	assert.Equal(t, []string{"ministral", "qwen"}, cfg.ProfileKeys())
}

func TestLoadLegacyFormat(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
ollama_url: http://localhost:11434
model: llama3.1:8b
temperature: 0.7
top_p: 0.9
num_ctx: 4096
num_predict: 512
think: false
max_tool_iterations: 3
max_history_messages: 10
max_prompt_history: 0
rcon_host: 10.0.0.5
rcon_port: 27100
rcon_password: hunter2
`))
	require.NoError(t, err)

	assert.Equal(t, "llama3.1:8b", cfg.Model)
	assert.Empty(t, cfg.ActiveKey)
	assert.Empty(t, cfg.Profiles)
	assert.InDelta(t, 0.9, cfg.Options.TopP, 1e-9)
	require.NotNil(t, cfg.Think)
	assert.False(t, *cfg.Think, "explicit think: false must be kept")
	assert.Equal(t, 3, cfg.MaxToolIterations)
	assert.Equal(t, 10, cfg.MaxHistoryMessages)
	assert.Equal(t, 0, cfg.MaxPromptHistory, "explicit 0 means unlimited")
}

func TestLoadUnknownActiveProfile(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
ollama_url: http://localhost:11434
models:
  alpha:
    name: model-a
    temperature: 0.2
    num_ctx: 4096
    num_predict: 512
active_model: missing
rcon_host: 127.0.0.1
rcon_port: 27015
rcon_password: pw
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model profile "missing"`)
	assert.Contains(t, err.Error(), "alpha")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
ollama_url: http://localhost:11434
model: llama3.1:8b
rcon_host: 127.0.0.1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rcon_port")
	assert.Contains(t, err.Error(), "rcon_password")
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "env-key")

	cfg, err := config.Load(writeConfig(t, profilesYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestAPIKeyFileTakesPrecedence(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "env-key")

	cfg, err := config.Load(writeConfig(t, profilesYAML+"\nollama_api_key: file-key\n"))
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
}

func TestSwitchProfile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, profilesYAML))
	require.NoError(t, err)

	require.NoError(t, cfg.SwitchProfile("qwen"))
	assert.Equal(t, "qwen3:8b", cfg.Model)
	assert.Equal(t, "qwen", cfg.ActiveKey)
	assert.InDelta(t, 0.6, cfg.Options.Temperature, 1e-9)
	assert.InDelta(t, 0.95, cfg.Options.TopP, 1e-9)
	require.NotNil(t, cfg.Think)
	assert.True(t, *cfg.Think)

	err = cfg.SwitchProfile("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ministral, qwen")
}

func TestSwitchProfileLegacyConfig(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.SwitchProfile("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model profiles configured")
}

func TestLogValueHidesSecrets(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, profilesYAML+"\nollama_api_key: sk-very-secret\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("loaded", "config", cfg)

	out := buf.String()
	assert.True(t, strings.Contains(out, "rcon_host"), "summary fields should be logged")
	assert.False(t, strings.Contains(out, "secret123"), "password must never reach logs")
	assert.False(t, strings.Contains(out, "sk-very-secret"), "api key must never reach logs")
}
