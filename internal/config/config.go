// Package config loads the bridge configuration from YAML.
//
// Two layouts are accepted: the model-profile layout (a models: map plus
// active_model: naming the one in use) and the flat legacy layout with the
// model settings at the top level. Profile configs can switch the active
// model at runtime.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// CloudAPIURL is the Ollama cloud endpoint. No /api suffix; the chat
// client appends its own paths.
const CloudAPIURL = "https://ollama.com"

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config.yaml"

// DefaultMaxPromptHistory bounds the prompt history file; 0 keeps it
// unlimited.
const DefaultMaxPromptHistory = 500

// Profile is one named model entry in the profile layout. TopP and Think
// are pointers so an absent key can be told apart from an explicit zero.
type Profile struct {
	Name        string   `yaml:"name"`
	Temperature float64  `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	NumCtx      int      `yaml:"num_ctx"`
	NumPredict  int      `yaml:"num_predict"`
	Think       *bool    `yaml:"think"`
}

// Config is the loaded runtime configuration.
type Config struct {
	OllamaURL string
	Model     string
	Options   domain.ModelOptions
	Think     *bool
	APIKey    string

	MaxToolIterations  int
	MaxHistoryMessages int
	MaxPromptHistory   int

	RCONHost     string
	RCONPort     int
	RCONPassword string

	Profiles  map[string]Profile
	ActiveKey string
}

// fileConfig covers both accepted layouts; which one applies is decided
// after unmarshalling.
type fileConfig struct {
	OllamaURL   string             `yaml:"ollama_url"`
	APIKey      string             `yaml:"ollama_api_key"`
	Models      map[string]Profile `yaml:"models"`
	ActiveModel string             `yaml:"active_model"`

	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	NumCtx      int      `yaml:"num_ctx"`
	NumPredict  int      `yaml:"num_predict"`
	Think       *bool    `yaml:"think"`

	MaxToolIterations  int  `yaml:"max_tool_iterations"`
	MaxHistoryMessages *int `yaml:"max_history_messages"`
	MaxPromptHistory   *int `yaml:"max_prompt_history"`

	RCONHost     string `yaml:"rcon_host"`
	RCONPort     int    `yaml:"rcon_port"`
	RCONPassword string `yaml:"rcon_password"`
}

// Load reads and validates the configuration at path. The API key falls
// back to the OLLAMA_API_KEY environment variable when the file does not
// set one.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		OllamaURL:          raw.OllamaURL,
		APIKey:             raw.APIKey,
		MaxToolIterations:  raw.MaxToolIterations,
		MaxHistoryMessages: agent.DefaultMaxHistoryMessages,
		MaxPromptHistory:   DefaultMaxPromptHistory,
		RCONHost:           raw.RCONHost,
		RCONPort:           raw.RCONPort,
		RCONPassword:       raw.RCONPassword,
	}
	if raw.MaxHistoryMessages != nil {
		cfg.MaxHistoryMessages = *raw.MaxHistoryMessages
	}
	if raw.MaxPromptHistory != nil {
		cfg.MaxPromptHistory = *raw.MaxPromptHistory
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = agent.DefaultMaxToolIterations
	}

	if len(raw.Models) > 0 && raw.ActiveModel != "" {
		cfg.Profiles = raw.Models
		if err := cfg.SwitchProfile(raw.ActiveModel); err != nil {
			return nil, err
		}
	} else {
		profile := Profile{
			Name:        raw.Model,
			Temperature: raw.Temperature,
			TopP:        raw.TopP,
			NumCtx:      raw.NumCtx,
			NumPredict:  raw.NumPredict,
			Think:       raw.Think,
		}
		cfg.applyProfile("", profile)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OLLAMA_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SwitchProfile makes the named profile active, replacing the model and
// its sampling options.
func (c *Config) SwitchProfile(key string) error {
	if len(c.Profiles) == 0 {
		return errors.New("no model profiles configured")
	}
	profile, ok := c.Profiles[key]
	if !ok {
		return fmt.Errorf("unknown model profile %q, available: %s",
			key, strings.Join(c.ProfileKeys(), ", "))
	}
	c.applyProfile(key, profile)
	return nil
}

// ProfileKeys returns the configured profile names, sorted.
func (c *Config) ProfileKeys() []string {
	keys := make([]string, 0, len(c.Profiles))
	for k := range c.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) applyProfile(key string, p Profile) {
	topP := 1.0
	if p.TopP != nil {
		topP = *p.TopP
	}
	c.Model = p.Name
	c.Options = domain.ModelOptions{
		Temperature: p.Temperature,
		TopP:        topP,
		NumCtx:      p.NumCtx,
		NumPredict:  p.NumPredict,
	}
	c.Think = p.Think
	c.ActiveKey = key
}

func (c *Config) validate() error {
	var missing []string
	if c.OllamaURL == "" {
		missing = append(missing, "ollama_url")
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	if c.RCONHost == "" {
		missing = append(missing, "rcon_host")
	}
	if c.RCONPort == 0 {
		missing = append(missing, "rcon_port")
	}
	if c.RCONPassword == "" {
		missing = append(missing, "rcon_password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LogValue keeps the RCON password and API key out of log output.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model", c.Model),
		slog.String("ollama_url", c.OllamaURL),
		slog.String("rcon_host", c.RCONHost),
		slog.Int("rcon_port", c.RCONPort),
	)
}
