package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "tale-llm"
	envPrefix = "TALE_LLM"

	DefaultProvider     = "gemini"
	DefaultGeminiModel  = "gemini-2.5-flash"
	DefaultServeAddr    = ":8080"
	DefaultServerURL    = "http://localhost:8080"
	DefaultMaxBodyBytes = 4 << 20
	DefaultTimeout      = 10 * time.Minute
)

// Providers lists the generation backends that can be selected with the
// provider key.
var Providers = []string{"gemini", "openai", "anthropic", "debug"}

type Config struct {
	Provider  string          `mapstructure:"provider" yaml:"provider"`
	Gemini    GeminiConfig    `mapstructure:"gemini" yaml:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Debug     DebugConfig     `mapstructure:"debug" yaml:"debug"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
	Client    ClientConfig    `mapstructure:"client" yaml:"client"`
}

type GeminiConfig struct {
	APIKey string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string            `mapstructure:"model" yaml:"model"`
	Safety map[string]string `mapstructure:"safety" yaml:"safety,omitempty"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int64  `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type DebugConfig struct {
	Preset string `mapstructure:"preset" yaml:"preset"`
}

type ServeConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	Token        string `mapstructure:"token" yaml:"token,omitempty"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url" yaml:"server_url"`
	Token     string        `mapstructure:"token" yaml:"token,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultSafety disables blocking for the four standard harm categories.
func DefaultSafety() map[string]string {
	return map[string]string{
		"harassment":        "BLOCK_NONE",
		"hate_speech":       "BLOCK_NONE",
		"sexually_explicit": "BLOCK_NONE",
		"dangerous_content": "BLOCK_NONE",
	}
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Provider: DefaultProvider,
		Gemini: GeminiConfig{
			Model:  DefaultGeminiModel,
			Safety: DefaultSafety(),
		},
		OpenAI:    OpenAIConfig{Model: "gpt-5.2"},
		Anthropic: AnthropicConfig{Model: "claude-sonnet-4-5", MaxTokens: 8192},
		Debug:     DebugConfig{Preset: "normal"},
		Serve: ServeConfig{
			Addr:         DefaultServeAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Client: ClientConfig{
			ServerURL: DefaultServerURL,
			Timeout:   DefaultTimeout,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.safety", d.Gemini.Safety)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("debug.preset", d.Debug.Preset)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.token", "")
	v.SetDefault("serve.max_body_bytes", d.Serve.MaxBodyBytes)
	v.SetDefault("client.server_url", d.Client.ServerURL)
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", d.Client.Timeout)
}

// Load reads configuration from path, or from the default location when
// path is empty. A missing default file is not an error. TALE_LLM_* env
// vars override file values (e.g. TALE_LLM_SERVE_ADDR).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands secret references and applies the conventional API key
// environment variables when no key is configured.
func (c *Config) resolve() error {
	fields := []struct {
		name  string
		value *string
		env   []string
	}{
		{"gemini.api_key", &c.Gemini.APIKey, []string{"GOOGLE_AI_API_KEY", "GEMINI_API_KEY"}},
		{"openai.api_key", &c.OpenAI.APIKey, []string{"OPENAI_API_KEY"}},
		{"anthropic.api_key", &c.Anthropic.APIKey, []string{"ANTHROPIC_API_KEY"}},
		{"serve.token", &c.Serve.Token, nil},
		{"client.server_url", &c.Client.ServerURL, nil},
		{"client.token", &c.Client.Token, nil},
	}
	for _, f := range fields {
		resolved, err := ResolveValue(*f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = resolved
		for _, env := range f.env {
			if *f.value != "" {
				break
			}
			*f.value = os.Getenv(env)
		}
	}
	return nil
}

// ApplyOverrides applies --provider and --model style overrides. An empty
// provider keeps the configured one; the model applies to whichever
// provider ends up selected.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider != "" {
		c.Provider = provider
	}
	if model == "" {
		return
	}
	switch c.Provider {
	case "gemini":
		c.Gemini.Model = model
	case "openai":
		c.OpenAI.Model = model
	case "anthropic":
		c.Anthropic.Model = model
	case "debug":
		c.Debug.Preset = model
	}
}

// RequireCredential fails fast when the selected provider has no API key.
func (c *Config) RequireCredential() error {
	var key, hint string
	switch c.Provider {
	case "gemini":
		key, hint = c.Gemini.APIKey, "GOOGLE_AI_API_KEY"
	case "openai":
		key, hint = c.OpenAI.APIKey, "OPENAI_API_KEY"
	case "anthropic":
		key, hint = c.Anthropic.APIKey, "ANTHROPIC_API_KEY"
	case "debug":
		return nil
	default:
		return fmt.Errorf("unknown provider %q (valid: %s)", c.Provider, strings.Join(Providers, ", "))
	}
	if key == "" {
		return fmt.Errorf("%s API key not configured: set %s.api_key or %s", c.Provider, c.Provider, hint)
	}
	return nil
}

// Masked returns a copy with secrets shortened for display.
func (c *Config) Masked() *Config {
	m := *c
	m.Gemini.APIKey = mask(c.Gemini.APIKey)
	m.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	m.Anthropic.APIKey = mask(c.Anthropic.APIKey)
	m.Serve.Token = mask(c.Serve.Token)
	m.Client.Token = mask(c.Client.Token)
	return &m
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

// Dir returns the directory holding config.yaml.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// Path returns the path where the config file should be located
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

const fileHeader = `# tale-llm configuration
# API keys and tokens accept op://vault/item/field, $(command), ${VAR} or a literal.
# Environment variables override any key, e.g. TALE_LLM_SERVE_ADDR=:9090.

`

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path, creating the parent directory. An existing file
// is only replaced when overwrite is set.
func Save(cfg *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, append([]byte(fileHeader), data...), 0600)
}
