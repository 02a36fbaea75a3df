package anthropic

// defaultModel is the model used when none is specified.
// Pinned to a dated release for reproducibility; update when a newer
// stable version is validated.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultContextWindow covers all Claude 3.x and 4.x models (200k tokens).
// If Anthropic introduces a model family with a different window, add an
// explicit lookup table at that point.
const defaultContextWindow = 200_000

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	MaxTokens     int    `yaml:"max_tokens"`
	ContextWindow int    `yaml:"context_window"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
}

// contextWindowForModel returns the context window size for the
// configured model, honoring an explicit override.
func (c *Config) contextWindowForModel() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return defaultContextWindow
}
