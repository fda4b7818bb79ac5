package ai

import (
	"errors"
	"time"

	"github.com/hrygo/slotweaver/internal/profile"
	"github.com/hrygo/slotweaver/plugin/ai/timeout"
)

// Ranker kinds.
const (
	RankerNone  = "none"
	RankerRules = "rules"
	RankerLLM   = "llm"
)

// Config represents ranking configuration.
type Config struct {
	Kind    string        // none, rules, llm
	Rule    string        // CEL scoring expression for the rules ranker
	Timeout time.Duration // per-call ranking timeout

	RateLimit float64 // requests per second
	RateBurst int

	LLM LLMConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, ollama
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 512
	Temperature float32 // default: 0
}

// Enabled reports whether a ranker should be plugged in.
func (c *Config) Enabled() bool {
	return c.Kind == RankerRules || c.Kind == RankerLLM
}

// NewConfigFromProfile creates ranking config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Kind:      p.Ranker,
		Rule:      p.RankerRule,
		Timeout:   p.RankerTimeout,
		RateLimit: p.RankerRateLimit,
		RateBurst: p.RankerRateBurst,
	}
	if cfg.Kind == "" {
		cfg.Kind = RankerNone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeout.RankingTimeout
	}
	// The rule ranker runs in process and gets the tighter budget.
	if cfg.Kind == RankerRules && cfg.Timeout > timeout.RuleRankingTimeout {
		cfg.Timeout = timeout.RuleRankingTimeout
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 1
	}

	if cfg.Kind != RankerLLM {
		return cfg
	}

	// Ranking wants short, deterministic answers.
	cfg.LLM = LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		MaxTokens:   512,
		Temperature: 0,
	}

	switch p.AILLMProvider {
	case "deepseek":
		cfg.LLM.APIKey = p.AIDeepSeekAPIKey
		cfg.LLM.BaseURL = p.AIDeepSeekBaseURL
	case "openai":
		cfg.LLM.APIKey = p.AIOpenAIAPIKey
		cfg.LLM.BaseURL = p.AIOpenAIBaseURL
	case "ollama":
		cfg.LLM.BaseURL = p.AIOllamaBaseURL
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Kind {
	case RankerNone, "":
		return nil
	case RankerRules:
		return nil
	case RankerLLM:
	default:
		return errors.New("unknown ranker kind: " + c.Kind)
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.LLM.BaseURL == "" {
		return errors.New("LLM base URL is required")
	}

	return nil
}
