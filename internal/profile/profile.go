package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hrygo/slotweaver/server/timezone"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SLOTWEAVER"

// Profile is the configuration of the scheduler and its collaborators.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string `mapstructure:"mode"`
	// Data is the data directory
	Data string `mapstructure:"data"`
	// Driver is the database driver (sqlite or postgres)
	Driver string `mapstructure:"driver"`
	// DSN points to where the calendar store keeps its data
	DSN string `mapstructure:"dsn"`
	// Version is the current version of the binary
	Version string `mapstructure:"version"`

	LogFormat string `mapstructure:"log_format"` // SLOTWEAVER_LOG_FORMAT (text|json, default: text)
	LogLevel  string `mapstructure:"log_level"`  // SLOTWEAVER_LOG_LEVEL (default: info)

	// Planning defaults
	Timezone        string `mapstructure:"timezone"`         // SLOTWEAVER_TIMEZONE (default: UTC)
	WindowDays      int    `mapstructure:"window_days"`      // SLOTWEAVER_WINDOW_DAYS (default: 7)
	DefaultCalendar string `mapstructure:"default_calendar"` // SLOTWEAVER_DEFAULT_CALENDAR (default: default)

	// Ranking configuration
	Ranker            string        `mapstructure:"ranker"`            // SLOTWEAVER_RANKER (none|rules|llm, default: none)
	RankerRule        string        `mapstructure:"ranker_rule"`       // SLOTWEAVER_RANKER_RULE (CEL expression)
	RankerTimeout     time.Duration `mapstructure:"ranker_timeout"`    // SLOTWEAVER_RANKER_TIMEOUT (default: 10s)
	RankerRateLimit   float64       `mapstructure:"ranker_rate_limit"` // SLOTWEAVER_RANKER_RATE_LIMIT (requests/s, default: 2)
	RankerRateBurst   int           `mapstructure:"ranker_rate_burst"` // SLOTWEAVER_RANKER_RATE_BURST (default: 4)
	AILLMProvider     string        `mapstructure:"ai_llm_provider"`   // SLOTWEAVER_AI_LLM_PROVIDER (openai|deepseek|ollama, default: openai)
	AILLMModel        string        `mapstructure:"ai_llm_model"`      // SLOTWEAVER_AI_LLM_MODEL (default: gpt-4o-mini)
	AIOpenAIAPIKey    string        `mapstructure:"ai_openai_api_key"`
	AIOpenAIBaseURL   string        `mapstructure:"ai_openai_base_url"` // default: https://api.openai.com/v1
	AIDeepSeekAPIKey  string        `mapstructure:"ai_deepseek_api_key"`
	AIDeepSeekBaseURL string        `mapstructure:"ai_deepseek_base_url"` // default: https://api.deepseek.com
	AIOllamaBaseURL   string        `mapstructure:"ai_ollama_base_url"`   // default: http://localhost:11434/v1
}

var defaults = map[string]any{
	"mode":                 "dev",
	"data":                 "",
	"driver":               "sqlite",
	"dsn":                  "",
	"version":              "0.1.0",
	"log_format":           "text",
	"log_level":            "info",
	"timezone":             "UTC",
	"window_days":          7,
	"default_calendar":     "default",
	"ranker":               "none",
	"ranker_rule":          "",
	"ranker_timeout":       "10s",
	"ranker_rate_limit":    2.0,
	"ranker_rate_burst":    4,
	"ai_llm_provider":      "openai",
	"ai_llm_model":         "gpt-4o-mini",
	"ai_openai_api_key":    "",
	"ai_openai_base_url":   "https://api.openai.com/v1",
	"ai_deepseek_api_key":  "",
	"ai_deepseek_base_url": "https://api.deepseek.com",
	"ai_ollama_base_url":   "http://localhost:11434/v1",
}

// NewViper returns a viper instance with every profile key defaulted and
// bound to SLOTWEAVER_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the profile from v. When configFile is set it is read first;
// environment variables still take precedence over it.
func Load(v *viper.Viper, configFile string) (*Profile, error) {
	if v == nil {
		v = NewViper()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile")
	}
	return p, nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMRanking reports whether the LLM ranker is selected and reachable.
func (p *Profile) IsLLMRanking() bool {
	if p.Ranker != "llm" {
		return false
	}
	switch p.AILLMProvider {
	case "openai":
		return p.AIOpenAIAPIKey != ""
	case "deepseek":
		return p.AIDeepSeekAPIKey != ""
	case "ollama":
		return p.AIOllamaBaseURL != ""
	}
	return false
}

// Location resolves Timezone.
func (p *Profile) Location() (*time.Location, error) {
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return loc, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.WindowDays < 1 || p.WindowDays > 365 {
		return errors.Errorf("window days must be within 1..365, got %d", p.WindowDays)
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}
	switch p.Ranker {
	case "", "none", "rules", "llm":
	default:
		return errors.Errorf("unsupported ranker %q", p.Ranker)
	}
	if p.RankerRateLimit <= 0 {
		return errors.Errorf("ranker rate limit must be positive, got %v", p.RankerRateLimit)
	}

	if p.Driver == "postgres" {
		if p.DSN == "" {
			return errors.New("dsn is required for postgres")
		}
		return nil
	}
	if p.DSN == ":memory:" || strings.HasPrefix(p.DSN, "file:") {
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "slotweaver")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/slotweaver"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("slotweaver_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
