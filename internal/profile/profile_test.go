package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults 测试默认配置
func TestLoadDefaults(t *testing.T) {
	p, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, "text", p.LogFormat)
	assert.Equal(t, "UTC", p.Timezone)
	assert.Equal(t, 7, p.WindowDays)
	assert.Equal(t, "default", p.DefaultCalendar)
	assert.Equal(t, "none", p.Ranker)
	assert.Equal(t, 10*time.Second, p.RankerTimeout)
	assert.Equal(t, 2.0, p.RankerRateLimit)
	assert.Equal(t, 4, p.RankerRateBurst)
	assert.Equal(t, "openai", p.AILLMProvider)
	assert.Equal(t, "gpt-4o-mini", p.AILLMModel)
	assert.Equal(t, "https://api.openai.com/v1", p.AIOpenAIBaseURL)
	assert.False(t, p.IsLLMRanking())
}

// TestLoadFromEnv 测试从环境变量读取配置
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLOTWEAVER_WINDOW_DAYS", "14")
	t.Setenv("SLOTWEAVER_TIMEZONE", "Asia/Shanghai")
	t.Setenv("SLOTWEAVER_RANKER", "llm")
	t.Setenv("SLOTWEAVER_RANKER_TIMEOUT", "3s")
	t.Setenv("SLOTWEAVER_AI_LLM_PROVIDER", "deepseek")
	t.Setenv("SLOTWEAVER_AI_DEEPSEEK_API_KEY", "sk-test")

	p, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 14, p.WindowDays)
	assert.Equal(t, "Asia/Shanghai", p.Timezone)
	assert.Equal(t, 3*time.Second, p.RankerTimeout)
	assert.True(t, p.IsLLMRanking())

	loc, err := p.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

// TestLoadFromFile 测试配置文件，环境变量优先
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "slotweaver.yaml")
	require.NoError(t, os.WriteFile(file, []byte("window_days: 21\nranker: rules\nranker_rule: \"-double(minutes_from_first)\"\n"), 0o600))
	t.Setenv("SLOTWEAVER_RANKER", "none")

	p, err := Load(NewViper(), file)
	require.NoError(t, err)
	assert.Equal(t, 21, p.WindowDays)
	assert.Equal(t, "none", p.Ranker)
	assert.Equal(t, "-double(minutes_from_first)", p.RankerRule)

	_, err = Load(NewViper(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	base := func() *Profile {
		p, err := Load(NewViper(), "")
		require.NoError(t, err)
		p.Data = dir
		return p
	}

	p := base()
	require.NoError(t, p.Validate())
	assert.Equal(t, filepath.Join(dir, "slotweaver_dev.db"), p.DSN)

	p = base()
	p.Mode = "staging"
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)

	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"bad driver", func(p *Profile) { p.Driver = "mysql" }},
		{"window too small", func(p *Profile) { p.WindowDays = 0 }},
		{"window too large", func(p *Profile) { p.WindowDays = 400 }},
		{"bad timezone", func(p *Profile) { p.Timezone = "Mars/Olympus" }},
		{"bad ranker", func(p *Profile) { p.Ranker = "magic" }},
		{"zero rate", func(p *Profile) { p.RankerRateLimit = 0 }},
		{"postgres without dsn", func(p *Profile) { p.Driver = "postgres" }},
		{"missing data dir", func(p *Profile) { p.Data = filepath.Join(dir, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestValidate_InMemoryDSNSkipsDataDir(t *testing.T) {
	p, err := Load(NewViper(), "")
	require.NoError(t, err)
	p.DSN = ":memory:"
	p.Data = "/definitely/not/here"
	assert.NoError(t, p.Validate())
}
