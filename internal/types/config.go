package types

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	scrapeerrors "maps-scraper/pkg/errors"
)

// Link de-duplication scopes
const (
	LinkScopeRun      = "run"
	LinkScopeProvider = "provider"
)

// Pacing holds the fixed delays a provider needs for its pages to render.
type Pacing struct {
	SearchSettle  time.Duration `yaml:"search_settle"`
	ExtractSettle time.Duration `yaml:"extract_settle"`
	ScrollPause   time.Duration `yaml:"scroll_pause"`
}

// Config holds the configuration for a scraping run
type Config struct {
	Headless     bool   `yaml:"headless"`
	UserAgent    string `yaml:"user_agent"`
	ChromePath   string `yaml:"chrome_path"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`

	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	ScriptTimeout   time.Duration `yaml:"script_timeout"`
	RestartCooldown time.Duration `yaml:"restart_cooldown"`
	NudgePause      time.Duration `yaml:"nudge_pause"`

	MaxScrollAttempts  int `yaml:"max_scroll_attempts"`
	MaxPlacesPerSearch int `yaml:"max_places_per_search"`
	CrashRetryBudget   int `yaml:"crash_retry_budget"`
	CheckpointEvery    int `yaml:"checkpoint_every"`

	LinkScope string `yaml:"link_scope"`

	Google Pacing `yaml:"google"`
	Yandex Pacing `yaml:"yandex"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Headless:           true,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ChromePath:         "/opt/google/chrome/chrome",
		WindowWidth:        1366,
		WindowHeight:       900,
		PageLoadTimeout:    20 * time.Second,
		ScriptTimeout:      5 * time.Second,
		RestartCooldown:    1 * time.Second,
		NudgePause:         300 * time.Millisecond,
		MaxScrollAttempts:  15,
		MaxPlacesPerSearch: 100,
		CrashRetryBudget:   2,
		CheckpointEvery:    50,
		LinkScope:          LinkScopeRun,
		Google: Pacing{
			SearchSettle:  1500 * time.Millisecond,
			ExtractSettle: 2 * time.Second,
			ScrollPause:   1500 * time.Millisecond,
		},
		Yandex: Pacing{
			SearchSettle:  3 * time.Second,
			ExtractSettle: 2 * time.Second,
			ScrollPause:   1500 * time.Millisecond,
		},
	}
}

// LoadConfig overlays the YAML file at path (if any) and the environment on
// top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, scrapeerrors.NewConfiguration("failed to read config file "+path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, scrapeerrors.NewConfiguration("failed to parse config file "+path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("HEADLESS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scrapeerrors.NewConfiguration("invalid HEADLESS value", err)
		}
		c.Headless = b
	}
	if v := strings.TrimSpace(os.Getenv("CHROME_PATH")); v != "" {
		c.ChromePath = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_PLACES_PER_SEARCH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return scrapeerrors.NewConfiguration("invalid MAX_PLACES_PER_SEARCH value", err)
		}
		c.MaxPlacesPerSearch = n
	}
	if v := strings.TrimSpace(os.Getenv("CHECKPOINT_EVERY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return scrapeerrors.NewConfiguration("invalid CHECKPOINT_EVERY value", err)
		}
		c.CheckpointEvery = n
	}
	return nil
}

// Validate rejects budgets that would stall or disable the run.
func (c *Config) Validate() error {
	switch {
	case c.MaxScrollAttempts < 0:
		return scrapeerrors.NewConfiguration(fmt.Sprintf("max_scroll_attempts must not be negative, got %d", c.MaxScrollAttempts), nil)
	case c.MaxPlacesPerSearch < 0:
		return scrapeerrors.NewConfiguration(fmt.Sprintf("max_places_per_search must not be negative, got %d", c.MaxPlacesPerSearch), nil)
	case c.CrashRetryBudget < 1:
		return scrapeerrors.NewConfiguration(fmt.Sprintf("crash_retry_budget must be at least 1, got %d", c.CrashRetryBudget), nil)
	case c.CheckpointEvery < 1:
		return scrapeerrors.NewConfiguration(fmt.Sprintf("checkpoint_every must be at least 1, got %d", c.CheckpointEvery), nil)
	case c.PageLoadTimeout <= 0:
		return scrapeerrors.NewConfiguration("page_load_timeout must be positive", nil)
	case c.LinkScope != LinkScopeRun && c.LinkScope != LinkScopeProvider:
		return scrapeerrors.NewConfiguration(fmt.Sprintf("link_scope must be %q or %q, got %q", LinkScopeRun, LinkScopeProvider, c.LinkScope), nil)
	}
	return nil
}
