package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"wikijournalbot/pkg/version"
)

// AppName is used for default data paths.
const AppName = "wikijournalbot"

// ErrMissing is returned by Validate when a required setting is absent.
// No page-level work is meaningful without it, so callers abort the run.
var ErrMissing = errors.New("required configuration missing")

// Config holds the application configuration.
type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Wiki       WikiConfig       `yaml:"wiki"`
	Wikidata   WikidataConfig   `yaml:"wikidata"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Sources    SourceMap        `yaml:"sources"`
	Request    RequestConfig    `yaml:"request"`
	Log        LogConfig        `yaml:"log"`
	DB         DBConfig         `yaml:"db"`

	// Auth is only ever populated from the environment (see LoadEnv).
	Auth AuthConfig `yaml:"-"`
}

// BotConfig holds run-level settings.
type BotConfig struct {
	Name         string   `yaml:"name"`
	Mode         string   `yaml:"mode"`          // "journal", "medicine"
	OperatorPage string   `yaml:"operator_page"` // Defaults to User:<name>
	Throttle     Duration `yaml:"throttle"`
	Summary      string   `yaml:"summary"`
	DryRun       bool     `yaml:"dry_run"`

	// Optional overrides of the mode preset.
	GuardOperator *bool `yaml:"guard_operator,omitempty"`
	CheckPages    *bool `yaml:"check_pages,omitempty"`
}

// WikiConfig holds MediaWiki API settings.
type WikiConfig struct {
	APIEndpoint string `yaml:"api_endpoint"`
	Namespace   string `yaml:"namespace,omitempty"`  // Overrides the mode preset, "*" for all
	UserAgent   string `yaml:"user_agent,omitempty"` // Built from bot.name and operator_page when empty
	MaxLag      int    `yaml:"maxlag"`               // Seconds of replica lag the wiki may have; 0 omits maxlag
}

// WikidataConfig holds SPARQL settings.
type WikidataConfig struct {
	SPARQLEndpoint string   `yaml:"sparql_endpoint"`
	Query          string   `yaml:"query,omitempty"` // Overrides the mode preset
	CacheTTL       Duration `yaml:"cache_ttl"`
}

// TemplatesConfig names the wikitext templates the bot reads and writes.
type TemplatesConfig struct {
	ListStart  string `yaml:"list_start"`
	ListEnd    string `yaml:"list_end"`
	DefaultRow string `yaml:"default_row"`
	LabelKey   string `yaml:"label_key,omitempty"` // Overrides the mode preset
}

// ExtractionConfig holds identifier extraction overrides.
type ExtractionConfig struct {
	TitlePolicy   string `yaml:"title_policy,omitempty"` // "substring", "first_segment"
	RequireSource *bool  `yaml:"require_source,omitempty"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Bot      LogSettings `yaml:"bot"`      // console and file
	Requests LogSettings `yaml:"requests"` // file only
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"` // Empty uses the XDG cache directory
}

// AuthConfig holds credentials. Either the OAuth quadruple or a bot password is required.
type AuthConfig struct {
	ConsumerToken  string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	Username       string
	Password       string
}

// HasOAuth reports whether all four OAuth values are set.
func (a AuthConfig) HasOAuth() bool {
	return a.ConsumerToken != "" && a.ConsumerSecret != "" && a.AccessToken != "" && a.AccessSecret != ""
}

// HasBotPassword reports whether bot-password credentials are set.
func (a AuthConfig) HasBotPassword() bool {
	return a.Username != "" && a.Password != ""
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:     "WikiJournalBot",
			Mode:     ModeJournal,
			Throttle: Duration(1 * time.Second),
			Summary:  "Automated Bot List Update",
		},
		Wiki: WikiConfig{
			APIEndpoint: "https://en.wikiversity.org/w/api.php",
			MaxLag:      5,
		},
		Wikidata: WikidataConfig{
			SPARQLEndpoint: "https://query.wikidata.org/sparql",
		},
		Sources: DefaultSources(),
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Bot: LogSettings{
				Path:  "./logs/bot.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
	}
}

// OperatorPage returns the page gating the whole run.
func (c *Config) OperatorPage() string {
	if c.Bot.OperatorPage != "" {
		return c.Bot.OperatorPage
	}
	return "User:" + c.Bot.Name
}

// UserAgent returns wiki.user_agent, or one naming the bot with a link to
// its operator page on the configured wiki.
func (c *Config) UserAgent() string {
	if c.Wiki.UserAgent != "" {
		return c.Wiki.UserAgent
	}
	var contact string
	if u, err := url.Parse(c.Wiki.APIEndpoint); err == nil && u.Host != "" {
		contact = "https://" + u.Host + "/wiki/" + strings.ReplaceAll(c.OperatorPage(), " ", "_")
	}
	return version.UserAgent(c.Bot.Name, contact)
}

// DBPath returns the configured database path or the XDG default.
func (c *Config) DBPath() string {
	if c.DB.Path != "" {
		return c.DB.Path
	}
	return filepath.Join(xdg.CacheHome, AppName, "bot.db")
}

// Validate checks that every setting the pipeline cannot run without is present.
// All missing keys are reported at once, wrapped around ErrMissing.
func (c *Config) Validate() error {
	var missing []string
	req := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	req("bot.name", c.Bot.Name)
	req("wiki.api_endpoint", c.Wiki.APIEndpoint)
	req("wikidata.sparql_endpoint", c.Wikidata.SPARQLEndpoint)
	req("templates.list_start", c.Templates.ListStart)
	req("templates.list_end", c.Templates.ListEnd)
	req("templates.default_row", c.Templates.DefaultRow)

	if !c.Bot.DryRun && !c.Auth.HasOAuth() && !c.Auth.HasBotPassword() {
		missing = append(missing, "credentials (CONSUMER_TOKEN/CONSUMER_SECRET/ACCESS_TOKEN/ACCESS_SECRET or BOT_USERNAME/BOT_PASSWORD)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if _, ok := modePresets[c.Bot.Mode]; !ok {
		return fmt.Errorf("unknown bot.mode %q", c.Bot.Mode)
	}
	switch c.Preset().TitlePolicy {
	case PolicySubstring, PolicyFirstSegment:
	default:
		return fmt.Errorf("unknown extraction.title_policy %q", c.Preset().TitlePolicy)
	}
	return nil
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, defaults are merged with its values but nothing is written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// A sources block in the file replaces the built-in table rather than merging into it.
		cfg.Sources = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if cfg.Sources == nil {
			cfg.Sources = DefaultSources()
		}
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# WikiJournalBot Configuration
# ---------------------------
# Credentials are read from the environment or .env, never from this file.
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	reMode := regexp.MustCompile(`(?m)^(\s+)mode:`)
	data = reMode.ReplaceAll(data, []byte("${1}# Options: journal, medicine\n${1}mode:"))

	reStart := regexp.MustCompile(`(?m)^(\s+)list_start:`)
	data = reStart.ReplaceAll(data, []byte("${1}# Required: list_start, list_end, default_row\n${1}list_start:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
