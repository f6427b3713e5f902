package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Airtable   AirtableConfig   `yaml:"airtable" mapstructure:"airtable"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Reddit     RedditConfig     `yaml:"reddit" mapstructure:"reddit"`
	Craigslist CraigslistConfig `yaml:"craigslist" mapstructure:"craigslist"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AirtableConfig holds lead store credentials and table names.
type AirtableConfig struct {
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	BaseID          string `yaml:"base_id" mapstructure:"base_id"`
	LeadsTable      string `yaml:"leads_table" mapstructure:"leads_table"`
	OutreachTable   string `yaml:"outreach_table" mapstructure:"outreach_table"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	DeleteBatchSize int    `yaml:"delete_batch_size" mapstructure:"delete_batch_size"`
}

// AnthropicConfig holds judgment service settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RedditConfig holds Reddit API credentials and search settings.
type RedditConfig struct {
	ClientID     string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" mapstructure:"client_secret"`
	Username     string   `yaml:"username" mapstructure:"username"`
	Password     string   `yaml:"password" mapstructure:"password"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	Subreddits   []string `yaml:"subreddits" mapstructure:"subreddits"`
	PostLimit    int      `yaml:"post_limit" mapstructure:"post_limit"`
}

// CraigslistConfig holds Craigslist scrape settings.
type CraigslistConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Section string `yaml:"section" mapstructure:"section"`
	Query   string `yaml:"query" mapstructure:"query"`
	Pages   int    `yaml:"pages" mapstructure:"pages"`
}

// PipelineConfig holds thresholds and pacing for the coordinator.
type PipelineConfig struct {
	DeleteThreshold   int      `yaml:"delete_threshold" mapstructure:"delete_threshold"`
	OutreachThreshold int      `yaml:"outreach_threshold" mapstructure:"outreach_threshold"`
	OutreachSleepSecs int      `yaml:"outreach_sleep_secs" mapstructure:"outreach_sleep_secs"`
	OutreachRetryCap  int      `yaml:"outreach_retry_cap" mapstructure:"outreach_retry_cap"`
	ScoreDelayMs      int      `yaml:"score_delay_ms" mapstructure:"score_delay_ms"`
	SourceDelaySecs   int      `yaml:"source_delay_secs" mapstructure:"source_delay_secs"`
	Region            string   `yaml:"region" mapstructure:"region"`
	Keywords          []string `yaml:"keywords" mapstructure:"keywords"`
}

// OutreachConfig holds the message template for outreach replies.
type OutreachConfig struct {
	// MessageTemplate may reference {title}, {score}, {post_url} and
	// {location}. Empty means the built-in default message.
	MessageTemplate string `yaml:"message_template" mapstructure:"message_template"`
}

// LedgerConfig configures the seen-URL ledger.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// Optional .env, matching how the store/API keys are usually kept.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential keys get empty defaults so AutomaticEnv values reach
	// Unmarshal.
	v.SetDefault("airtable.api_key", "")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.username", "")
	v.SetDefault("reddit.password", "")
	v.SetDefault("outreach.message_template", "")

	v.SetDefault("airtable.leads_table", "Leads")
	v.SetDefault("airtable.outreach_table", "Outreach Log")
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.delete_batch_size", 10)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("reddit.user_agent", "leadgen-cli/1.0")
	v.SetDefault("reddit.subreddits", []string{"caregivers", "AgingParents", "Connecticut", "NewHaven", "HomeHealth"})
	v.SetDefault("reddit.post_limit", 25)
	v.SetDefault("craigslist.base_url", "https://newhaven.craigslist.org")
	v.SetDefault("craigslist.section", "lss")
	v.SetDefault("craigslist.query", "caregiver|companion|PCA")
	v.SetDefault("craigslist.pages", 3)
	v.SetDefault("pipeline.delete_threshold", 40)
	v.SetDefault("pipeline.outreach_threshold", 80)
	v.SetDefault("pipeline.outreach_sleep_secs", 30)
	v.SetDefault("pipeline.outreach_retry_cap", 5)
	v.SetDefault("pipeline.score_delay_ms", 1200)
	v.SetDefault("pipeline.source_delay_secs", 2)
	v.SetDefault("pipeline.region", "New Haven County")
	v.SetDefault("pipeline.keywords", []string{"caregiver", "pca", "companion", "home care", "homemaker", "elder"})
	v.SetDefault("ledger.path", "leadgen.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the credentials required by a command mode are
// present. Missing credentials are fatal before any stage runs.
func (c *Config) Validate(modes ...string) error {
	var missing []string

	for _, mode := range modes {
		switch mode {
		case "store":
			if c.Airtable.APIKey == "" {
				missing = append(missing, "airtable.api_key")
			}
			if c.Airtable.BaseID == "" {
				missing = append(missing, "airtable.base_id")
			}
		case "score":
			if c.Anthropic.Key == "" {
				missing = append(missing, "anthropic.key")
			}
		case "outreach":
			if c.Reddit.ClientID == "" {
				missing = append(missing, "reddit.client_id")
			}
			if c.Reddit.ClientSecret == "" {
				missing = append(missing, "reddit.client_secret")
			}
			if c.Reddit.Username == "" {
				missing = append(missing, "reddit.username")
			}
			if c.Reddit.Password == "" {
				missing = append(missing, "reddit.password")
			}
		default:
			return eris.Errorf("config: unknown validation mode %q", mode)
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
