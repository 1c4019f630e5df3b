package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads an optional .env file into the process environment and applies
// environment overrides to cfg. Variables already set in the environment win over
// the file. A missing file is not an error.
func LoadEnv(path string, cfg *Config) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	return applyEnv(cfg)
}

func applyEnv(cfg *Config) error {
	cfg.Auth = AuthConfig{
		ConsumerToken:  os.Getenv("CONSUMER_TOKEN"),
		ConsumerSecret: os.Getenv("CONSUMER_SECRET"),
		AccessToken:    os.Getenv("ACCESS_TOKEN"),
		AccessSecret:   os.Getenv("ACCESS_SECRET"),
		Username:       os.Getenv("BOT_USERNAME"),
		Password:       os.Getenv("BOT_PASSWORD"),
	}

	setString(&cfg.Bot.Name, "BOT_NAME")
	setString(&cfg.Bot.Mode, "BOT_MODE")
	setString(&cfg.Wiki.APIEndpoint, "API_ENDPOINT")
	setString(&cfg.Wikidata.SPARQLEndpoint, "SPARQL_ENDPOINT")
	setString(&cfg.Templates.ListStart, "ARTICLE_VOLUME_LIST_TEMPLATE")
	setString(&cfg.Templates.ListEnd, "LIST_END_TEMPLATE")
	setString(&cfg.Templates.DefaultRow, "DEFAULT_ROW_TEMPLATE")
	setString(&cfg.Log.Bot.Level, "LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("THROTTLE")); v != "" {
		// Plain integers are seconds, as in the cron setups this replaced.
		if isDigits(v) {
			v += "s"
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid THROTTLE %q: %w", v, err)
		}
		cfg.Bot.Throttle = Duration(d)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
