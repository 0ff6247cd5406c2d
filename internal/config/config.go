// Package config loads aciclean settings from file, dotenv, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/webhook"
	"github.com/HerbHall/aciclean/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. ACICLEAN_CONTROLLER_URL.
const EnvPrefix = "ACICLEAN"

// Settings is the decoded configuration for one invocation.
type Settings struct {
	Controller ControllerSettings `mapstructure:"controller"`
	Scope      models.Scope       `mapstructure:"scope"`
	Purge      PurgeSettings      `mapstructure:"purge"`
	Logging    LoggingSettings    `mapstructure:"logging"`
	History    HistorySettings    `mapstructure:"history"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
	Webhook    webhook.Config     `mapstructure:"webhook"`
}

// ControllerSettings describes how to reach and authenticate to the APIC.
type ControllerSettings struct {
	URL                string        `mapstructure:"url"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	CAFile             string        `mapstructure:"ca_file"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type PurgeSettings struct {
	DryRun    bool    `mapstructure:"dry_run"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HistorySettings struct {
	Path string `mapstructure:"path"`
}

type MetricsSettings struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from defaults, an optional YAML file, an optional
// dotenv file and ACICLEAN_* environment variables, in increasing precedence.
// A missing default config file is fine; a missing explicit one is not.
func Load(configPath, envFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("aciclean")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/aciclean")
	}

	// ACICLEAN_CONTROLLER_URL=https://apic overrides controller.url
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// SetDefaults registers every known key so AutomaticEnv and Unmarshal see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("controller.url", "")
	v.SetDefault("controller.username", "")
	v.SetDefault("controller.password", "")
	v.SetDefault("controller.insecure_skip_verify", false)
	v.SetDefault("controller.ca_file", "")
	v.SetDefault("controller.timeout", apic.DefaultConfig().Timeout)
	v.SetDefault("scope.tenant", "")
	v.SetDefault("scope.app_profile", "")
	v.SetDefault("scope.epg", "")
	v.SetDefault("purge.dry_run", false)
	v.SetDefault("purge.rate_limit", 0.0)
	v.SetDefault("purge.burst", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("history.path", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", 10*time.Second)
}

// Decode unmarshals v into Settings.
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}

// Validate checks the settings needed to talk to a controller. The password
// is not checked here since it may still be prompted for.
func (s *Settings) Validate() error {
	var missing []string
	if s.Controller.URL == "" {
		missing = append(missing, "controller.url")
	}
	if s.Controller.Username == "" {
		missing = append(missing, "controller.username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if s.Controller.Timeout < 0 {
		return fmt.Errorf("controller.timeout must not be negative, got %s", s.Controller.Timeout)
	}
	if s.Purge.RateLimit < 0 {
		return fmt.Errorf("purge.rate_limit must not be negative, got %g", s.Purge.RateLimit)
	}
	if s.Purge.RateLimit > 0 && s.Purge.Burst < 1 {
		return fmt.Errorf("purge.burst must be at least 1 when rate limiting, got %d", s.Purge.Burst)
	}
	if err := apic.ValidateScope(s.Scope); err != nil {
		return err
	}
	return nil
}

// ClientConfig returns the transport settings for apic.NewClient.
func (s *Settings) ClientConfig() apic.Config {
	return apic.Config{
		URL:                s.Controller.URL,
		InsecureSkipVerify: s.Controller.InsecureSkipVerify,
		CAFile:             s.Controller.CAFile,
		Timeout:            s.Controller.Timeout,
	}
}

// Credentials returns the configured login.
func (s *Settings) Credentials() models.Credentials {
	return models.Credentials{Username: s.Controller.Username, Password: s.Controller.Password}
}
