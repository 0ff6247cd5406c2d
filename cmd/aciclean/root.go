package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/aciclean/internal/config"
	"github.com/HerbHall/aciclean/internal/version"
	"github.com/HerbHall/aciclean/pkg/models"
)

// flagKeys maps command-line flags onto configuration keys. Only flags
// present on the running command are bound.
var flagKeys = map[string]string{
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"controller":       "controller.url",
	"username":         "controller.username",
	"insecure":         "controller.insecure_skip_verify",
	"ca-file":          "controller.ca_file",
	"timeout":          "controller.timeout",
	"tenant":           "scope.tenant",
	"app-profile":      "scope.app_profile",
	"epg":              "scope.epg",
	"dry-run":          "purge.dry_run",
	"rate-limit":       "purge.rate_limit",
	"burst":            "purge.burst",
	"history":          "history.path",
	"metrics-textfile": "metrics.textfile",
	"webhook-url":      "webhook.url",
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aciclean",
		Short: "Purge learned endpoints from an ACI endpoint group",
		Long: `aciclean logs in to a Cisco APIC, lists the learned endpoints (fvCEp) of one
tenant/application-profile/EPG and deletes them one by one. A failed deletion
does not stop the rest of the batch.

Settings come from aciclean.yaml, an optional dotenv file, ACICLEAN_*
environment variables and flags, in increasing precedence.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to configuration file")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file with ACICLEAN_* variables (default: ./.env if present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "json", "log format: json or console")

	root.AddCommand(
		a.newPurgeCmd(),
		a.newListCmd(),
		a.newHistoryCmd(),
		a.newAnsibleCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, binds the running command's flags and builds
// the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return usageError(err)
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return usageError(err)
	}
	a.v = v

	logger, err := config.NewLogger(v)
	if err != nil {
		return usageError(err)
	}
	a.logger = logger

	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("configuration loaded", zap.String("source", f))
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func addControllerFlags(fs *pflag.FlagSet) {
	fs.String("controller", "", "APIC base URL, e.g. https://apic1.example.net")
	fs.StringP("username", "u", "", "APIC username")
	fs.Bool("insecure", false, "skip TLS certificate verification")
	fs.String("ca-file", "", "PEM bundle trusted in addition to the system roots")
	fs.Duration("timeout", 0, "per-request timeout (default 30s)")
}

func addScopeFlags(fs *pflag.FlagSet) {
	fs.StringP("tenant", "t", "", "tenant name")
	fs.StringP("app-profile", "a", "", "application profile name")
	fs.StringP("epg", "e", "", "endpoint group name")
}

// settings decodes and validates the configuration for a controller run.
func (a *app) settings() (*config.Settings, error) {
	s, err := config.Decode(a.v)
	if err != nil {
		return nil, usageError(err)
	}
	if err := s.Validate(); err != nil {
		return nil, usageError(err)
	}
	return s, nil
}

// credentials returns the configured login, prompting for the password
// when it is not set and a terminal is available.
func (a *app) credentials(s *config.Settings) (models.Credentials, error) {
	creds := s.Credentials()
	if creds.Password != "" {
		return creds, nil
	}
	if a.passwordPrompt == nil {
		return creds, usageError(fmt.Errorf("controller password not set (use %s_CONTROLLER_PASSWORD or a dotenv file)", config.EnvPrefix))
	}
	host := s.Controller.URL
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	pw, err := a.passwordPrompt(fmt.Sprintf("Password for %s@%s: ", creds.Username, host))
	if err != nil {
		return creds, usageError(err)
	}
	if pw == "" {
		return creds, usageError(fmt.Errorf("empty password"))
	}
	creds.Password = pw
	return creds, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skips configuration loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
}
