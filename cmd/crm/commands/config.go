package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/crm-client/internal/auth"
	"github.com/fivetwenty-io/crm-client/internal/client"
	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/internal/logging"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
	"github.com/fivetwenty-io/crm-client/pkg/crmclient"
)

// Config represents the CLI configuration file.
type Config struct {
	// Global settings
	Output   string `json:"output,omitempty"    yaml:"output,omitempty"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Endpoints
	APIEndpoint       string `json:"api_endpoint,omitempty"        yaml:"api_endpoint,omitempty"`
	LegacyAPIEndpoint string `json:"legacy_api_endpoint,omitempty" yaml:"legacy_api_endpoint,omitempty"`
	TokenURL          string `json:"token_url,omitempty"           yaml:"token_url,omitempty"`

	// Modern API credentials
	ClientID       string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	ClientSecret   string     `json:"client_secret,omitempty"    yaml:"client_secret,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	AccessToken    string     `json:"access_token,omitempty"     yaml:"access_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`

	// Legacy API credential
	AuthToken string `json:"auth_token,omitempty" yaml:"auth_token,omitempty"`
}

// configKeys maps settable keys to their fields.
func configKeys(config *Config) map[string]*string {
	return map[string]*string{
		"output":              &config.Output,
		"log_level":           &config.LogLevel,
		"api_endpoint":        &config.APIEndpoint,
		"legacy_api_endpoint": &config.LegacyAPIEndpoint,
		"token_url":           &config.TokenURL,
		"client_id":           &config.ClientID,
		"client_secret":       &config.ClientSecret,
		"refresh_token":       &config.RefreshToken,
		"access_token":        &config.AccessToken,
		"auth_token":          &config.AuthToken,
	}
}

// secretKeys are masked in table output.
var secretKeys = map[string]bool{
	"client_secret": true,
	"refresh_token": true,
	"access_token":  true,
	"auth_token":    true,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the CRM CLI configuration stored in $HOME/.crm/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked in table output",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			switch viper.GetString("output") {
			case constants.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(config)
			case constants.FormatYAML:
				return yaml.NewEncoder(os.Stdout).Encode(config)
			default:
				return displayConfigTable(config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value such as api_endpoint, client_id or output",
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if err := setConfigValue(config, args[0], args[1]); err != nil {
				return err
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Set %s\n", args[0])

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if err := setConfigValue(config, args[0], ""); err != nil {
				return err
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Unset %s\n", args[0])

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			_, _ = fmt.Fprintln(os.Stdout, "Cleared all configuration")

			return nil
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	field, ok := configKeys(config)[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	if key == "output" && value != "" {
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		default:
			return constants.ErrInvalidOutputFormat
		}
	}

	*field = value

	if key == "access_token" {
		config.TokenExpiresAt = nil
	}

	return nil
}

func loadConfig() *Config {
	config := &Config{
		Output:            viper.GetString("output"),
		LogLevel:          viper.GetString("log_level"),
		APIEndpoint:       viper.GetString("api_endpoint"),
		LegacyAPIEndpoint: viper.GetString("legacy_api_endpoint"),
		TokenURL:          viper.GetString("token_url"),
		ClientID:          viper.GetString("client_id"),
		ClientSecret:      viper.GetString("client_secret"),
		RefreshToken:      viper.GetString("refresh_token"),
		AccessToken:       viper.GetString("access_token"),
		AuthToken:         viper.GetString("auth_token"),
	}

	config.TokenExpiresAt = parseTimestamp(viper.GetString("token_expires_at"))
	config.LastRefreshed = parseTimestamp(viper.GetString("last_refreshed"))

	return config
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}

	return &t
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep the in-process view in sync for later reads.
	for key, value := range configKeys(config) {
		viper.Set(key, *value)
	}

	if config.TokenExpiresAt != nil {
		viper.Set("token_expires_at", config.TokenExpiresAt.Format(time.RFC3339))
	}

	if config.LastRefreshed != nil {
		viper.Set("last_refreshed", config.LastRefreshed.Format(time.RFC3339))
	}

	return nil
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Value")

	keys := configKeys(config)

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		_ = table.Append(name, formatConfigValue(name, *keys[name]))
	}

	if config.TokenExpiresAt != nil {
		_ = table.Append("token_expires_at", config.TokenExpiresAt.Format(time.RFC3339))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(key, value string) string {
	if value == "" {
		return "-"
	}

	if secretKeys[key] {
		return "********"
	}

	return value
}

// hasCredentials reports whether any API credential is configured.
func (c *Config) hasCredentials() bool {
	return c.AccessToken != "" || c.AuthToken != "" || (c.RefreshToken != "" && c.ClientID != "")
}

// buildCRMConfig translates the CLI configuration into a client config.
func buildCRMConfig(config *Config) *crm.Config {
	crmConfig := &crm.Config{
		APIEndpoint:       config.APIEndpoint,
		LegacyAPIEndpoint: config.LegacyAPIEndpoint,
		TokenURL:          config.TokenURL,
		AccessToken:       config.AccessToken,
		AuthToken:         config.AuthToken,
		ClientID:          config.ClientID,
		ClientSecret:      config.ClientSecret,
		RefreshToken:      config.RefreshToken,
		UserAgent:         "crm-cli",
	}

	if viper.GetBool("verbose") {
		crmConfig.Debug = true
		crmConfig.Logger = logging.NewAdapter(logging.NewLogger("crm-cli"))
	}

	return crmConfig
}

// CreateClient creates a CRM client from the CLI configuration. With a refresh
// token configured, refreshed access tokens are written back to the config file.
func CreateClient(ctx context.Context) (crm.Client, error) {
	config := loadConfig()
	if !config.hasCredentials() {
		return nil, constants.ErrNotAuthenticated
	}

	crmConfig := buildCRMConfig(config)

	if config.RefreshToken == "" || config.ClientID == "" {
		crmClient, err := crmclient.New(ctx, crmConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create CRM client: %w", err)
		}

		return crmClient, nil
	}

	if crmConfig.APIEndpoint == "" {
		crmConfig.APIEndpoint = constants.DefaultAPIEndpoint
	}

	if crmConfig.LegacyAPIEndpoint == "" {
		crmConfig.LegacyAPIEndpoint = constants.DefaultLegacyAPIEndpoint
	}

	crmClient, err := client.NewWithTokenManager(ctx, crmConfig, createTokenManager(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create client with token manager: %w", err)
	}

	return crmClient, nil
}

func createTokenManager(config *Config) auth.TokenManager {
	logger := logging.NewLogger("crm-cli")

	var initialExpiry time.Time
	if config.TokenExpiresAt != nil {
		initialExpiry = *config.TokenExpiresAt
	}

	return auth.NewPersistingTokenManager(
		&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
		},
		NewConfigPersister(),
		initialExpiry,
		func(err error) {
			logger.Warn().Err(err).Msg("failed to persist refreshed access token")
		},
	)
}
