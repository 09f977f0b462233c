package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/crm-client/internal/constants"
)

// loginOptions are the credentials given to the login command.
type loginOptions struct {
	apiEndpoint       string
	legacyAPIEndpoint string
	tokenURL          string
	clientID          string
	clientSecret      string
	refreshToken      string
	accessToken       string
	authToken         string
}

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store CRM API credentials",
		Long: `Store credentials for the CRM APIs.

With --refresh-token the client ID and secret are used to mint an access token
right away, so a bad credential fails here rather than on the first command.
Refreshed access tokens are written back to the config file as they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(commandContext(cmd), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiEndpoint, "api", "", "modern API endpoint URL")
	cmd.Flags().StringVar(&opts.legacyAPIEndpoint, "legacy-api", "", "legacy API endpoint URL")
	cmd.Flags().StringVar(&opts.tokenURL, "token-url", "", "OAuth token endpoint")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret (prompted when omitted)")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "OAuth2 refresh token")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "OAuth2 access token")
	cmd.Flags().StringVar(&opts.authToken, "auth-token", "", "legacy API authtoken")

	return cmd
}

func runLogin(ctx context.Context, opts *loginOptions) error {
	if opts.refreshToken == "" && opts.accessToken == "" && opts.authToken == "" {
		return constants.ErrMissingCredential
	}

	if opts.refreshToken != "" {
		if opts.clientID == "" {
			opts.clientID = promptLine("Client ID: ")
		}

		if opts.clientID == "" {
			return constants.ErrMissingClientID
		}

		if opts.clientSecret == "" {
			secret, err := promptSecret("Client secret: ")
			if err != nil {
				return err
			}

			opts.clientSecret = secret
		}

		if opts.clientSecret == "" {
			return constants.ErrMissingClientSecret
		}
	}

	config := loadConfig()
	applyLoginOptions(config, opts)

	if err := saveConfigStruct(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if config.RefreshToken != "" {
		manager := createTokenManager(config)
		if err := manager.RefreshToken(ctx); err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, "Credentials saved")

	return nil
}

func applyLoginOptions(config *Config, opts *loginOptions) {
	setIfNotEmpty := func(field *string, value string) {
		if value != "" {
			*field = value
		}
	}

	setIfNotEmpty(&config.APIEndpoint, opts.apiEndpoint)
	setIfNotEmpty(&config.LegacyAPIEndpoint, opts.legacyAPIEndpoint)
	setIfNotEmpty(&config.TokenURL, opts.tokenURL)
	setIfNotEmpty(&config.AuthToken, opts.authToken)

	if opts.refreshToken != "" {
		config.ClientID = opts.clientID
		config.ClientSecret = opts.clientSecret
		config.RefreshToken = opts.refreshToken
		config.AccessToken = ""
		config.TokenExpiresAt = nil
	}

	if opts.accessToken != "" {
		config.AccessToken = opts.accessToken
		config.TokenExpiresAt = nil
	}
}

func promptLine(prompt string) string {
	_, _ = fmt.Fprint(os.Stdout, prompt)

	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')

	return strings.TrimSpace(line)
}

func promptSecret(prompt string) (string, error) {
	_, _ = fmt.Fprint(os.Stdout, prompt)

	secret, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout)

	return strings.TrimSpace(string(secret)), nil
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored CRM credentials",
		Long:  "Clear all stored tokens and client credentials from the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.ClientSecret = ""
			config.RefreshToken = ""
			config.AccessToken = ""
			config.AuthToken = ""
			config.TokenExpiresAt = nil
			config.LastRefreshed = nil

			if err := saveConfigStruct(config); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			viper.Set("token_expires_at", "")

			_, _ = fmt.Fprintln(os.Stdout, "Successfully logged out")

			return nil
		},
	}
}
