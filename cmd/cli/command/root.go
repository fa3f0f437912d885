package command

// root.go defines the root command for the imis CLI.
// set up the global flags here.

import (
	"fmt"
	"os"

	"imis/cmd/cli/authentication"
	"imis/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var (
	apiURL string // Global flag for API server URL
	token  string // authentication token(jwt), falls back to the keyring
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imisctl",
	Short: "imisctl - operator tool for the imis realtime server",
	Long: `imisctl runs and operates the imis realtime server. Use it to:
- Start the server and migrate its schema
- Raise notifications through Redis or the internal HTTP trigger
- Inspect and clear a user's notification inbox
- Watch live websocket events as a given user

Use "imisctl command --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("IMIS_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("IMIS_TOKEN"), "JWT used for API calls (default: token saved by 'auth token --save')")
}

// apiClient builds an HTTP client carrying the best available token
func apiClient() (*client.HTTPClient, error) {
	c := client.NewHTTPClient(apiURL)
	if token != "" {
		c.SetToken(token)
		return c, nil
	}

	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, fmt.Errorf("read saved token: %w", err)
	}
	if creds == nil {
		return nil, fmt.Errorf("no token: pass --token or run 'imisctl auth token --save'")
	}
	c.SetToken(creds.AccessToken)
	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
