package command

import (
	"fmt"
	"time"

	"imis/cmd/cli/authentication"
	"imis/internal/config"
	"imis/internal/microservices/http-api/service"

	"github.com/spf13/cobra"
)

// auth.go mints and stores access tokens signed with the server's JWT_SECRET.

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Token management commands",
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token signed with JWT_SECRET",
	Long: `Issue an access token for a user or an internal service. Needs the same
JWT_SECRET the server runs with. Use --scope notify:publish for callers of
POST /internal/notify.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		subject, _ := cmd.Flags().GetString("subject")
		scopes, _ := cmd.Flags().GetStringSlice("scope")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		save, _ := cmd.Flags().GetBool("save")

		signed, err := service.NewAuthService(cfg.JWTSecret).IssueToken(subject, scopes, role, ttl)
		if err != nil {
			return err
		}

		if save {
			if err := authentication.StoreTokens(&authentication.StoredCredentials{
				AccessToken: signed,
				Subject:     subject,
				Scopes:      scopes,
				ExpiresAt:   time.Now().Add(ttl).Unix(),
			}); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Println("✓ Token saved to keyring")
		}

		fmt.Println(signed)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteTokens(); err != nil {
			return err
		}
		fmt.Println("✓ Saved token removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(tokenCmd)
	authCmd.AddCommand(logoutCmd)

	tokenCmd.Flags().String("subject", "", "user or service id the token is issued to")
	tokenCmd.Flags().StringSlice("scope", nil, "granted scope (repeatable)")
	tokenCmd.Flags().String("role", "service", "role claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().Bool("save", false, "save the token to the OS keyring")
	tokenCmd.MarkFlagRequired("subject")
}
