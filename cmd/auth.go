package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fmuoria/nexushire/internal/googleapi"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Workspace access and cache the token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		creds := googleapi.Credentials{
			CredentialsPath: cfg.Google.CredentialsPath,
			TokenPath:       cfg.Google.TokenPath,
		}

		oauthCfg, err := creds.OAuthConfig()
		if err != nil {
			return err
		}

		code, _ := cmd.Flags().GetString("code")
		if code == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Go to the following link in your browser then type the authorization code:\n%v\n", googleapi.AuthCodeURL(oauthCfg))
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("unable to read authorization code: %w", err)
			}
			code = strings.TrimSpace(line)
		}

		if err := creds.ExchangeAndSave(cmd.Context(), oauthCfg, code); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.Google.TokenPath)
		return nil
	},
}

func init() {
	authCmd.Flags().String("code", "", "authorization code, prompted for when empty")
	rootCmd.AddCommand(authCmd)
}
