package cmd

import (
	"fmt"
	"time"

	"github.com/quatton/podium/pkg/papi/services/iam"
	"github.com/spf13/cobra"
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Mint a bearer token for the bot and admin endpoints",
	RunE:  adminToken,
}

var (
	adminSubject string
	adminTTL     time.Duration
)

func init() {
	rootCmd.AddCommand(adminTokenCmd)
	adminTokenCmd.Flags().StringVar(&adminSubject, "subject", "bot", "Who the token is for")
	adminTokenCmd.Flags().DurationVar(&adminTTL, "ttl", 0, "Token lifetime (default ADMIN_TOKEN_TTL)")
}

func adminToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ttl := adminTTL
	if ttl == 0 {
		ttl = time.Duration(cfg.AdminTTL) * time.Second
	}
	token, err := iam.NewIAMService(cfg.AuthSecret, ttl).IssueToken(adminSubject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
