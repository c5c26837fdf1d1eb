package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "podium",
	Short: "Family sport challenge backend",
	Long: `podium links family members' Strava accounts, scores their activities
with per-sport weights and serves leaderboards to the chat bot.

Configuration is read from the environment (and a .env file in development).`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
