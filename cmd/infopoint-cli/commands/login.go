package commands

import (
	"log/slog"

	"infopoint-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Validates the configured credentials against the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		err := client.EnsureAuthenticated(cmd.Context())
		if err != nil {
			serviceutil.Fatal("login failed", err)
		}
		slog.Info("login ok", "state", client.State().String())
	},
}
