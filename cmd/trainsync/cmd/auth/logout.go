package auth

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
)

var logoutRevoke bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of TrainSync",
	Long: `Clears the stored credential and user snapshot.

With --revoke the server is asked to end the session first. A failed revoke is
logged and the local session is cleared anyway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		authn := cfg.ClientProvider.Authenticator(cmd.Context())
		if err := authn.Logout(cmd.Context(), logoutRevoke); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		pterm.Success.Println("Signed out")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutRevoke, "revoke", false, "Also end the session on the server")
}
