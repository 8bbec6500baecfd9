package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/pkg/sdk"
)

var statusOffline bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	Long: `Shows the stored session and, unless --offline is set, asks the server who
the credential belongs to. A credential the server rejects is cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		ctx := cmd.Context()

		store, err := cfg.ClientProvider.Store(ctx)
		if err != nil {
			pterm.Warning.Printf("Credential storage unavailable: %v\n", err)
		}

		cred, ok := store.Read()
		if !ok {
			return errors.New("not logged in\n\nRun 'trainsync auth login' to sign in")
		}

		pterm.DefaultSection.Println("Authentication Status")
		pterm.Info.Printf("Server: %s\n", cfg.ClientProvider.APIURL())
		if cfg.ClientProvider.Ephemeral() {
			pterm.Info.Println("Credential: supplied by --token/TRAINSYNC_TOKEN")
		}
		if exp, ok := cred.ExpiresAt(); ok {
			if cred.IsExpired(time.Now()) {
				pterm.Warning.Printf("Token expired at: %s\n", exp.Local().Format(time.RFC1123))
			} else {
				pterm.Info.Printf("Token expires at: %s\n", exp.Local().Format(time.RFC1123))
			}
		}
		if snap, ok := store.Snapshot(); ok {
			pterm.Info.Printf("Stored user: %s <%s> (%s)\n", snap.DisplayName(), snap.Email, snap.Role)
		}

		if statusOffline {
			return nil
		}

		identity, err := cfg.ClientProvider.Resolver(ctx).ResolveCurrentIdentity(ctx)
		switch {
		case errors.Is(err, sdk.ErrUnauthenticated):
			pterm.Warning.Println("The server rejected the stored credential; the session has been cleared")
			return errors.New("not logged in\n\nRun 'trainsync auth login' to sign in")
		case err != nil:
			return fmt.Errorf("failed to verify session: %w", err)
		}

		pterm.DefaultSection.Println("Current Identity")
		data := pterm.TableData{
			{"USER ID", "NAME", "EMAIL", "ROLE", "HOME"},
			{identity.UserID, identity.DisplayName(), identity.Email, string(identity.Role), identity.Role.HomeRoute()},
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusOffline, "offline", false, "Only show the stored session")
}
