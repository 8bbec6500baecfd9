package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/prompt"
	"github.com/trainsync/trainsync/pkg/sdk"
)

var (
	loginEmail         string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to TrainSync",
	Long: `Signs in with email and password and stores the session credential.

The password is prompted for interactively, or read from the first line of
stdin with --password-stdin:

  echo "$PASSWORD" | trainsync auth login --email coach@example.com --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		if cfg.ClientProvider.Ephemeral() {
			return errors.New("a --token/TRAINSYNC_TOKEN session is active; unset it to sign in")
		}

		if proceed, err := confirmReplace(cmd.Context(), cfg); err != nil || !proceed {
			return err
		}

		email, err := prompt.Fill(loginEmail, cfg.NonInteractive, prompt.Field{
			Title:       "Email",
			Placeholder: "you@example.com",
			Required:    true,
		})
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, loginPasswordStdin, cfg.NonInteractive)
		if err != nil {
			return err
		}

		authn := cfg.ClientProvider.Authenticator(cmd.Context())
		res, err := authn.Login(cmd.Context(), sdk.LoginInput{Email: email, Password: password})
		if err != nil {
			return loginError(err)
		}

		printSignedIn(res)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
}

// confirmReplace asks before replacing a stored session. Non-interactive
// runs replace it silently.
func confirmReplace(ctx context.Context, cfg *config.GlobalConfig) (bool, error) {
	if cfg.NonInteractive || !prompt.IsTerminal(os.Stdin) {
		return true, nil
	}
	store, _ := cfg.ClientProvider.Store(ctx)
	snap, ok := store.Snapshot()
	if !sdk.HasCredential(store) || !ok {
		return true, nil
	}
	return prompt.Confirm(fmt.Sprintf("Already signed in as %s. Sign in again?", snap.Email), false)
}

func readPassword(cmd *cobra.Command, fromStdin, nonInteractive bool) (string, error) {
	if fromStdin {
		return readSecret(cmd.InOrStdin())
	}
	return prompt.Fill("", nonInteractive, prompt.Field{Title: "Password", Secret: true, Required: true})
}

func loginError(err error) error {
	switch {
	case errors.Is(err, sdk.ErrInvalidInput):
		return err
	case sdk.IsUnauthorized(err):
		return errors.New("invalid email or password")
	case errors.Is(err, sdk.ErrStorageUnavailable):
		return fmt.Errorf("signed in, but the session could not be stored: %w", err)
	default:
		return fmt.Errorf("sign-in failed: %w", err)
	}
}

func printSignedIn(res *sdk.LoginResult) {
	pterm.Success.Println("Signed in")
	if res.Identity != nil {
		pterm.Info.Printf("Authenticated as: %s (%s, %s)\n", res.Identity.DisplayName(), res.Identity.Email, res.Identity.Role)
	}
	if !res.ExpiresAt.IsZero() {
		pterm.Info.Printf("Session expires: %s\n", res.ExpiresAt.Local().Format(time.RFC1123))
	}
	pterm.Info.Printf("Next: trainsync open %s\n", res.Home)
}
