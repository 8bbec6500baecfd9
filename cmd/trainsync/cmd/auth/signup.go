package auth

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/prompt"
	"github.com/trainsync/trainsync/pkg/sdk"
)

var (
	signupEmail         string
	signupFirstName     string
	signupLastName      string
	signupInviteToken   string
	signupPasswordStdin bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a TrainSync account",
	Long: `Registers a new account and signs it in.

With --invite-token the invitation is verified first; its email is used unless
--email is given, and the server assigns the invited role (for example coach).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		if cfg.ClientProvider.Ephemeral() {
			return errors.New("a --token/TRAINSYNC_TOKEN session is active; unset it to sign up")
		}
		ctx := cmd.Context()
		authn := cfg.ClientProvider.Authenticator(ctx)

		email := signupEmail
		if signupInviteToken != "" {
			invite, err := authn.VerifyInvite(ctx, signupInviteToken)
			if err != nil {
				return fmt.Errorf("failed to verify invitation: %w", err)
			}
			if !invite.Valid {
				return errors.New("invitation is invalid or has expired")
			}
			pterm.Info.Printf("Invitation for %s (%s)\n", invite.Email, invite.Role)
			if email == "" {
				email = invite.Email
			}
		}

		var err error
		fill := func(current, title string) string {
			if err != nil {
				return ""
			}
			var v string
			v, err = prompt.Fill(current, cfg.NonInteractive, prompt.Field{Title: title, Required: true})
			return v
		}
		in := sdk.SignUpInput{
			Email:       fill(email, "Email"),
			FirstName:   fill(signupFirstName, "First name"),
			LastName:    fill(signupLastName, "Last name"),
			InviteToken: signupInviteToken,
		}
		if err != nil {
			return err
		}
		if in.Password, err = readPassword(cmd, signupPasswordStdin, cfg.NonInteractive); err != nil {
			return err
		}

		res, err := authn.SignUp(ctx, in)
		if err != nil {
			return loginError(err)
		}

		printSignedIn(res)
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupFirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupLastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupInviteToken, "invite-token", "", "Invitation token from an invite link")
	signupCmd.Flags().BoolVar(&signupPasswordStdin, "password-stdin", false, "Read the password from stdin")
}
