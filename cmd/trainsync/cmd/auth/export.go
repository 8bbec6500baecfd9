package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/prompt"
)

// tokenEnv is read back by the root command as an ephemeral credential.
const tokenEnv = config.EnvPrefix + "TOKEN"

var shellFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the session token as an environment variable",
	Long: `Outputs shell commands that set TRAINSYNC_TOKEN to the stored credential.

Processes started with that variable use the token directly and never touch
the credential store, which suits CI jobs and containers.

Supported shells:
  - posix (bash, zsh, sh) - default
  - fish
  - powershell

Usage:
  # POSIX shells (bash/zsh/sh)
  eval $(trainsync auth export)

  # Fish shell
  eval (trainsync auth export --shell fish)

  # PowerShell
  trainsync auth export --shell powershell | Invoke-Expression`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&shellFormat, "shell", "", "Shell format: posix, fish, powershell (auto-detected if not specified)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.MustFromContext(cmd.Context())

	ts, err := cfg.ClientProvider.TokenSource(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w\n\nPlease run 'trainsync auth login' first", err)
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if !tok.Valid() {
		return fmt.Errorf("access token has expired\n\nPlease run 'trainsync auth login' to refresh your credentials")
	}

	format := shellFormat
	if format == "" {
		format = detectShell(os.Getenv("SHELL"))
	}

	line, hint, err := exportLine(strings.ToLower(format), tok.AccessToken)
	if err != nil {
		return err
	}

	// Instructions only when stdout is a TTY, not when piped into eval.
	if prompt.IsTerminal(os.Stdout) {
		fmt.Fprintln(os.Stderr, "# Run this command to configure your environment:")
		fmt.Fprintf(os.Stderr, "#   %s\n\n", hint)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}

// exportLine renders the assignment for format along with the usage hint.
func exportLine(format, token string) (line, hint string, err error) {
	switch format {
	case "posix", "bash", "zsh", "sh":
		return fmt.Sprintf("export %s=%q", tokenEnv, token), "eval $(trainsync auth export)", nil
	case "fish":
		return fmt.Sprintf("set -x %s %q", tokenEnv, token), "eval (trainsync auth export --shell fish)", nil
	case "powershell", "pwsh", "ps1":
		return fmt.Sprintf("$env:%s=%q", tokenEnv, token), "trainsync auth export --shell powershell | Invoke-Expression", nil
	default:
		return "", "", fmt.Errorf("unsupported shell format: %s\n\nSupported formats: posix, fish, powershell", format)
	}
}

// detectShell maps a $SHELL path to an export format.
func detectShell(shell string) string {
	switch filepath.Base(shell) {
	case "fish":
		return "fish"
	case "pwsh", "powershell":
		return "powershell"
	default:
		return "posix"
	}
}
