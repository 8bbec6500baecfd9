package nav

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/prompt"
	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

var openMaxHops int

// OpenCmd navigates to an app location as the current session would.
var OpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open an app location",
	Long: `Resolves a location the way the TrainSync app does: route lookup, chrome
selection, the role guard and any redirects it triggers.

Examples:
  trainsync open /admin/training-plans/42
  trainsync open /dashboard`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		var opts []navigation.VisitorOption
		if openMaxHops > 0 {
			opts = append(opts, navigation.WithMaxHops(openMaxHops))
		}
		if prompt.IsTerminal(os.Stderr) {
			opts = append(opts, navigation.WithLoadingHook(spinnerHook))
		}

		visitor := cfg.ClientProvider.Visitor(cmd.Context(), opts...)
		visit, err := visitor.Visit(cmd.Context(), args[0])
		if visit != nil {
			printVisit(visit)
		}
		if errors.Is(err, navigation.ErrRedirectLoop) {
			return fmt.Errorf("navigation did not settle: %w", err)
		}
		if err != nil {
			return err
		}
		if visit.NotFound() {
			return fmt.Errorf("no page at %s", visit.Path)
		}
		return nil
	},
}

func init() {
	OpenCmd.Flags().IntVar(&openMaxHops, "max-hops", 0, "Redirects to follow before giving up (default 8)")
}

// spinnerHook shows a spinner while a guard resolves the identity.
func spinnerHook(path string) func(navigation.Result) {
	spinner, err := pterm.DefaultSpinner.WithWriter(os.Stderr).Start("Checking access to " + path)
	if err != nil {
		return nil
	}
	return func(res navigation.Result) {
		spinner.RemoveWhenDone = true
		_ = spinner.Stop()
	}
}

func printVisit(v *navigation.Visit) {
	for _, hop := range v.Hops {
		pterm.Warning.Printf("%s -> %s (%s)\n", hop.From, hop.To, hop.Reason)
	}

	pterm.DefaultSection.Println(v.Route.Title)
	pterm.Info.Printf("Location: %s\n", v.Path)
	pterm.Info.Printf("Chrome: %s\n", v.Chrome)
	if v.Guarded {
		pterm.Info.Printf("Access: %s (%s)\n", v.Route.Requirement, v.Result.State)
	}
	if v.Identity != nil {
		pterm.Info.Printf("Signed in as: %s (%s)\n", v.Identity.DisplayName(), v.Identity.Role)
	}

	if len(v.Params) > 0 {
		keys := make([]string, 0, len(v.Params))
		for k := range v.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pterm.Info.Printf("%s: %s\n", k, v.Params[k])
		}
	}
}
