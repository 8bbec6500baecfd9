package nav

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

// RoutesCmd lists the app's route table.
var RoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List app locations and who may open them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pterm.DefaultTable.
			WithHasHeader().
			WithWriter(cmd.OutOrStdout()).
			WithData(routeTable(navigation.DefaultRoutes().All())).
			Render()
	},
}

func routeTable(routes []navigation.Route) pterm.TableData {
	data := pterm.TableData{{"PATTERN", "TITLE", "ACCESS"}}
	for _, r := range routes {
		data = append(data, []string{r.Pattern, r.Title, access(r)})
	}
	return data
}

func access(r navigation.Route) string {
	switch {
	case r.Kind == navigation.KindRedirect:
		return "redirect to " + r.RedirectTo
	case r.Protected:
		return r.Requirement.String()
	default:
		return "public"
	}
}
