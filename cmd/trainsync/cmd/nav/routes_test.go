package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trainsync/trainsync/pkg/sdk"
	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

func TestRouteTable(t *testing.T) {
	routes := navigation.NewRoutes().
		Redirect("/", "/home").
		Page("/home", "Home").
		Protected("/dashboard", "Dashboard", navigation.RequireAuthenticated()).
		Protected("/admin", "Admin Dashboard", navigation.RequireRole(sdk.RoleAdmin))

	data := routeTable(routes.All())
	assert.Equal(t, []string{"PATTERN", "TITLE", "ACCESS"}, data[0])

	byPattern := make(map[string]string)
	for _, row := range data[1:] {
		byPattern[row[0]] = row[2]
	}
	assert.Equal(t, map[string]string{
		"/":          "redirect to /home",
		"/home":      "public",
		"/dashboard": "authenticated",
		"/admin":     "admin",
	}, byPattern)
}

func TestRouteTable_DefaultsCoverRoleHomes(t *testing.T) {
	data := routeTable(navigation.DefaultRoutes().All())
	patterns := make(map[string]bool)
	for _, row := range data[1:] {
		patterns[row[0]] = true
	}
	for _, role := range sdk.Roles {
		assert.True(t, patterns[role.HomeRoute()], "route table lacks %s", role.HomeRoute())
	}
}
