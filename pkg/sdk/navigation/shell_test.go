package navigation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trainsync/trainsync/pkg/sdk"
	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

func TestShellSelector_Select(t *testing.T) {
	shell := navigation.NewShellSelector()

	tests := []struct {
		path          string
		hasCredential bool
		want          navigation.Chrome
	}{
		{"/home", false, navigation.ChromeAnonymous},
		{"/home", true, navigation.ChromeAuthenticated},
		{"/pricing?plan=pro", true, navigation.ChromeAuthenticated},
		{"/dashboard", false, navigation.ChromeNone},
		{"/dashboard/progress", true, navigation.ChromeNone},
		{"/admin/users", true, navigation.ChromeNone},
		{"/coach/meal-plans/3/meals", true, navigation.ChromeNone},
		{"/features/coaches", false, navigation.ChromeAnonymous},
		{"/coaching-tips", true, navigation.ChromeAuthenticated},
		{"/resources?tab=admin", false, navigation.ChromeAnonymous},
	}

	for _, tt := range tests {
		got := shell.Select(tt.path, tt.hasCredential)
		assert.Equal(t, tt.want, got, "Select(%q, %v)", tt.path, tt.hasCredential)
		assert.Equal(t, got != navigation.ChromeNone, got.ShowsFooter())
	}
}

func TestShellSelector_SelectFor(t *testing.T) {
	shell := navigation.NewShellSelector()
	store := sdk.NewMemoryStore()

	assert.Equal(t, navigation.ChromeAnonymous, shell.SelectFor("/about", store))

	_ = store.Save("stale-but-present")
	assert.Equal(t, navigation.ChromeAuthenticated, shell.SelectFor("/about", store), "presence, not validity")

	_ = store.Clear()
	assert.Equal(t, navigation.ChromeAnonymous, shell.SelectFor("/about", store))
}

func TestShellSelector_CustomNamespaces(t *testing.T) {
	shell := navigation.NewShellSelector("/studio/")
	assert.Equal(t, navigation.ChromeNone, shell.Select("/studio/plans", false))
	assert.Equal(t, navigation.ChromeAnonymous, shell.Select("/dashboard", false))
	assert.Equal(t, "none", navigation.ChromeNone.String())
}
