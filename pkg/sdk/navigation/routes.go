package navigation

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// Kind classifies a route.
type Kind int

const (
	KindPage Kind = iota
	KindRedirect
	KindNotFound
)

// Route is one registered location. Patterns use chi syntax ("/admin/training-plans/{id}").
type Route struct {
	Pattern     string
	Title       string
	Kind        Kind
	RedirectTo  string
	Protected   bool
	Requirement Requirement
}

// Match is the outcome of resolving a path against the route table.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// NotFoundRoute is matched by every unregistered path.
var NotFoundRoute = Route{Pattern: "*", Title: "Page not found", Kind: KindNotFound}

// Routes is the app's route table.
type Routes struct {
	mux    *chi.Mux
	routes map[string]Route
}

// NewRoutes returns an empty table.
func NewRoutes() *Routes {
	return &Routes{mux: chi.NewMux(), routes: make(map[string]Route)}
}

// Page registers a public page.
func (r *Routes) Page(pattern, title string) *Routes {
	return r.add(Route{Pattern: pattern, Title: title, Kind: KindPage})
}

// Redirect registers a location that immediately navigates to target.
func (r *Routes) Redirect(pattern, target string) *Routes {
	return r.add(Route{Pattern: pattern, Kind: KindRedirect, RedirectTo: target})
}

// Protected registers a guarded page.
func (r *Routes) Protected(pattern, title string, req Requirement) *Routes {
	return r.add(Route{Pattern: pattern, Title: title, Kind: KindPage, Protected: true, Requirement: req})
}

func (r *Routes) add(route Route) *Routes {
	r.routes[route.Pattern] = route
	r.mux.Get(route.Pattern, http.NotFound)
	return r
}

// Match resolves path, ignoring query, fragment, and a trailing slash.
func (r *Routes) Match(path string) Match {
	path = CleanPath(path)
	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) {
		return Match{Route: NotFoundRoute, Path: path}
	}
	route, ok := r.routes[rctx.RoutePattern()]
	if !ok {
		return Match{Route: NotFoundRoute, Path: path}
	}
	m := Match{Route: route, Path: path}
	if n := len(rctx.URLParams.Keys); n > 0 {
		m.Params = make(map[string]string, n)
		for i, key := range rctx.URLParams.Keys {
			m.Params[key] = rctx.URLParams.Values[i]
		}
	}
	return m
}

// All lists registered routes ordered by pattern.
func (r *Routes) All() []Route {
	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

// CleanPath strips query and fragment and normalizes slashes.
func CleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// DefaultRoutes is the TrainSync route table.
func DefaultRoutes() *Routes {
	r := NewRoutes()

	r.Redirect("/", "/home")
	r.Page("/home", "Home").
		Page("/about", "About").
		Page("/contact", "Contact").
		Page("/privacy-policy", "Privacy Policy").
		Page(sdk.SignInPath, "Log In").
		Page("/signup", "Sign Up").
		Page("/careers", "Careers").
		Page("/forgot-password", "Forgot Password").
		Page("/reset-password", "Reset Password").
		Page("/features", "Features").
		Page("/features/individuals", "For Individuals").
		Page("/features/coaches", "For Coaches").
		Page("/features/shared", "Shared Features").
		Page("/pricing", "Pricing").
		Page("/resources/updates", "Platform Updates").
		Page("/resources/fitness-tips", "Fitness Tips").
		Page("/invite-signup", "Invite Sign Up")

	user := RequireAuthenticated()
	r.Protected("/dashboard", "Dashboard", user).
		Protected("/dashboard/settings", "Settings", user).
		Protected("/dashboard/exercises", "Exercises", user).
		Protected("/dashboard/progress", "Progress", user).
		Protected("/dashboard/meal-plans", "Meal Plans", user)

	admin := RequireRole(sdk.RoleAdmin)
	r.Protected("/admin", "Admin Dashboard", admin).
		Protected("/admin/users", "User Management", admin).
		Protected("/admin/settings", "Admin Settings", admin).
		Protected("/admin/training-plans", "All Training Plans", admin).
		Protected("/admin/meal-plans", "All Meal Plans", admin).
		Protected("/admin/meal-plans/{id}/meals", "Meal Plan", admin).
		Protected("/admin/training-plans/{id}", "Training Plan", admin).
		Protected("/admin/logs", "Audit Log", admin)

	coach := RequireRole(sdk.RoleCoach)
	r.Protected("/coach", "Coach Dashboard", coach).
		Protected("/coach/clients", "Clients", coach).
		Protected("/coach/training-plans", "Training Plans", coach).
		Protected("/coach/training-plans/{planId}/exercises", "Plan Exercises", coach).
		Protected("/coach/meal-plans", "Meal Plans", coach).
		Protected("/coach/meal-plans/{planId}/meals", "Meals", coach).
		Protected("/coach/settings", "Coach Settings", coach).
		Protected("/coach/client-progress", "Client Progress", coach)

	return r
}
