package navigation

import (
	"context"
	"errors"
	"fmt"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// DefaultMaxHops bounds redirects followed by one visit.
const DefaultMaxHops = 8

// ErrRedirectLoop is returned when a visit keeps redirecting.
var ErrRedirectLoop = errors.New("redirect loop")

// Hop is one redirect taken during a visit.
type Hop struct {
	From   string
	To     string
	Reason string
}

// Hop reasons.
const (
	ReasonRouteRedirect  = "route redirect"
	ReasonNoCredential   = "not signed in"
	ReasonRole           = "role not permitted"
	ReasonSessionInvalid = "session invalid"
)

// Visit records the outcome of one navigation.
type Visit struct {
	Requested string
	Path      string
	Route     Route
	Params    map[string]string
	Chrome    Chrome
	// Guarded is true when the final page is protected; Result is then the
	// guard's decision.
	Guarded       bool
	Result        Result
	Identity      *sdk.Identity
	Hops          []Hop
	IdentityCalls int
}

// NotFound reports whether the visit ended on the 404 page.
func (v *Visit) NotFound() bool { return v.Route.Kind == KindNotFound }

// Visitor performs navigations: route resolution, chrome selection, guard
// activation and redirect following.
type Visitor struct {
	routes    *Routes
	shell     *ShellSelector
	store     sdk.CredentialStore
	resolver  sdk.IdentityResolver
	history   *History
	maxHops   int
	onLoading LoadingHook
}

// LoadingHook is called when a guard is still Loading after mount. The
// returned function, if any, is called with the settled result.
type LoadingHook func(path string) (settled func(Result))

// VisitorOption configures a Visitor.
type VisitorOption func(*Visitor)

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) VisitorOption {
	return func(v *Visitor) { v.maxHops = n }
}

// WithLoadingHook lets the caller draw a progress indicator while a guard loads.
func WithLoadingHook(fn LoadingHook) VisitorOption {
	return func(v *Visitor) { v.onLoading = fn }
}

// NewVisitor wires a Visitor. history should be the Navigator the dispatcher
// behind resolver uses, so session invalidation redirects are observed.
func NewVisitor(routes *Routes, shell *ShellSelector, store sdk.CredentialStore, resolver sdk.IdentityResolver, history *History, opts ...VisitorOption) *Visitor {
	v := &Visitor{
		routes:   routes,
		shell:    shell,
		store:    store,
		resolver: resolver,
		history:  history,
		maxHops:  DefaultMaxHops,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Visit navigates to path and follows redirects until a page renders.
func (v *Visitor) Visit(ctx context.Context, path string) (*Visit, error) {
	current := CleanPath(path)
	visit := &Visit{Requested: current}
	v.history.Push(current)

	seen := make(map[string]bool)
	for {
		if len(visit.Hops) > v.maxHops || seen[current] {
			return visit, fmt.Errorf("%w at %s", ErrRedirectLoop, current)
		}
		seen[current] = true

		m := v.routes.Match(current)
		if m.Route.Kind == KindRedirect {
			current = v.redirect(visit, current, m.Route.RedirectTo, ReasonRouteRedirect)
			continue
		}

		visit.Path = m.Path
		visit.Route = m.Route
		visit.Params = m.Params
		visit.Chrome = v.shell.SelectFor(current, v.store)
		visit.Guarded = m.Route.Protected
		visit.Result = Result{}
		visit.Identity = nil
		if !m.Route.Protected {
			return visit, nil
		}

		res, identity, calls, hard, err := v.guard(ctx, current, m.Route.Requirement)
		visit.IdentityCalls += calls
		if err != nil {
			return visit, err
		}
		visit.Result = res
		if res.State == StateAuthorized {
			visit.Identity = identity
			return visit, nil
		}

		switch {
		case hard:
			// The dispatcher already cleared the session and navigated.
			from := current
			current = v.history.Current()
			visit.Hops = append(visit.Hops, Hop{From: from, To: current, Reason: ReasonSessionInvalid})
		case res.RedirectTo == sdk.SignInPath:
			current = v.redirect(visit, current, res.RedirectTo, ReasonNoCredential)
		default:
			current = v.redirect(visit, current, res.RedirectTo, ReasonRole)
		}
	}
}

func (v *Visitor) guard(ctx context.Context, path string, req Requirement) (Result, *sdk.Identity, int, bool, error) {
	before := v.history.HardNavigations()

	g := NewGuard(req, v.store, v.resolver)
	g.Mount(ctx)
	defer g.Unmount()

	var settled func(Result)
	if !g.Result().Settled() && v.onLoading != nil {
		settled = v.onLoading(path)
	}
	res, err := g.Wait(ctx)
	if settled != nil {
		settled(res)
	}
	if err != nil {
		return res, nil, g.Calls(), false, err
	}
	identity, _ := g.Identity()
	return res, identity, g.Calls(), v.history.HardNavigations() > before, nil
}

func (v *Visitor) redirect(visit *Visit, from, to, reason string) string {
	to = CleanPath(to)
	visit.Hops = append(visit.Hops, Hop{From: from, To: to, Reason: reason})
	v.history.Push(to)
	return to
}
