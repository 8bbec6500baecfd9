package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// State is the phase of a guard activation.
type State int

const (
	StateLoading State = iota
	StateAuthorized
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateDenied:
		return "denied"
	default:
		return "loading"
	}
}

// Result is the guard's decision. RedirectTo is set only when denied.
type Result struct {
	State      State
	RedirectTo string
}

// Loading is the initial result of every mount.
func Loading() Result { return Result{State: StateLoading} }

// Authorized lets the protected view render.
func Authorized() Result { return Result{State: StateAuthorized} }

// Denied renders nothing and navigates to target.
func Denied(target string) Result { return Result{State: StateDenied, RedirectTo: target} }

// Settled reports whether the result is terminal for the current mount.
func (r Result) Settled() bool { return r.State != StateLoading }

// Requirement is the constraint a protected view declares at registration.
// The zero value admits any authenticated role.
type Requirement struct {
	role sdk.Role
}

// RequireRole admits only role.
func RequireRole(role sdk.Role) Requirement { return Requirement{role: role} }

// RequireAuthenticated admits every role.
func RequireAuthenticated() Requirement { return Requirement{} }

// Role returns the required role, or "" for any authenticated role.
func (r Requirement) Role() sdk.Role { return r.role }

// Admits reports whether an identity with role satisfies the requirement.
func (r Requirement) Admits(role sdk.Role) bool {
	return r.role == "" || r.role == role
}

func (r Requirement) String() string {
	if r.role == "" {
		return "authenticated"
	}
	return string(r.role)
}

// Guard decides whether one protected view renders. Each mounted view owns
// its guard; identities are never shared between guards.
type Guard struct {
	requirement Requirement
	store       sdk.CredentialStore
	resolver    sdk.IdentityResolver

	mu         sync.Mutex
	generation uint64
	mounted    bool
	result     Result
	identity   *sdk.Identity
	cancel     context.CancelFunc
	done       chan struct{}
	calls      int
}

// NewGuard returns an unmounted guard.
func NewGuard(req Requirement, store sdk.CredentialStore, resolver sdk.IdentityResolver) *Guard {
	return &Guard{
		requirement: req,
		store:       store,
		resolver:    resolver,
		result:      Loading(),
		done:        make(chan struct{}),
	}
}

// Requirement returns the guard's requirement.
func (g *Guard) Requirement() Requirement { return g.requirement }

// Mount (re)starts evaluation from Loading. Without a stored credential the
// guard is denied immediately and no request is made; otherwise the identity
// is resolved in the background. Mounting an already mounted guard discards
// the previous activation.
func (g *Guard) Mount(ctx context.Context) {
	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.generation++
	gen := g.generation
	g.mounted = true
	g.result = Loading()
	g.identity = nil
	g.done = make(chan struct{})

	if !sdk.HasCredential(g.store) {
		g.settleLocked(Denied(sdk.SignInPath))
		g.cancel = nil
		g.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.calls++
	g.mu.Unlock()

	go g.resolve(ctx, gen)
}

// Unmount stops the activation. A resolution still in flight is cancelled
// and its outcome discarded.
func (g *Guard) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mounted = false
	g.generation++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Result returns the current decision.
func (g *Guard) Result() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// Identity returns the identity resolved by the current activation.
func (g *Guard) Identity() (*sdk.Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return nil, false
	}
	id := *g.identity
	return &id, true
}

// Calls reports how many identity resolutions this guard started.
func (g *Guard) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Done is closed when the current activation settles. It is never closed for
// an activation that was unmounted first.
func (g *Guard) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Wait blocks until the current activation settles or ctx ends.
func (g *Guard) Wait(ctx context.Context) (Result, error) {
	select {
	case <-g.Done():
		return g.Result(), nil
	case <-ctx.Done():
		return g.Result(), ctx.Err()
	}
}

func (g *Guard) resolve(ctx context.Context, gen uint64) {
	identity, err := g.resolver.ResolveCurrentIdentity(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.mounted || gen != g.generation {
		return
	}

	switch {
	case err == nil && identity != nil:
		g.identity = identity
		if g.requirement.Admits(identity.Role) {
			g.settleLocked(Authorized())
		} else {
			g.settleLocked(Denied(identity.Role.HomeRoute()))
		}
	case errors.Is(err, sdk.ErrUnauthenticated):
		g.settleLocked(Denied(sdk.SignInPath))
	default:
		// Unreachable or malformed: fail closed.
		g.settleLocked(Denied(sdk.SignInPath))
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// settleLocked applies the only transition out of Loading.
func (g *Guard) settleLocked(r Result) {
	if g.result.Settled() {
		return
	}
	g.result = r
	close(g.done)
}
