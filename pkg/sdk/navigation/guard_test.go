package navigation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainsync/trainsync/pkg/sdk"
	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

// stubResolver returns a fixed outcome. When block is set, each call waits
// for it to close; returned is signalled after every call.
type stubResolver struct {
	mu       sync.Mutex
	calls    int
	identity *sdk.Identity
	err      error
	block    chan struct{}
	returned chan struct{}
}

func (r *stubResolver) ResolveCurrentIdentity(ctx context.Context) (*sdk.Identity, error) {
	r.mu.Lock()
	r.calls++
	identity, err, block, returned := r.identity, r.err, r.block, r.returned
	r.mu.Unlock()

	if returned != nil {
		defer func() { returned <- struct{}{} }()
	}
	if block != nil {
		<-block
	}
	if identity != nil {
		id := *identity
		return &id, err
	}
	return nil, err
}

func (r *stubResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *stubResolver) setIdentity(id *sdk.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity = id
}

func signedInStore(t *testing.T) *sdk.MemoryStore {
	t.Helper()
	store := sdk.NewMemoryStore()
	require.NoError(t, store.Save("tok"))
	return store
}

func waitSettled(t *testing.T, g *navigation.Guard) navigation.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := g.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestGuard_NoCredential(t *testing.T) {
	resolver := &stubResolver{identity: &sdk.Identity{Role: sdk.RoleAdmin}}
	g := navigation.NewGuard(navigation.RequireRole(sdk.RoleAdmin), sdk.NewMemoryStore(), resolver)

	g.Mount(context.Background())
	defer g.Unmount()

	assert.Equal(t, navigation.Denied("/login"), g.Result(), "denied synchronously")
	assert.Equal(t, navigation.Denied("/login"), waitSettled(t, g))
	assert.Zero(t, g.Calls())
	assert.Zero(t, resolver.Calls())
}

func TestGuard_RoleDecisions(t *testing.T) {
	tests := []struct {
		name string
		req  navigation.Requirement
		role sdk.Role
		want navigation.Result
	}{
		{name: "admin on admin view", req: navigation.RequireRole(sdk.RoleAdmin), role: sdk.RoleAdmin, want: navigation.Authorized()},
		{name: "coach on admin view", req: navigation.RequireRole(sdk.RoleAdmin), role: sdk.RoleCoach, want: navigation.Denied("/coach")},
		{name: "end user on admin view", req: navigation.RequireRole(sdk.RoleAdmin), role: sdk.RoleEndUser, want: navigation.Denied("/dashboard")},
		{name: "admin on coach view", req: navigation.RequireRole(sdk.RoleCoach), role: sdk.RoleAdmin, want: navigation.Denied("/admin")},
		{name: "coach on coach view", req: navigation.RequireRole(sdk.RoleCoach), role: sdk.RoleCoach, want: navigation.Authorized()},
		{name: "coach on user dashboard", req: navigation.RequireAuthenticated(), role: sdk.RoleCoach, want: navigation.Authorized()},
		{name: "end user on user dashboard", req: navigation.RequireAuthenticated(), role: sdk.RoleEndUser, want: navigation.Authorized()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{identity: &sdk.Identity{UserID: "1", Role: tt.role}}
			g := navigation.NewGuard(tt.req, signedInStore(t), resolver)

			g.Mount(context.Background())
			defer g.Unmount()

			assert.Equal(t, tt.want, waitSettled(t, g))
			assert.Equal(t, 1, g.Calls())

			identity, ok := g.Identity()
			require.True(t, ok)
			assert.Equal(t, tt.role, identity.Role)
		})
	}
}

func TestGuard_ResolutionFailuresDeny(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "credential rejected", err: fmt.Errorf("%w: 401", sdk.ErrUnauthenticated)},
		{name: "service unreachable", err: fmt.Errorf("%w: connection refused", sdk.ErrUnreachable)},
		{name: "unclassified", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{err: tt.err}
			g := navigation.NewGuard(navigation.RequireAuthenticated(), signedInStore(t), resolver)

			g.Mount(context.Background())
			defer g.Unmount()

			assert.Equal(t, navigation.Denied("/login"), waitSettled(t, g))
			_, ok := g.Identity()
			assert.False(t, ok)
		})
	}
}

func TestGuard_LoadingUntilResolved(t *testing.T) {
	resolver := &stubResolver{
		identity: &sdk.Identity{Role: sdk.RoleAdmin},
		block:    make(chan struct{}),
	}
	g := navigation.NewGuard(navigation.RequireRole(sdk.RoleAdmin), signedInStore(t), resolver)

	g.Mount(context.Background())
	defer g.Unmount()

	assert.Equal(t, navigation.Loading(), g.Result())
	select {
	case <-g.Done():
		t.Fatal("guard settled before resolution")
	default:
	}

	close(resolver.block)
	assert.Equal(t, navigation.Authorized(), waitSettled(t, g))
}

func TestGuard_UnmountDiscardsLateResult(t *testing.T) {
	resolver := &stubResolver{
		identity: &sdk.Identity{Role: sdk.RoleEndUser},
		block:    make(chan struct{}),
		returned: make(chan struct{}, 1),
	}
	g := navigation.NewGuard(navigation.RequireRole(sdk.RoleAdmin), signedInStore(t), resolver)

	g.Mount(context.Background())
	g.Unmount()
	close(resolver.block)

	select {
	case <-resolver.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("resolver never returned")
	}

	assert.Never(t, func() bool { return g.Result().Settled() }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, navigation.Loading(), g.Result())
	_, ok := g.Identity()
	assert.False(t, ok)
}

func TestGuard_RemountReevaluates(t *testing.T) {
	resolver := &stubResolver{identity: &sdk.Identity{Role: sdk.RoleCoach}}
	g := navigation.NewGuard(navigation.RequireRole(sdk.RoleAdmin), signedInStore(t), resolver)
	defer g.Unmount()

	g.Mount(context.Background())
	assert.Equal(t, navigation.Denied("/coach"), waitSettled(t, g))

	resolver.setIdentity(&sdk.Identity{Role: sdk.RoleAdmin})
	g.Mount(context.Background())
	assert.Equal(t, navigation.Authorized(), waitSettled(t, g))
	assert.Equal(t, 2, g.Calls())
}

func TestGuard_WaitHonoursContext(t *testing.T) {
	resolver := &stubResolver{block: make(chan struct{})}
	defer close(resolver.block)
	g := navigation.NewGuard(navigation.RequireAuthenticated(), signedInStore(t), resolver)

	g.Mount(context.Background())
	defer g.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, navigation.Loading(), res)
}

func TestRequirement(t *testing.T) {
	authenticated := navigation.RequireAuthenticated()
	for _, role := range sdk.Roles {
		assert.True(t, authenticated.Admits(role), string(role))
	}
	assert.Equal(t, "authenticated", authenticated.String())

	admin := navigation.RequireRole(sdk.RoleAdmin)
	assert.True(t, admin.Admits(sdk.RoleAdmin))
	assert.False(t, admin.Admits(sdk.RoleCoach))
	assert.Equal(t, sdk.RoleAdmin, admin.Role())
	assert.Equal(t, "admin", admin.String())
}
