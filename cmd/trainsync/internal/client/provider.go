package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/auth"
	"github.com/trainsync/trainsync/pkg/sdk"
	"github.com/trainsync/trainsync/pkg/sdk/navigation"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Options configure a Provider.
type Options struct {
	APIURL  string
	Home    string
	Store   string
	Timeout time.Duration
	Logger  zerolog.Logger
	// BearerToken is an ephemeral credential (--token, TRAINSYNC_TOKEN). When
	// set, the session lives in memory and the on-disk store is untouched.
	BearerToken string
	// HTTPClient replaces the default base client, for tests.
	HTTPClient *http.Client
}

// Provider lazily builds the session components shared by one command run.
// Every component observes the same store and history.
type Provider struct {
	opts Options

	storeOnce sync.Once
	store     sdk.CredentialStore
	storeErr  error
	closer    io.Closer

	dispatcherOnce sync.Once
	dispatcher     *sdk.Dispatcher

	history *navigation.History
}

// NewProvider constructs a Provider. Nothing is opened until first use.
func NewProvider(opts Options) *Provider {
	if opts.Store == "" {
		opts.Store = StoreFile
	}
	return &Provider{opts: opts, history: navigation.NewHistory("/")}
}

// APIURL returns the configured API base URL.
func (p *Provider) APIURL() string { return p.opts.APIURL }

// Ephemeral reports whether the session comes from an injected token.
func (p *Provider) Ephemeral() bool { return p.opts.BearerToken != "" }

// Store returns the credential store. When the backing store cannot be
// opened, an sdk.UnavailableStore is returned together with the error, so
// callers that only read can carry on as signed out.
func (p *Provider) Store(ctx context.Context) (sdk.CredentialStore, error) {
	p.storeOnce.Do(func() {
		// Priority 1: ephemeral bearer token
		if p.opts.BearerToken != "" {
			mem := sdk.NewMemoryStore()
			p.storeErr = mem.Save(p.opts.BearerToken)
			p.store = mem
			return
		}

		// Priority 2: persistent store
		switch p.opts.Store {
		case StoreSQLite:
			s, err := auth.OpenSQLiteStore(ctx, p.opts.Home)
			if err == nil {
				p.store, p.closer = s, s
			}
			p.storeErr = err
		default:
			s, err := auth.NewFileStore(p.opts.Home)
			if err == nil {
				p.store = s
			}
			p.storeErr = err
		}
		if p.storeErr != nil {
			p.opts.Logger.Warn().Err(p.storeErr).Str("home", p.opts.Home).Msg("credential storage unavailable; continuing signed out")
			p.store = sdk.UnavailableStore{Err: p.storeErr}
		}
	})
	return p.store, p.storeErr
}

// History returns the process's location history, which is also the
// dispatcher's navigator.
func (p *Provider) History() *navigation.History { return p.history }

// Dispatcher returns the shared request pipeline.
func (p *Provider) Dispatcher(ctx context.Context) *sdk.Dispatcher {
	p.dispatcherOnce.Do(func() {
		store, _ := p.Store(ctx)
		opts := []sdk.DispatcherOption{
			sdk.WithNavigator(p.history),
			sdk.WithLogger(p.opts.Logger),
		}
		if p.opts.HTTPClient != nil {
			opts = append(opts, sdk.WithHTTPClient(p.opts.HTTPClient))
		}
		if p.opts.Timeout > 0 {
			opts = append(opts, sdk.WithTimeout(p.opts.Timeout))
		}
		p.dispatcher = sdk.NewDispatcher(p.opts.APIURL, store, opts...)
	})
	return p.dispatcher
}

// Resolver returns an identity resolver over the shared dispatcher.
func (p *Provider) Resolver(ctx context.Context) *sdk.Resolver {
	return sdk.NewResolver(p.Dispatcher(ctx))
}

// Authenticator returns the credential exchange client.
func (p *Provider) Authenticator(ctx context.Context) *sdk.Authenticator {
	return sdk.NewAuthenticator(p.Dispatcher(ctx))
}

// Visitor returns a navigator over the default route table.
func (p *Provider) Visitor(ctx context.Context, opts ...navigation.VisitorOption) *navigation.Visitor {
	store, _ := p.Store(ctx)
	return navigation.NewVisitor(
		navigation.DefaultRoutes(),
		navigation.NewShellSelector(),
		store,
		p.Resolver(ctx),
		p.history,
		opts...,
	)
}

// TokenSource exposes the stored credential to oauth2-aware consumers.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	store, err := p.Store(ctx)
	if err != nil {
		return nil, err
	}
	cred, ok := store.Read()
	if !ok {
		return nil, errors.New("not logged in")
	}
	return oauth2.StaticTokenSource(cred.OAuth2Token()), nil
}

// Close releases the store, if it holds resources.
func (p *Provider) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
