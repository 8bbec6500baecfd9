package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds every dispatched request. Plan generation
	// endpoints can take minutes.
	DefaultTimeout = 10 * time.Minute

	// SignInPath is where a rejected credential sends the user.
	SignInPath = "/login"

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// Navigator performs a hard navigation to an app location.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

// Request describes one API call. Body is JSON-encoded; Raw is sent untouched
// with ContentType (binary or multipart uploads). Setting both is an error.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	Raw         io.Reader
	ContentType string
	// Timeout tightens DefaultTimeout for this call only.
	Timeout time.Duration
}

// Dispatcher is the single request pipeline every API call goes through.
// Its transport injects the stored credential on the way out and reacts to
// 401 responses on the way in.
type Dispatcher struct {
	baseURL   string
	store     CredentialStore
	navigator Navigator
	logger    zerolog.Logger
	client    *http.Client

	// serializes the 401 compare-and-clear so concurrent rejections of the
	// same credential clear and redirect once.
	invalidateMu sync.Mutex
}

// DispatcherOptions configures Dispatcher construction.
type DispatcherOptions struct {
	HTTPClient *http.Client
	Navigator  Navigator
	Logger     *zerolog.Logger
	Timeout    time.Duration
}

// DispatcherOption mutates DispatcherOptions.
type DispatcherOption func(*DispatcherOptions)

// WithHTTPClient supplies the base client. Its Transport is wrapped, never replaced.
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.HTTPClient = client
	}
}

// WithNavigator sets the target of the hard navigation performed on 401.
func WithNavigator(nav Navigator) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.Navigator = nav
	}
}

// WithLogger sets the structured logger. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.Logger = &logger
	}
}

// WithTimeout overrides DefaultTimeout for every request.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.Timeout = d
	}
}

// NewDispatcher creates a Dispatcher for the API at baseURL, reading
// credentials from store on every request.
func NewDispatcher(baseURL string, store CredentialStore, optFns ...DispatcherOption) *Dispatcher {
	opts := DispatcherOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := http.DefaultTransport
	var jar http.CookieJar
	if opts.HTTPClient != nil {
		if opts.HTTPClient.Transport != nil {
			base = opts.HTTPClient.Transport
		}
		jar = opts.HTTPClient.Jar
	}

	d := &Dispatcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		navigator: opts.Navigator,
		logger:    logger,
	}
	d.client = &http.Client{
		Transport: &interceptTransport{d: d, base: base},
		Timeout:   timeout,
		Jar:       jar,
	}
	return d
}

// HTTPClient returns the intercepting client, for callers that build their
// own requests. Relative URLs are not resolved against the base URL.
func (d *Dispatcher) HTTPClient() *http.Client {
	return d.client
}

// BaseURL returns the API base URL.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// Store returns the credential store the dispatcher reads.
func (d *Dispatcher) Store() CredentialStore {
	return d.store
}

// Do sends r and decodes a successful JSON response into out (when non-nil).
// Non-2xx responses return *APIError after interception side effects
// (session clear, redirect) have completed.
func (d *Dispatcher) Do(ctx context.Context, r Request, out any) error {
	if r.Body != nil && r.Raw != nil {
		return fmt.Errorf("%w: request has both JSON body and raw payload", ErrInvalidInput)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint, err := d.resolve(r.Path, r.Query)
	if err != nil {
		return err
	}

	var body io.Reader
	switch {
	case r.Raw != nil:
		body = r.Raw
	case r.Body != nil:
		buf, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if r.Raw != nil {
		ctx = context.WithValue(ctx, rawPayloadKey{}, true)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if r.Raw != nil && r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, r.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, r.Path, err)
	}
	return nil
}

// GetJSON issues a GET and decodes the response into out.
func (d *Dispatcher) GetJSON(ctx context.Context, path string, out any) error {
	return d.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// PostJSON issues a POST with a JSON body.
func (d *Dispatcher) PostJSON(ctx context.Context, path string, in, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: in}, out)
}

// PutJSON issues a PUT with a JSON body.
func (d *Dispatcher) PutJSON(ctx context.Context, path string, in, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: in}, out)
}

// DeleteJSON issues a DELETE.
func (d *Dispatcher) DeleteJSON(ctx context.Context, path string, out any) error {
	return d.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Upload sends payload untouched with the caller's content type, e.g. a
// multipart body built with mime/multipart.
func (d *Dispatcher) Upload(ctx context.Context, path, contentType string, payload io.Reader, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Raw: payload, ContentType: contentType}, out)
}

func (d *Dispatcher) resolve(path string, query url.Values) (string, error) {
	u, err := url.Parse(d.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// requestState is built fresh for every round trip. Context values only
// carry immutable flags.
type requestState struct {
	unauthorizedHandled bool
	sent                Credential
	raw                 bool
}

type (
	handledKey    struct{}
	rawPayloadKey struct{}
)

// WithUnauthorizedHandled marks requests made with ctx as already handled for
// 401: a rejection is returned to the caller without clearing the session or
// navigating. Background calls issued by the sign-in view use this.
func WithUnauthorizedHandled(ctx context.Context) context.Context {
	return context.WithValue(ctx, handledKey{}, true)
}

func newRequestState(ctx context.Context) *requestState {
	handled, _ := ctx.Value(handledKey{}).(bool)
	raw, _ := ctx.Value(rawPayloadKey{}).(bool)
	return &requestState{unauthorizedHandled: handled, raw: raw}
}

type interceptTransport struct {
	d    *Dispatcher
	base http.RoundTripper
}

func (t *interceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	state := newRequestState(req.Context())

	out := t.d.outbound(req, state)
	started := time.Now()
	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.d.logger.Warn().Err(err).
			Str("method", out.Method).
			Str("path", out.URL.Path).
			Str("request_id", out.Header.Get(RequestIDHeader)).
			Msg("api request failed")
		return nil, err
	}

	t.d.logger.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Str("request_id", out.Header.Get(RequestIDHeader)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		t.d.inboundUnauthorized(out, state)
	case http.StatusForbidden:
		t.d.logger.Debug().Str("path", out.URL.Path).Msg("request forbidden; session kept")
	}
	return resp, nil
}

// outbound clones req, attaching the current credential and content type.
func (d *Dispatcher) outbound(req *http.Request, state *requestState) *http.Request {
	out := req.Clone(req.Context())
	if out.Header == nil {
		out.Header = make(http.Header)
	}

	if cred, ok := d.store.Read(); ok {
		(&oauth2.Token{AccessToken: cred.Token(), TokenType: bearerScheme}).SetAuthHeader(out)
		state.sent = cred
	}

	if !isRawPayload(out, state) {
		out.Header.Set("Content-Type", "application/json")
	}
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return out
}

// inboundUnauthorized clears the session and redirects to sign-in, at most
// once per request and once per rejected credential.
func (d *Dispatcher) inboundUnauthorized(req *http.Request, state *requestState) {
	if state.unauthorizedHandled {
		return
	}
	state.unauthorizedHandled = true

	if state.sent == "" {
		d.logger.Debug().Str("path", req.URL.Path).Msg("anonymous request rejected")
		return
	}

	d.invalidateMu.Lock()
	defer d.invalidateMu.Unlock()

	current, ok := d.store.Read()
	if !ok || current != state.sent {
		// Already invalidated by a concurrent request, or replaced by a newer sign-in.
		return
	}
	if err := d.store.Clear(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to clear rejected credential")
	}
	d.logger.Info().
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Msg("credential rejected; session cleared")
	d.navigator.Navigate(SignInPath)
}

func isRawPayload(req *http.Request, state *requestState) bool {
	if state.raw {
		return true
	}
	ct := strings.ToLower(req.Header.Get("Content-Type"))
	return strings.HasPrefix(ct, "multipart/") || strings.HasPrefix(ct, "application/octet-stream")
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		apiErr.RequestID = resp.Request.Header.Get(RequestIDHeader)
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	} else if len(data) > 0 {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
