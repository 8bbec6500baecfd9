package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Credential exchange endpoints.
const (
	LoginPath        = "/api/auth/login"
	RegisterPath     = "/api/auth/register"
	LogoutPath       = "/api/auth/logout"
	VerifyInvitePath = "/api/auth/verify-invite"
)

// LoginInput is the sign-in form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput is the sign-up form. InviteToken is set for invite sign-ups,
// which let the server assign a non-default role.
type SignUpInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	InviteToken string `json:"invite_token,omitempty"`
}

// LoginResult describes a successful exchange, for the post-login navigation
// and confirmation message.
type LoginResult struct {
	// Identity is the user object returned with the token, if any.
	Identity *Identity
	// ExpiresAt is the token's exp claim, zero when unknown.
	ExpiresAt time.Time
	// Home is where the signed-in user lands.
	Home string
}

// Invite is the result of verifying an invitation token.
type Invite struct {
	Valid bool
	Email string
	Role  Role
}

type exchangeResponse struct {
	AccessToken string    `json:"access_token"`
	User        *Identity `json:"user"`
}

// Authenticator exchanges user credentials for a session credential and
// persists it in the dispatcher's store.
type Authenticator struct {
	dispatcher *Dispatcher
	validate   *validator.Validate
}

// NewAuthenticator returns an Authenticator that talks through d.
func NewAuthenticator(d *Dispatcher) *Authenticator {
	return &Authenticator{dispatcher: d, validate: validator.New()}
}

// Login exchanges email and password for a credential and stores it.
// Rejected credentials surface as *APIError (401) without redirecting.
func (a *Authenticator) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := a.check(in); err != nil {
		return nil, err
	}

	var resp exchangeResponse
	if err := a.dispatcher.PostJSON(WithUnauthorizedHandled(ctx), LoginPath, in, &resp); err != nil {
		return nil, err
	}
	return a.persist(resp)
}

// SignUp registers an account and signs it in. When the registration
// response carries no token, SignUp follows with a Login using the same
// email and password.
func (a *Authenticator) SignUp(ctx context.Context, in SignUpInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := a.check(in); err != nil {
		return nil, err
	}

	var resp exchangeResponse
	if err := a.dispatcher.PostJSON(WithUnauthorizedHandled(ctx), RegisterPath, in, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken != "" {
		return a.persist(resp)
	}
	return a.Login(ctx, LoginInput{Email: in.Email, Password: in.Password})
}

// VerifyInvite checks an invitation token before an invite sign-up.
func (a *Authenticator) VerifyInvite(ctx context.Context, token string) (*Invite, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: invite token is required", ErrInvalidInput)
	}
	var resp struct {
		Valid    bool   `json:"valid"`
		Email    string `json:"email"`
		UserType string `json:"user_type"`
	}
	req := Request{
		Method: http.MethodGet,
		Path:   VerifyInvitePath,
		Query:  url.Values{"token": {token}},
	}
	if err := a.dispatcher.Do(WithUnauthorizedHandled(ctx), req, &resp); err != nil {
		return nil, err
	}
	return &Invite{Valid: resp.Valid, Email: resp.Email, Role: ParseRole(resp.UserType)}, nil
}

// Logout clears the local session. With revoke, the server is told first;
// that call is best effort and its failure only logs.
func (a *Authenticator) Logout(ctx context.Context, revoke bool) error {
	if revoke && HasCredential(a.dispatcher.store) {
		if err := a.dispatcher.PostJSON(WithUnauthorizedHandled(ctx), LogoutPath, nil, nil); err != nil {
			a.dispatcher.logger.Warn().Err(err).Msg("server-side logout failed; clearing local session anyway")
		}
	}
	return a.dispatcher.store.Clear()
}

func (a *Authenticator) persist(resp exchangeResponse) (*LoginResult, error) {
	if resp.AccessToken == "" {
		return nil, errors.New("no access token received from server")
	}

	store := a.dispatcher.store
	if err := store.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	result := &LoginResult{Home: RoleEndUser.HomeRoute()}
	if resp.User != nil {
		if err := store.SaveSnapshot(*resp.User); err != nil {
			a.dispatcher.logger.Warn().Err(err).Msg("failed to cache user snapshot")
		}
		result.Identity = resp.User
		result.Home = resp.User.Role.HomeRoute()
	}
	if cred, ok := store.Read(); ok {
		if exp, ok := cred.ExpiresAt(); ok {
			result.ExpiresAt = exp
		}
	}
	return result, nil
}

func (a *Authenticator) check(in any) error {
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
