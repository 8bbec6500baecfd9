package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MePath is the "who am I" endpoint.
const MePath = "/api/auth/me"

// Role is the authorization role of a user.
type Role string

const (
	RoleEndUser Role = "end_user"
	RoleCoach   Role = "coach"
	RoleAdmin   Role = "admin"
)

// Roles lists the closed role set.
var Roles = []Role{RoleEndUser, RoleCoach, RoleAdmin}

// ParseRole maps an API user_type to a Role. Unknown values map to
// RoleEndUser, the least privileged role.
func ParseRole(v string) Role {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "admin":
		return RoleAdmin
	case "coach":
		return RoleCoach
	default:
		return RoleEndUser
	}
}

// HomeRoute is the default landing location for the role.
func (r Role) HomeRoute() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleCoach:
		return "/coach"
	default:
		return "/dashboard"
	}
}

// WireValue is the role as the API spells it in user_type.
func (r Role) WireValue() string {
	if r == RoleEndUser || r == "" {
		return "user"
	}
	return string(r)
}

// Identity is the server-side user record relevant to authorization.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Role      Role
	AvatarURL string
	Active    bool
}

// DisplayName joins first and last name, falling back to the email.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

type identityWire struct {
	UserID          json.RawMessage `json:"user_id,omitempty"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	UserType        string          `json:"user_type"`
	ProfileImageURL string          `json:"profile_image_url,omitempty"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

// UnmarshalJSON decodes the API user object. user_id may be a number or a string.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var w identityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := decodeID(w.UserID)
	if err != nil {
		return fmt.Errorf("decode user_id: %w", err)
	}
	*i = Identity{
		UserID:    id,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Role:      ParseRole(w.UserType),
		AvatarURL: w.ProfileImageURL,
		Active:    w.IsActive == nil || *w.IsActive,
	}
	return nil
}

// MarshalJSON encodes the identity in the API's shape, so snapshots read back
// through UnmarshalJSON.
func (i Identity) MarshalJSON() ([]byte, error) {
	active := i.Active
	w := identityWire{
		Email:           i.Email,
		FirstName:       i.FirstName,
		LastName:        i.LastName,
		UserType:        i.Role.WireValue(),
		ProfileImageURL: i.AvatarURL,
		IsActive:        &active,
	}
	if i.UserID != "" {
		raw, err := json.Marshal(i.UserID)
		if err != nil {
			return nil, err
		}
		w.UserID = raw
	}
	return json.Marshal(w)
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// IdentityResolver resolves the identity behind the stored credential.
type IdentityResolver interface {
	ResolveCurrentIdentity(ctx context.Context) (*Identity, error)
}

// Resolver resolves identities with one call to MePath. It keeps no cache;
// holding the result is the caller's business.
type Resolver struct {
	dispatcher *Dispatcher
}

var _ IdentityResolver = (*Resolver)(nil)

// NewResolver returns a Resolver issuing its call through d.
func NewResolver(d *Dispatcher) *Resolver {
	return &Resolver{dispatcher: d}
}

// ResolveCurrentIdentity fails with ErrUnauthenticated on 401 (the dispatcher
// has already cleared the session) and ErrUnreachable on anything else.
func (r *Resolver) ResolveCurrentIdentity(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := r.dispatcher.GetJSON(ctx, MePath, &identity); err != nil {
		if IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return &identity, nil
}
