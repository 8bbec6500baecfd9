package sdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainsync/trainsync/pkg/sdk"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want sdk.Role
	}{
		{"user", sdk.RoleEndUser},
		{"coach", sdk.RoleCoach},
		{"Admin", sdk.RoleAdmin},
		{" admin ", sdk.RoleAdmin},
		{"superuser", sdk.RoleEndUser},
		{"", sdk.RoleEndUser},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sdk.ParseRole(tt.in), "ParseRole(%q)", tt.in)
	}
}

func TestRole_HomeRoute(t *testing.T) {
	assert.Equal(t, "/dashboard", sdk.RoleEndUser.HomeRoute())
	assert.Equal(t, "/coach", sdk.RoleCoach.HomeRoute())
	assert.Equal(t, "/admin", sdk.RoleAdmin.HomeRoute())
	assert.Equal(t, "user", sdk.RoleEndUser.WireValue())
}

func TestIdentity_UnmarshalAPIUser(t *testing.T) {
	body := `{"user_id": 17, "email": "coach@example.com", "first_name": "Ada", "last_name": "Byrne",
		"user_type": "coach", "profile_image_url": "/uploads/17.png", "is_active": true}`

	var id sdk.Identity
	require.NoError(t, json.Unmarshal([]byte(body), &id))
	assert.Equal(t, "17", id.UserID)
	assert.Equal(t, sdk.RoleCoach, id.Role)
	assert.Equal(t, "Ada Byrne", id.DisplayName())
	assert.Equal(t, "/uploads/17.png", id.AvatarURL)
	assert.True(t, id.Active)

	require.NoError(t, json.Unmarshal([]byte(`{"user_id": "u-9", "email": "x@example.com"}`), &id))
	assert.Equal(t, "u-9", id.UserID)
	assert.Equal(t, sdk.RoleEndUser, id.Role)
	assert.Equal(t, "x@example.com", id.DisplayName())

	assert.Error(t, json.Unmarshal([]byte(`{"user_id": {"nested": 1}}`), &id))
}

func TestIdentity_SnapshotRoundTrip(t *testing.T) {
	in := sdk.Identity{UserID: "3", Email: "u@example.com", FirstName: "U", Role: sdk.RoleEndUser, Active: true}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_type":"user"`)

	var out sdk.Identity
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestResolver_ResolveCurrentIdentity(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      any
		wantErr   error
		wantRole  sdk.Role
		wantClear bool
		wantNav   []string
	}{
		{
			name:     "admin",
			status:   http.StatusOK,
			body:     userJSON(1, "admin@example.com", "admin"),
			wantRole: sdk.RoleAdmin,
		},
		{
			name:      "credential rejected",
			status:    http.StatusUnauthorized,
			body:      map[string]string{"error": "Token has expired"},
			wantErr:   sdk.ErrUnauthenticated,
			wantClear: true,
			wantNav:   []string{sdk.SignInPath},
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    map[string]string{"error": "db down"},
			wantErr: sdk.ErrUnreachable,
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    map[string]string{"error": "account disabled"},
			wantErr: sdk.ErrUnreachable,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    "not an object",
			wantErr: sdk.ErrUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestAPI(t, func(r chi.Router) {
				r.Get(sdk.MePath, func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, tt.body)
				})
			})
			store := newCountingStore()
			require.NoError(t, store.Save("tok"))
			nav := &recordingNavigator{}
			resolver := sdk.NewResolver(newDispatcher(srv, store, nav))

			identity, err := resolver.ResolveCurrentIdentity(context.Background())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, identity)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, identity.Role)
			}
			assert.Equal(t, tt.wantClear, !sdk.HasCredential(store))
			assert.Equal(t, tt.wantNav, nav.Targets())
		})
	}
}

func TestResolver_Unreachable(t *testing.T) {
	srv := newTestAPI(t, func(r chi.Router) {})
	base := srv.URL
	srv.Close()

	store := sdk.NewMemoryStore()
	require.NoError(t, store.Save("tok"))
	resolver := sdk.NewResolver(sdk.NewDispatcher(base, store, sdk.WithTimeout(2*time.Second)))

	_, err := resolver.ResolveCurrentIdentity(context.Background())
	assert.ErrorIs(t, err, sdk.ErrUnreachable)
	assert.True(t, sdk.HasCredential(store))
}
