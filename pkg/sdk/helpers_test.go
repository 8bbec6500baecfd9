package sdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// newTestAPI serves routes on an httptest server closed at test cleanup.
func newTestAPI(t *testing.T, routes func(r chi.Router)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recordingNavigator captures hard navigations.
type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

// countingStore counts Clear calls on top of a MemoryStore.
type countingStore struct {
	*sdk.MemoryStore
	clears atomic.Int32
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: sdk.NewMemoryStore()}
}

func (s *countingStore) Clear() error {
	s.clears.Add(1)
	return s.MemoryStore.Clear()
}

func newDispatcher(srv *httptest.Server, store sdk.CredentialStore, nav sdk.Navigator) *sdk.Dispatcher {
	return sdk.NewDispatcher(srv.URL, store,
		sdk.WithHTTPClient(srv.Client()),
		sdk.WithNavigator(nav),
		sdk.WithTimeout(5*time.Second),
	)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func userJSON(id int, email, userType string) map[string]any {
	return map[string]any{
		"user_id":    id,
		"email":      email,
		"first_name": "Sam",
		"last_name":  "Rivera",
		"user_type":  userType,
		"is_active":  true,
	}
}
