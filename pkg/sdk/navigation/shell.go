package navigation

import (
	"strings"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// Chrome is the shared frame drawn around a page.
type Chrome int

const (
	// ChromeAnonymous is the public navbar and footer.
	ChromeAnonymous Chrome = iota
	// ChromeAuthenticated is the signed-in navbar and footer.
	ChromeAuthenticated
	// ChromeNone leaves framing to the page; dashboards bring their own.
	ChromeNone
)

func (c Chrome) String() string {
	switch c {
	case ChromeAuthenticated:
		return "authenticated"
	case ChromeNone:
		return "none"
	default:
		return "anonymous"
	}
}

// ShowsFooter reports whether the shared footer is drawn.
func (c Chrome) ShowsFooter() bool { return c != ChromeNone }

// DefaultNamespaces are the dashboard path segments.
var DefaultNamespaces = []string{"dashboard", "coach", "admin"}

// ShellSelector picks the chrome for a location.
type ShellSelector struct {
	namespaces map[string]struct{}
}

// NewShellSelector registers the given dashboard namespaces, or
// DefaultNamespaces when none are given.
func NewShellSelector(namespaces ...string) *ShellSelector {
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}
	s := &ShellSelector{namespaces: make(map[string]struct{}, len(namespaces))}
	for _, ns := range namespaces {
		s.namespaces[strings.Trim(ns, "/")] = struct{}{}
	}
	return s
}

// Select returns ChromeNone for any path with a dashboard namespace segment,
// otherwise chrome by credential presence. Presence is not validity: a stale
// credential draws authenticated chrome until a guard corrects it.
func (s *ShellSelector) Select(path string, hasCredential bool) Chrome {
	if s.inNamespace(path) {
		return ChromeNone
	}
	if hasCredential {
		return ChromeAuthenticated
	}
	return ChromeAnonymous
}

// SelectFor reads credential presence from store.
func (s *ShellSelector) SelectFor(path string, store sdk.CredentialStore) Chrome {
	return s.Select(path, sdk.HasCredential(store))
}

func (s *ShellSelector) inNamespace(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, seg := range strings.Split(path, "/") {
		if _, ok := s.namespaces[seg]; ok && seg != "" {
			return true
		}
	}
	return false
}
