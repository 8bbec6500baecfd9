package navigation

import (
	"sync"

	"github.com/trainsync/trainsync/pkg/sdk"
)

// History is the session's location stack. It is the hard-navigation target
// of the dispatcher.
type History struct {
	mu      sync.Mutex
	entries []string
	hard    int
}

var _ sdk.Navigator = (*History)(nil)

// NewHistory starts at "/" when start is empty.
func NewHistory(start string) *History {
	if start == "" {
		start = "/"
	}
	return &History{entries: []string{CleanPath(start)}}
}

// Push records a soft navigation.
func (h *History) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, CleanPath(path))
}

// Navigate records a hard navigation, e.g. after the session was invalidated.
func (h *History) Navigate(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, CleanPath(target))
	h.hard++
}

// Current is the latest location.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the stack, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// HardNavigations counts Navigate calls.
func (h *History) HardNavigations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hard
}
