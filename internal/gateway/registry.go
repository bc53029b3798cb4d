package gateway

import (
	"sync"
	"time"

	"github.com/tgrange/switchboard/internal/types"
)

// Entry is the registry's record of one online user. Exactly one entry
// exists per user id at any instant; a newer connection for the same user
// replaces the older one (last-connect-wins).
type Entry struct {
	UserId      int
	ConnId      string
	Profile     types.Profile
	Client      *Client
	ConnectedAt time.Time
}

// Registry is the single source of truth for who is online right now and
// through which connection. It is safe for concurrent use by the
// independent per-connection handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]*Entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int]*Entry),
	}
}

// Register inserts or replaces the entry for the client's user. It returns
// the superseded client, if any, so the caller can close it, and whether
// this registration is a genuine offline-to-online transition.
func (r *Registry) Register(c *Client) (prev *Client, newOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.entries[c.profile.Id]
	r.entries[c.profile.Id] = &Entry{
		UserId:      c.profile.Id,
		ConnId:      c.id,
		Profile:     c.profile,
		Client:      c,
		ConnectedAt: time.Now().UTC(),
	}

	if exists {
		return old.Client, false
	}
	return nil, true
}

// Unregister removes the entry for userId only if it still belongs to
// connId. A disconnect event for a connection that has already been
// superseded by a newer one is a no-op.
func (r *Registry) Unregister(userId int, connId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userId]
	if !ok || entry.ConnId != connId {
		return false
	}

	delete(r.entries, userId)
	return true
}

func (r *Registry) Lookup(userId int) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userId]
	return entry, ok
}

func (r *Registry) IsOnline(userId int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[userId]
	return ok
}

// SnapshotAll returns all current entries in map iteration order.
func (r *Registry) SnapshotAll() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}
