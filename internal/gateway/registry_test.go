package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tgrange/switchboard/internal/testutil"
	"github.com/tgrange/switchboard/internal/types"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	c := newClient("conn-1", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))

	prev, newOnline := r.Register(c)
	assert.Nil(t, prev, "expected no superseded client on first register")
	assert.True(t, newOnline, "expected first register to be an online transition")
	assert.True(t, r.IsOnline(1), "expected user to be online")

	entry, ok := r.Lookup(1)
	assert.True(t, ok, "expected a registry entry")
	assert.Equal(t, "conn-1", entry.ConnId)
	assert.Equal(t, c, entry.Client)
}

func TestRegistry_Register_LastConnectWins(t *testing.T) {
	r := NewRegistry()

	c1 := newClient("conn-1", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))
	c2 := newClient("conn-2", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))

	_, newOnline := r.Register(c1)
	assert.True(t, newOnline)

	prev, newOnline := r.Register(c2)
	assert.Equal(t, c1, prev, "expected the first connection to be superseded")
	assert.False(t, newOnline, "expected no online transition when the user was already online")

	entry, ok := r.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "conn-2", entry.ConnId, "expected the newer connection to own the entry")
	assert.Len(t, r.SnapshotAll(), 1, "expected exactly one entry per user")
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	c1 := newClient("conn-1", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))
	r.Register(c1)

	t.Run("stale connection id is a no-op", func(t *testing.T) {
		assert.False(t, r.Unregister(1, "conn-0"), "expected stale unregister to report no transition")
		assert.True(t, r.IsOnline(1), "expected the current entry to survive a stale unregister")
	})

	t.Run("unknown user is a no-op", func(t *testing.T) {
		assert.False(t, r.Unregister(99, "conn-1"))
	})

	t.Run("matching connection id removes the entry", func(t *testing.T) {
		assert.True(t, r.Unregister(1, "conn-1"), "expected a genuine offline transition")
		assert.False(t, r.IsOnline(1))

		_, ok := r.Lookup(1)
		assert.False(t, ok)
	})
}

func TestRegistry_SupersededUnregisterKeepsNewEntry(t *testing.T) {
	r := NewRegistry()

	c1 := newClient("conn-1", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))
	c2 := newClient("conn-2", types.Profile{Id: 1, Username: "alice"}, nil, nil, testutil.TestLogger(t))

	r.Register(c1)
	r.Register(c2)

	// the superseded connection's late disconnect must not knock the
	// newer connection offline
	assert.False(t, r.Unregister(1, "conn-1"))
	assert.True(t, r.IsOnline(1))

	entry, _ := r.Lookup(1)
	assert.Equal(t, "conn-2", entry.ConnId)
}
