package gateway

import (
	"context"
	"log"
	"time"

	"github.com/tgrange/switchboard/internal/stats"
	"github.com/tgrange/switchboard/internal/types"
)

// PresenceStore is the durable side of presence: the user row's
// is_online/last_seen fields.
type PresenceStore interface {
	SetOnlineStatus(accountId int, online bool, lastSeen time.Time) error
}

// OnlineCache is an optional fast-lookup mirror of online state (Redis).
type OnlineCache interface {
	SetOnline(ctx context.Context, accountId int) error
	SetOffline(ctx context.Context, accountId int) error
}

// Broadcaster translates genuine registry transitions into a durable
// status update and a global user_status_changed notification. The
// durable update is fire-and-forget: its failure is logged and never
// blocks or cancels the in-memory broadcast.
type Broadcaster struct {
	log      *log.Logger
	registry *Registry
	store    PresenceStore
	cache    OnlineCache
	stats    stats.StatsProvider
}

func NewBroadcaster(logger *log.Logger, registry *Registry, store PresenceStore, cache OnlineCache, su stats.StatsProvider) *Broadcaster {
	return &Broadcaster{
		log:      logger,
		registry: registry,
		store:    store,
		cache:    cache,
		stats:    su,
	}
}

// AnnounceOnline persists is_online=true and broadcasts the transition to
// every connected user. Callers must only invoke it on a genuine online
// transition (per Registry.Register's return value).
func (b *Broadcaster) AnnounceOnline(user types.Profile) {
	now := Now()
	b.persist(user.Id, true, now)
	b.broadcast(&ServerEvent{
		BaseEvent: BaseEvent{Timestamp: now},
		UserStatusChanged: &UserStatusChanged{
			UserId:   user.Id,
			IsOnline: true,
			LastSeen: &now,
		},
	}, user.Id)
}

// AnnounceOffline is the mirror of AnnounceOnline for genuine offline
// transitions (per Registry.Unregister's return value).
func (b *Broadcaster) AnnounceOffline(userId int) {
	now := Now()
	b.persist(userId, false, now)
	b.broadcast(&ServerEvent{
		BaseEvent: BaseEvent{Timestamp: now},
		UserStatusChanged: &UserStatusChanged{
			UserId:   userId,
			IsOnline: false,
			LastSeen: &now,
		},
	}, userId)
}

func (b *Broadcaster) persist(userId int, online bool, lastSeen time.Time) {
	go func() {
		if err := b.store.SetOnlineStatus(userId, online, lastSeen); err != nil {
			b.log.Printf("persist online status for user %d: %v", userId, err)
		}

		if b.cache == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		if online {
			err = b.cache.SetOnline(ctx, userId)
		} else {
			err = b.cache.SetOffline(ctx, userId)
		}
		if err != nil {
			b.log.Printf("update presence cache for user %d: %v", userId, err)
		}
	}()
}

// broadcast delivers the event to all connected users except the one the
// transition is about. Global, not scoped to shared rooms.
func (b *Broadcaster) broadcast(ev *ServerEvent, aboutUserId int) {
	for _, entry := range b.registry.SnapshotAll() {
		if entry.UserId == aboutUserId {
			continue
		}

		entry.Client.queueEvent(ev)
	}

	b.stats.Incr(stats.PresenceEvents)
}
