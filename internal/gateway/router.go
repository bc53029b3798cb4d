package gateway

import (
	"log"
	"sync"

	"github.com/tgrange/switchboard/internal/stats"
)

// Router maps room ids to the set of connections subscribed to them and
// relays events between members. A room here is a routing subscription
// only; whether the user may durably send into the underlying chat is
// checked at send time, not at join time.
type Router struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	registry *Registry
	log      *log.Logger
	stats    stats.StatsProvider
}

func NewRouter(logger *log.Logger, registry *Registry, su stats.StatsProvider) *Router {
	return &Router{
		rooms:    make(map[string]map[*Client]struct{}),
		registry: registry,
		log:      logger,
		stats:    su,
	}
}

// JoinRoom subscribes the connection to the room. Joining a room the
// connection already joined is a no-op.
func (rt *Router) JoinRoom(c *Client, roomId string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	members, ok := rt.rooms[roomId]
	if !ok {
		members = make(map[*Client]struct{})
		rt.rooms[roomId] = members
		rt.stats.Incr(stats.ActiveRooms)
	}

	if _, joined := members[c]; joined {
		return
	}

	members[c] = struct{}{}
	c.addRoom(roomId)
}

// LeaveRoom removes the subscription; no-op if absent.
func (rt *Router) LeaveRoom(c *Client, roomId string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.removeMember(c, roomId)
	c.delRoom(roomId)
}

// RemoveClient drops the connection from every room it joined. Called on
// disconnect; the client's own membership set is cleared in the same step.
func (rt *Router) RemoveClient(c *Client) {
	roomIds := c.takeRooms()

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, roomId := range roomIds {
		rt.removeMember(c, roomId)
	}
}

// removeMember must be called with rt.mu held.
func (rt *Router) removeMember(c *Client, roomId string) {
	members, ok := rt.rooms[roomId]
	if !ok {
		return
	}

	if _, joined := members[c]; !joined {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(rt.rooms, roomId)
		rt.stats.Decr(stats.ActiveRooms)
	}
}

// Relay delivers the event to every connection currently joined to the
// room except excludeConnId. Delivery is best-effort: a recipient whose
// send buffer is full is skipped and delivery to the rest proceeds.
func (rt *Router) Relay(roomId string, ev *ServerEvent, excludeConnId string) {
	rt.mu.RLock()
	members := make([]*Client, 0, len(rt.rooms[roomId]))
	for c := range rt.rooms[roomId] {
		members = append(members, c)
	}
	rt.mu.RUnlock()

	for _, c := range members {
		if c.id == excludeConnId {
			continue
		}

		if !c.queueEvent(ev) {
			rt.stats.Incr(stats.DroppedDelivers)
			continue
		}
		rt.stats.Incr(stats.RelayedEvents)
	}
}

// SendToUser delivers the event to the user's current connection, if any.
// Targeting an offline user is a safe no-op.
func (rt *Router) SendToUser(userId int, ev *ServerEvent) bool {
	entry, ok := rt.registry.Lookup(userId)
	if !ok {
		return false
	}

	if !entry.Client.queueEvent(ev) {
		rt.stats.Incr(stats.DroppedDelivers)
		return false
	}

	rt.stats.Incr(stats.RelayedEvents)
	return true
}

// memberCount is used by tests and the debug endpoint.
func (rt *Router) memberCount(roomId string) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return len(rt.rooms[roomId])
}
