package gateway

import (
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tgrange/switchboard/internal/database"
	"github.com/tgrange/switchboard/internal/stats"
	"github.com/tgrange/switchboard/internal/types"
)

// TokenVerifier is the stateless credential check performed once at
// connect time. The gateway never re-verifies a token mid-session.
type TokenVerifier interface {
	Verify(token string) (userId int, err error)
}

// Gateway ties the connection registry, room router and presence
// broadcaster together and owns the connect-time authentication
// handshake.
type Gateway struct {
	log            *log.Logger
	db             database.Repository
	registry       *Registry
	router         *Router
	broadcaster    *Broadcaster
	verifier       TokenVerifier
	stats          stats.StatsProvider
	allowedOrigins []string
}

func NewGateway(logger *log.Logger, db database.Repository, verifier TokenVerifier, cache OnlineCache, su stats.StatsProvider, allowedOrigins []string) *Gateway {
	registry := NewRegistry()

	g := &Gateway{
		log:            logger,
		db:             db,
		registry:       registry,
		router:         NewRouter(logger, registry, su),
		broadcaster:    NewBroadcaster(logger, registry, db, cache, su),
		verifier:       verifier,
		stats:          su,
		allowedOrigins: allowedOrigins,
	}

	for _, name := range []string{
		stats.ConnectedUsers,
		stats.ActiveRooms,
		stats.RelayedEvents,
		stats.PresenceEvents,
		stats.StoredMessages,
		stats.DroppedDelivers,
	} {
		su.RegisterMetric(name)
	}

	return g
}

func (g *Gateway) Registry() *Registry {
	return g.registry
}

// bearerToken extracts the credential from the Authorization header or,
// failing that, the token query parameter (browser WebSocket clients
// cannot set headers on the handshake request).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// HandleConnection gates admission on a valid token and a resolvable
// profile. Any failure rejects with a generic authentication error; on
// success the user id and profile snapshot become immutable properties of
// the connection.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	userId, err := g.verifier.Verify(token)
	if err != nil {
		g.log.Println("ws handshake: verify token:", err)
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	user, err := g.db.GetAccountById(userId)
	if err != nil {
		g.log.Println("ws handshake: lookup user:", err)
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(g.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Println("error upgrading connection:", err)
		return
	}

	profile := types.Profile{
		Id:        user.Id,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
	}

	client := newClient(uuid.NewString(), profile, conn, g, g.log)
	g.admit(client)

	go client.Write()
	go client.Read()
}

// admit records the connection in the registry and fires the presence
// broadcast on a genuine online transition. A superseded connection for
// the same user is closed.
func (g *Gateway) admit(c *Client) {
	g.log.Printf("admitting connection %s for user %q", c.id, c.profile.Username)

	prev, newOnline := g.registry.Register(c)
	if prev != nil {
		g.log.Printf("closing superseded connection %s for user %q", prev.id, c.profile.Username)
		g.router.RemoveClient(prev)
		prev.close()
	} else {
		g.stats.Incr(stats.ConnectedUsers)
	}

	if newOnline {
		g.broadcaster.AnnounceOnline(c.profile)
	}
}

// disconnected runs when a connection's read pump exits. The connection
// leaves all rooms, its registry entry is removed unless already
// superseded, and a single offline broadcast fires on a genuine
// transition.
func (g *Gateway) disconnected(c *Client) {
	g.log.Printf("connection %s for user %q disconnected", c.id, c.profile.Username)

	g.router.RemoveClient(c)
	c.close()

	if g.registry.Unregister(c.profile.Id, c.id) {
		g.stats.Decr(stats.ConnectedUsers)
		g.broadcaster.AnnounceOffline(c.profile.Id)
	}
}

// dispatch routes one inbound event through its handler. Malformed or
// unknown events are answered with an error event; the connection stays
// open.
func (g *Gateway) dispatch(ev *ClientEvent) {
	switch {
	case ev.JoinRoom != nil:
		g.handleJoin(ev)
	case ev.LeaveRoom != nil:
		g.handleLeave(ev)
	case ev.SendMessage != nil:
		g.handleSend(ev)
	case ev.TypingStart != nil:
		g.handleTyping(ev, ev.TypingStart.RoomId, true)
	case ev.TypingStop != nil:
		g.handleTyping(ev, ev.TypingStop.RoomId, false)
	case ev.MessageRead != nil:
		g.handleRead(ev)
	default:
		ev.client.queueEvent(ErrInvalidEvent(ev.Id))
	}
}

// handleJoin subscribes the connection to the room. No authorization
// check happens here; join is just a routing subscription and the
// participant check guards the durable send path instead.
func (g *Gateway) handleJoin(ev *ClientEvent) {
	g.router.JoinRoom(ev.client, ev.JoinRoom.RoomId)
	ev.client.queueEvent(NoErrOK(ev.Id, map[string]any{"room_id": ev.JoinRoom.RoomId}))
}

func (g *Gateway) handleLeave(ev *ClientEvent) {
	g.router.LeaveRoom(ev.client, ev.LeaveRoom.RoomId)
	ev.client.queueEvent(NoErrOK(ev.Id, map[string]any{"room_id": ev.LeaveRoom.RoomId}))
}

func (g *Gateway) handleTyping(ev *ClientEvent, roomId string, started bool) {
	typing := &TypingEvent{
		UserId:   ev.client.profile.Id,
		RoomId:   roomId,
		Username: ev.client.profile.Username,
	}

	out := &ServerEvent{BaseEvent: BaseEvent{Timestamp: ev.Timestamp}}
	if started {
		out.TypingStarted = typing
	} else {
		out.TypingStopped = typing
	}

	g.router.Relay(roomId, out, ev.client.id)
}

// handleSend durably stores the message, acks the sender, relays to the
// room, and notifies online participants who have not joined the room's
// live channel. A storage failure is logged and reported to the sender
// but the in-memory relay still runs so online recipients see the
// message even when storage lags.
func (g *Gateway) handleSend(ev *ClientEvent) {
	send := ev.SendMessage

	chat, err := g.db.GetChatByExternalId(send.RoomId)
	if err != nil {
		ev.client.queueEvent(ErrRoomNotFound(ev.Id))
		return
	}

	if !g.db.IsParticipant(ev.client.profile.Id, chat.Id) {
		ev.client.queueEvent(ErrNotParticipant(ev.Id))
		return
	}

	contentType := send.ContentType
	if contentType == "" {
		contentType = "text"
	}

	msg := types.Message{
		ChatId:      send.RoomId,
		SenderId:    ev.client.profile.Id,
		Sender:      ev.client.profile.Username,
		Content:     send.Content,
		ContentType: contentType,
		Timestamp:   ev.Timestamp,
	}

	stored, err := g.db.CreateMessage(database.CreateMessageParams{
		ChatId:      chat.Id,
		SenderId:    ev.client.profile.Id,
		Content:     send.Content,
		ContentType: contentType,
	})
	if err != nil {
		g.log.Println("error storing message:", err)
		ev.client.queueEvent(ErrInternalError(ev.Id))
	} else {
		msg.Id = stored.Id
		msg.Timestamp = stored.CreatedAt
		g.stats.Incr(stats.StoredMessages)

		ev.client.queueEvent(&ServerEvent{
			BaseEvent: BaseEvent{Id: ev.Id, Timestamp: Now()},
			MessageDelivered: &MessageDelivered{
				MessageId:   stored.Id,
				RoomId:      send.RoomId,
				DeliveredAt: stored.CreatedAt,
			},
		})
	}

	newMsg := &NewMessage{RoomId: send.RoomId, Message: msg}
	g.router.Relay(send.RoomId, &ServerEvent{
		BaseEvent:  BaseEvent{Timestamp: msg.Timestamp},
		NewMessage: newMsg,
	}, ev.client.id)

	g.notifyParticipants(chat.Id, newMsg, ev.client)
}

// notifyParticipants sends a personal notification to every chat
// participant who is online but not subscribed to the room's live
// channel, e.g. with the chat list open but the conversation closed.
func (g *Gateway) notifyParticipants(chatId int, newMsg *NewMessage, sender *Client) {
	participants, err := g.db.GetParticipants(chatId)
	if err != nil {
		g.log.Println("error fetching participants:", err)
		return
	}

	out := &ServerEvent{
		BaseEvent:    BaseEvent{Timestamp: Now()},
		Notification: &Notification{NewMessage: newMsg},
	}

	for _, p := range participants {
		if p.Id == sender.profile.Id {
			continue
		}

		entry, ok := g.registry.Lookup(p.Id)
		if !ok || entry.Client.inRoom(newMsg.RoomId) {
			continue
		}

		entry.Client.queueEvent(out)
	}
}

// handleRead marks the message read in the store and relays the receipt
// to the room. Like sends, the durable write is guarded by the
// participant check; a storage failure does not suppress the relay.
func (g *Gateway) handleRead(ev *ClientEvent) {
	read := ev.MessageRead

	chat, err := g.db.GetChatByExternalId(read.RoomId)
	if err != nil {
		ev.client.queueEvent(ErrRoomNotFound(ev.Id))
		return
	}

	if !g.db.IsParticipant(ev.client.profile.Id, chat.Id) {
		ev.client.queueEvent(ErrNotParticipant(ev.Id))
		return
	}

	if err := g.db.MarkMessageRead(read.MessageId, chat.Id); err != nil {
		g.log.Println("error marking message read:", err)
	}

	g.router.Relay(read.RoomId, &ServerEvent{
		BaseEvent: BaseEvent{Timestamp: ev.Timestamp},
		MessageReadEvent: &MessageReadEvent{
			MessageId: read.MessageId,
			RoomId:    read.RoomId,
			UserId:    ev.client.profile.Id,
			ReadAt:    ev.Timestamp,
		},
	}, ev.client.id)
}

// Shutdown closes every live connection. In-flight relay operations
// targeting a closing connection fail silently per the fire-and-forget
// delivery contract.
func (g *Gateway) Shutdown() {
	for _, entry := range g.registry.SnapshotAll() {
		entry.Client.close()
	}
}
