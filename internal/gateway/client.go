package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tgrange/switchboard/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxEventSize   = 4096
	sendBufferSize = 256
)

// Client is one live transport connection belonging to exactly one
// authenticated user. The profile is fixed at connect time and never
// re-verified for the connection's lifetime.
type Client struct {
	id        string
	conn      *websocket.Conn
	gw        *Gateway
	log       *log.Logger
	profile   types.Profile
	send      chan *ServerEvent
	rooms     map[string]struct{}
	roomsLock sync.Mutex
	stop      chan struct{}
	stopOnce  sync.Once
}

func newClient(id string, profile types.Profile, conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		gw:      gw,
		log:     l,
		profile: profile,
		send:    make(chan *ServerEvent, sendBufferSize),
		rooms:   make(map[string]struct{}),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeFrame(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.gw.disconnected(c)
	}()

	c.conn.SetReadLimit(maxEventSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(ErrInvalidEvent(-1))
			continue
		}

		ev.client = c
		ev.Timestamp = Now()

		c.gw.dispatch(&ev)
	}
}

// queueEvent is fire-and-forget: when the send buffer is full the event is
// dropped for this recipient rather than blocking the caller.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case c.send <- ev:
	case <-c.stop:
		return false
	default:
		c.log.Printf("send buffer full for connection %s, dropping event", c.id)
		return false
	}

	return true
}

func (c *Client) writeFrame(msgType int, data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write frame: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) addRoom(roomId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	c.rooms[roomId] = struct{}{}
}

func (c *Client) delRoom(roomId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	delete(c.rooms, roomId)
}

func (c *Client) inRoom(roomId string) bool {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	_, ok := c.rooms[roomId]
	return ok
}

// takeRooms empties the client's room set and returns what it held,
// so disconnect can clear membership in one step.
func (c *Client) takeRooms() []string {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	c.rooms = make(map[string]struct{})

	return ids
}
