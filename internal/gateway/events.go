package gateway

import (
	"net/http"
	"time"

	"github.com/tgrange/switchboard/internal/types"
)

type BaseEvent struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientEvent is the inbound envelope. Exactly one of the pointer fields
// is expected to be set; the gateway dispatches on whichever is non-nil.
type ClientEvent struct {
	BaseEvent
	JoinRoom    *JoinRoom    `json:"join_room,omitempty"`
	LeaveRoom   *LeaveRoom   `json:"leave_room,omitempty"`
	SendMessage *SendMessage `json:"send_message,omitempty"`
	TypingStart *Typing      `json:"typing_start,omitempty"`
	TypingStop  *Typing      `json:"typing_stop,omitempty"`
	MessageRead *MessageRead `json:"message_read,omitempty"`
	client      *Client
}

type JoinRoom struct {
	RoomId string `json:"room_id"`
}

type LeaveRoom struct {
	RoomId string `json:"room_id"`
}

type SendMessage struct {
	RoomId      string `json:"room_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type Typing struct {
	RoomId string `json:"room_id"`
}

type MessageRead struct {
	MessageId int    `json:"message_id"`
	RoomId    string `json:"room_id"`
}

// ServerEvent is the outbound envelope.
type ServerEvent struct {
	BaseEvent
	Response          *Response          `json:"response,omitempty"`
	NewMessage        *NewMessage        `json:"new_message,omitempty"`
	MessageDelivered  *MessageDelivered  `json:"message_delivered,omitempty"`
	TypingStarted     *TypingEvent       `json:"typing_started,omitempty"`
	TypingStopped     *TypingEvent       `json:"typing_stopped,omitempty"`
	MessageReadEvent  *MessageReadEvent  `json:"message_read,omitempty"`
	UserStatusChanged *UserStatusChanged `json:"user_status_changed,omitempty"`
	Notification      *Notification      `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type NewMessage struct {
	RoomId  string        `json:"room_id"`
	Message types.Message `json:"message"`
}

type MessageDelivered struct {
	MessageId   int       `json:"message_id"`
	RoomId      string    `json:"room_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type TypingEvent struct {
	UserId   int    `json:"user_id"`
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
}

type MessageReadEvent struct {
	MessageId int       `json:"message_id"`
	RoomId    string    `json:"room_id"`
	UserId    int       `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

type UserStatusChanged struct {
	UserId   int        `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Notification is a targeted out-of-room event, used to surface a new
// message to a participant whose chat list is open but who has not joined
// the conversation's live channel.
type Notification struct {
	NewMessage *NewMessage `json:"new_message,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerEvent {
	return &ServerEvent{
		BaseEvent: BaseEvent{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrRoomNotFound(id int) *ServerEvent {
	return &ServerEvent{
		BaseEvent: BaseEvent{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrNotParticipant(id int) *ServerEvent {
	return &ServerEvent{
		BaseEvent: BaseEvent{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not a participant of this chat",
		},
	}
}

func ErrInternalError(id int) *ServerEvent {
	return &ServerEvent{
		BaseEvent: BaseEvent{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrInvalidEvent(id int) *ServerEvent {
	ev := &ServerEvent{
		BaseEvent: BaseEvent{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid event format",
		},
	}

	if id > 0 {
		ev.Id = id
	}
	return ev
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
