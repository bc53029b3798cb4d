package gateway

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoErrOK(t *testing.T) {
	result := NoErrOK(1, map[string]any{"room_id": "room-1"})

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.WithinDuration(t, Now(), result.Timestamp, time.Second, "expected Timestamp to be recent")
	assert.Equal(t, http.StatusOK, result.Response.ResponseCode)
	assert.Equal(t, map[string]any{"room_id": "room-1"}, result.Response.Data)
	assert.Empty(t, result.Response.Error)
}

func TestErrRoomNotFound(t *testing.T) {
	result := ErrRoomNotFound(3)

	assert.Equal(t, 3, result.Id)
	assert.Equal(t, http.StatusNotFound, result.Response.ResponseCode)
	assert.Equal(t, "room not found", result.Response.Error)
}

func TestErrNotParticipant(t *testing.T) {
	result := ErrNotParticipant(4)

	assert.Equal(t, 4, result.Id)
	assert.Equal(t, http.StatusForbidden, result.Response.ResponseCode)
	assert.NotEmpty(t, result.Response.Error)
}

func TestErrInternalError(t *testing.T) {
	result := ErrInternalError(5)

	assert.Equal(t, 5, result.Id)
	assert.Equal(t, http.StatusInternalServerError, result.Response.ResponseCode)
}

func TestErrInvalidEvent(t *testing.T) {
	t.Run("keeps a positive id", func(t *testing.T) {
		result := ErrInvalidEvent(6)
		assert.Equal(t, 6, result.Id)
		assert.Equal(t, http.StatusBadRequest, result.Response.ResponseCode)
	})

	t.Run("omits an unknown id", func(t *testing.T) {
		result := ErrInvalidEvent(-1)
		assert.Zero(t, result.Id)
	})
}

func TestClientEvent_Unmarshal(t *testing.T) {
	raw := `{"id":9,"send_message":{"room_id":"room-1","content":"hello","content_type":"text"}}`

	var ev ClientEvent
	err := json.Unmarshal([]byte(raw), &ev)
	assert.NoError(t, err, "failed to unmarshal event")
	assert.Equal(t, 9, ev.Id)
	if assert.NotNil(t, ev.SendMessage) {
		assert.Equal(t, "room-1", ev.SendMessage.RoomId)
		assert.Equal(t, "hello", ev.SendMessage.Content)
	}
	assert.Nil(t, ev.JoinRoom)
}
