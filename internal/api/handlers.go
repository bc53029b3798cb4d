package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tgrange/switchboard/internal/database"
	"github.com/tgrange/switchboard/internal/types"
)

type UpdateAccountRequest struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Avatar    string   `json:"avatar"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type CreateChatRequest struct {
	Name           string         `json:"name"`
	Type           types.ChatType `json:"type"`
	ParticipantIds []int          `json:"participant_ids"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *App) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *App) account(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, userResponse(user))
	case http.MethodPut:
		curUser, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		// unset fields keep their current value
		params := database.UpdateAccountParams{
			AccountId:    curUser.Id,
			Username:     curUser.Username,
			PasswordHash: curUser.PasswordHash,
			FirstName:    curUser.FirstName,
			LastName:     curUser.LastName,
			Avatar:       curUser.Avatar,
			Latitude:     curUser.Latitude,
			Longitude:    curUser.Longitude,
		}

		if req.Username != "" {
			params.Username = req.Username
		}
		if req.Password != "" {
			pwdHash, err := hashPassword(req.Password)
			if err != nil {
				errResp := NewInternalServerError(err)
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
			params.PasswordHash = pwdHash
		}
		if req.FirstName != "" {
			params.FirstName = req.FirstName
		}
		if req.LastName != "" {
			params.LastName = req.LastName
		}
		if req.Avatar != "" {
			params.Avatar = req.Avatar
		}
		if req.Latitude != nil && req.Longitude != nil {
			params.Latitude = req.Latitude
			params.Longitude = req.Longitude
		}

		dbUser, err := s.db.UpdateAccount(params)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, userResponse(dbUser))
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *App) createChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Type == "" {
		req.Type = types.ChatTypeDirect
	}
	if req.Type != types.ChatTypeDirect && req.Type != types.ChatTypeGroup {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a direct chat is exactly two participants and carries no name
	if req.Type == types.ChatTypeDirect && len(req.ParticipantIds) != 1 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if len(req.ParticipantIds) == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateChatParams{
		Name:           req.Name,
		Type:           string(req.Type),
		OwnerId:        userId,
		ExternalId:     sid,
		ParticipantIds: req.ParticipantIds,
	}

	newChat, err := s.db.CreateChat(params)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, chatResponse(newChat))
}

func (s *App) getChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	if externalId != "" {
		s.getChat(w, userId, externalId)
		return
	}

	dbChats, err := s.db.ListChats(userId)
	if err != nil {
		s.log.Println("list chats:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var chats = make([]types.Chat, 0, len(dbChats))
	for _, dbChat := range dbChats {
		chats = append(chats, chatResponse(dbChat))
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *App) getChat(w http.ResponseWriter, userId int, externalId string) {
	chat, err := s.db.GetChatByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.IsParticipant(userId, chat.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	full, err := s.db.GetChatWithParticipants(chat.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chatResponse(*full))
}

func (s *App) deleteChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if chat.OwnerId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteChat(chat.Id); err != nil {
		s.log.Println("delete chat:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *App) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("chat_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.IsParticipant(userId, chat.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before, after, limit int

	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"before", &before},
		{"after", &after},
		{"limit", &limit},
	} {
		val := r.URL.Query().Get(q.name)
		if val == "" {
			continue
		}

		*q.dst, err = strconv.Atoi(val)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.db.GetMessages(chat.Id, after, before, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var out = make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, types.Message{
			Id:          msg.Id,
			ChatId:      chat.ExternalId,
			SenderId:    msg.SenderId,
			Sender:      msg.Sender,
			Content:     msg.Content,
			ContentType: msg.ContentType,
			Read:        msg.Read,
			Timestamp:   msg.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, out)
}

func (s *App) nearbyUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	radiusKm := 10.0
	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		var err error
		radiusKm, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radiusKm <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbUsers, err := s.db.NearbyAccounts(userId, radiusKm)
	if err != nil {
		s.log.Println("nearby accounts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var users = make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, userResponse(u))
	}

	s.writeJson(w, http.StatusOK, users)
}

func chatResponse(c database.Chat) types.Chat {
	chat := types.Chat{
		Id:         c.Id,
		ExternalId: c.ExternalId,
		Name:       c.Name,
		Type:       types.ChatType(c.Type),
		OwnerId:    c.OwnerId,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}

	for _, p := range c.Participants {
		chat.Participants = append(chat.Participants, types.User{
			Id:        p.Id,
			Username:  p.Username,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Avatar:    p.Avatar,
			IsOnline:  p.IsOnline,
			LastSeen:  p.LastSeen,
		})
	}

	return chat
}
