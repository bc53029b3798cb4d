package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tgrange/switchboard/internal/database"
	"github.com/tgrange/switchboard/internal/types"
)

// oneTimePreKeyCount is how many placeholder one-time prekeys a bundle
// response carries. The key-exchange endpoints are a stub: bundles are
// stored and served verbatim, and the one-time prekeys are generated
// placeholders rather than real Curve25519 material.
const oneTimePreKeyCount = 10

type UploadKeysRequest struct {
	IdentityKey     string `json:"identity_key"`
	SignedPreKey    string `json:"signed_pre_key"`
	PreKeySignature string `json:"pre_key_signature"`
	RegistrationId  int    `json:"registration_id"`
}

type KeyBundleResponse struct {
	types.KeyBundle
	OneTimePreKeys []string `json:"one_time_pre_keys"`
}

func (s *App) uploadKeys(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UploadKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.IdentityKey == "" || req.SignedPreKey == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	err := s.db.UpsertKeyBundle(database.KeyBundle{
		AccountId:       userId,
		IdentityKey:     req.IdentityKey,
		SignedPreKey:    req.SignedPreKey,
		PreKeySignature: req.PreKeySignature,
		RegistrationId:  req.RegistrationId,
	})
	if err != nil {
		s.log.Println("upsert key bundle:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *App) getKeys(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserId(r.Context()); !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	bundle, err := s.db.GetKeyBundle(targetId)
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

	resp := KeyBundleResponse{
		KeyBundle: types.KeyBundle{
			UserId:          bundle.AccountId,
			IdentityKey:     bundle.IdentityKey,
			SignedPreKey:    bundle.SignedPreKey,
			PreKeySignature: bundle.PreKeySignature,
			RegistrationId:  bundle.RegistrationId,
			UpdatedAt:       bundle.UpdatedAt,
		},
		OneTimePreKeys: placeholderPreKeys(bundle.AccountId),
	}

	s.writeJson(w, http.StatusOK, resp)
}

func placeholderPreKeys(accountId int) []string {
	keys := make([]string, oneTimePreKeyCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("prekey-%d-%d", accountId, i)
	}
	return keys
}
