package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tgrange/switchboard/internal/config"
	"github.com/tgrange/switchboard/internal/database"
	"github.com/tgrange/switchboard/internal/testutil"
	"github.com/tgrange/switchboard/internal/types"
)

func TestAddContactHandler(t *testing.T) {
	bob := database.User{Id: 2, Username: "bob", EmailAddress: "bob@example.com"}

	tcases := []struct {
		name       string
		body       string
		lookupId   int
		lookupUser database.User
		lookupErr  error
		addErr     error
		expected   int
	}{
		{
			name:       "successful add",
			body:       `{"user_id": 2}`,
			lookupId:   2,
			lookupUser: bob,
			expected:   http.StatusCreated,
		},
		{
			name:     "invalid json",
			body:     `{`,
			expected: http.StatusBadRequest,
		},
		{
			name:     "missing user id",
			body:     `{}`,
			expected: http.StatusBadRequest,
		},
		{
			name:     "adding self",
			body:     `{"user_id": 1}`,
			expected: http.StatusBadRequest,
		},
		{
			name:      "unknown user",
			body:      `{"user_id": 42}`,
			lookupId:  42,
			lookupErr: sql.ErrNoRows,
			expected:  http.StatusNotFound,
		},
		{
			name:       "db error on add",
			body:       `{"user_id": 2}`,
			lookupId:   2,
			lookupUser: bob,
			addErr:     errors.New("db error"),
			expected:   http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.lookupId != 0 {
				mockRepo.On("GetAccountById", tc.lookupId).Return(tc.lookupUser, tc.lookupErr).Once()
			}
			if tc.lookupErr == nil && tc.lookupId != 0 {
				mockRepo.On("AddContact", 1, tc.lookupId).Return(tc.addErr).Once()
			}

			app := NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, nil, &config.Config{})

			req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(tc.body))
			req = req.WithContext(WithUserId(req.Context(), 1))

			rr := httptest.NewRecorder()
			app.addContact(rr, req)

			assert.Equal(t, tc.expected, rr.Code)

			if tc.expected == http.StatusCreated {
				var got types.User
				err := json.NewDecoder(rr.Body).Decode(&got)
				assert.NoError(t, err, "failed to decode response")
				assert.Equal(t, bob.Id, got.Id)
				assert.Equal(t, bob.Username, got.Username)
			}
		})
	}

	t.Run("unauthorized", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		app := NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, nil, &config.Config{})

		req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(`{"user_id": 2}`))
		rr := httptest.NewRecorder()
		app.addContact(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockRepo.AssertNotCalled(t, "AddContact")
	})
}

func TestGetContactsHandler(t *testing.T) {
	contacts := []database.User{
		{Id: 2, Username: "bob"},
		{Id: 3, Username: "carol"},
	}

	tcases := []struct {
		name         string
		mockContacts []database.User
		mockErr      error
		expected     int
	}{
		{
			name:         "successful list",
			mockContacts: contacts,
			expected:     http.StatusOK,
		},
		{
			name:         "empty list",
			mockContacts: []database.User{},
			expected:     http.StatusOK,
		},
		{
			name:     "db error",
			mockErr:  errors.New("db error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)

			mockRepo.On("ListContacts", 1).Return(tc.mockContacts, tc.mockErr).Once()

			app := NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, nil, &config.Config{})

			req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
			req = req.WithContext(WithUserId(req.Context(), 1))

			rr := httptest.NewRecorder()
			app.getContacts(rr, req)

			assert.Equal(t, tc.expected, rr.Code)

			if tc.expected == http.StatusOK {
				var got []types.User
				err := json.NewDecoder(rr.Body).Decode(&got)
				assert.NoError(t, err, "failed to decode response")
				assert.Len(t, got, len(tc.mockContacts))
			}
		})
	}
}

func TestRemoveContactHandler(t *testing.T) {
	tcases := []struct {
		name      string
		query     string
		contactId int
		mockErr   error
		expected  int
	}{
		{
			name:      "successful remove",
			query:     "?user_id=2",
			contactId: 2,
			expected:  http.StatusNoContent,
		},
		{
			name:     "missing user id",
			query:    "",
			expected: http.StatusBadRequest,
		},
		{
			name:     "non-numeric user id",
			query:    "?user_id=bob",
			expected: http.StatusBadRequest,
		},
		{
			name:     "negative user id",
			query:    "?user_id=-2",
			expected: http.StatusBadRequest,
		},
		{
			name:      "db error",
			query:     "?user_id=2",
			contactId: 2,
			mockErr:   errors.New("db error"),
			expected:  http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.contactId != 0 {
				mockRepo.On("RemoveContact", 1, tc.contactId).Return(tc.mockErr).Once()
			}

			app := NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, nil, &config.Config{})

			req := httptest.NewRequest(http.MethodDelete, "/api/contacts"+tc.query, nil)
			req = req.WithContext(WithUserId(req.Context(), 1))

			rr := httptest.NewRecorder()
			app.removeContact(rr, req)

			assert.Equal(t, tc.expected, rr.Code)
		})
	}
}
