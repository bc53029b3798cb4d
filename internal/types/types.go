package types

import (
	"time"
)

// User is the profile shape shared between the REST API and the gateway.
// Password never serializes; Latitude/Longitude are only present when the
// user has published a location.
type User struct {
	Id           int        `json:"id"`
	Username     string     `json:"username"`
	EmailAddress string     `json:"email_address,omitempty"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	Password     string     `json:"-"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitempty"`
}

// Profile is the minimal snapshot a gateway connection carries for its
// lifetime. It is fixed at connect time and never re-fetched.
type Profile struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

type Chat struct {
	Id           int       `json:"id"`
	ExternalId   string    `json:"external_id"`
	Name         string    `json:"name,omitempty"`
	Type         ChatType  `json:"type"`
	OwnerId      int       `json:"owner_id,omitempty"`
	Participants []User    `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id          int       `json:"id"`
	ChatId      string    `json:"chat_id"`
	SenderId    int       `json:"sender_id"`
	Sender      string    `json:"sender,omitempty"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	Read        bool      `json:"read"`
	Timestamp   time.Time `json:"timestamp"`
}

// KeyBundle is the stored portion of the Signal key-exchange stub. The
// one-time prekeys returned to clients are generated placeholders, not
// part of the stored bundle.
type KeyBundle struct {
	UserId          int       `json:"user_id"`
	IdentityKey     string    `json:"identity_key"`
	SignedPreKey    string    `json:"signed_pre_key"`
	PreKeySignature string    `json:"pre_key_signature,omitempty"`
	RegistrationId  int       `json:"registration_id"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}
