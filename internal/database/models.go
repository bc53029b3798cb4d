package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       string
	IsOnline     bool
	LastSeen     *time.Time
	Latitude     *float64
	Longitude    *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Chat struct {
	Id           int
	ExternalId   string
	Name         string
	Type         string
	OwnerId      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []User
}

type Message struct {
	Id          int
	ChatId      int
	SenderId    int
	Sender      string
	Content     string
	ContentType string
	Read        bool
	CreatedAt   time.Time
}

type KeyBundle struct {
	AccountId       int
	IdentityKey     string
	SignedPreKey    string
	PreKeySignature string
	RegistrationId  int
	UpdatedAt       time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	FirstName    string
	LastName     string
}

type UpdateAccountParams struct {
	AccountId    int
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       string
	Latitude     *float64
	Longitude    *float64
}

type CreateChatParams struct {
	Name           string
	Type           string
	OwnerId        int
	ExternalId     string
	ParticipantIds []int
}

type CreateMessageParams struct {
	ChatId      int
	SenderId    int
	Content     string
	ContentType string
}
