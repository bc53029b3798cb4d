package database

import "time"

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	SetOnlineStatus(accountId int, online bool, lastSeen time.Time) error
	NearbyAccounts(accountId int, radiusKm float64) ([]User, error)
	AddContact(accountId, contactId int) error
	ListContacts(accountId int) ([]User, error)
	RemoveContact(accountId, contactId int) error
	CreateChat(params CreateChatParams) (Chat, error)
	GetChatByExternalId(externalId string) (Chat, error)
	GetChatWithParticipants(chatId int) (*Chat, error)
	ListChats(accountId int) ([]Chat, error)
	DeleteChat(chatId int) error
	IsParticipant(accountId, chatId int) bool
	GetParticipants(chatId int) ([]User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	MarkMessageRead(messageId, chatId int) error
	GetMessages(chatId, since, before, limit int) ([]Message, error)
	UpsertKeyBundle(bundle KeyBundle) error
	GetKeyBundle(accountId int) (KeyBundle, error)
}
