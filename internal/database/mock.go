package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) SetOnlineStatus(accountId int, online bool, lastSeen time.Time) error {
	args := m.Called(accountId, online, lastSeen)
	return args.Error(0)
}
func (m *MockRepository) NearbyAccounts(accountId int, radiusKm float64) ([]User, error) {
	args := m.Called(accountId, radiusKm)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) AddContact(accountId, contactId int) error {
	args := m.Called(accountId, contactId)
	return args.Error(0)
}
func (m *MockRepository) ListContacts(accountId int) ([]User, error) {
	args := m.Called(accountId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) RemoveContact(accountId, contactId int) error {
	args := m.Called(accountId, contactId)
	return args.Error(0)
}
func (m *MockRepository) CreateChat(params CreateChatParams) (Chat, error) {
	args := m.Called(params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) GetChatByExternalId(externalId string) (Chat, error) {
	args := m.Called(externalId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) GetChatWithParticipants(chatId int) (*Chat, error) {
	args := m.Called(chatId)
	if chat, ok := args.Get(0).(*Chat); ok {
		return chat, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) ListChats(accountId int) ([]Chat, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Chat), args.Error(1)
}
func (m *MockRepository) DeleteChat(chatId int) error {
	args := m.Called(chatId)
	return args.Error(0)
}
func (m *MockRepository) IsParticipant(accountId, chatId int) bool {
	args := m.Called(accountId, chatId)
	return args.Bool(0)
}
func (m *MockRepository) GetParticipants(chatId int) ([]User, error) {
	args := m.Called(chatId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) MarkMessageRead(messageId, chatId int) error {
	args := m.Called(messageId, chatId)
	return args.Error(0)
}
func (m *MockRepository) GetMessages(chatId, since, before, limit int) ([]Message, error) {
	args := m.Called(chatId, since, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) UpsertKeyBundle(bundle KeyBundle) error {
	args := m.Called(bundle)
	return args.Error(0)
}
func (m *MockRepository) GetKeyBundle(accountId int) (KeyBundle, error) {
	args := m.Called(accountId)
	return args.Get(0).(KeyBundle), args.Error(1)
}
