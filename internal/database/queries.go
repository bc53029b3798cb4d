package database

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	accountColumns = "id, username, email, first_name, last_name, avatar, is_online, last_seen, latitude, longitude, created_at, updated_at"

	addParticipantQuery = "INSERT INTO chat_participants (chat_id, account_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING"
)

func scanAccount(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.IsOnline,
		&u.LastSeen,
		&u.Latitude,
		&u.Longitude,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, first_name, last_name, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING "+accountColumns,
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.FirstName,
		params.LastName,
		time.Now().UTC(),
	)

	return scanAccount(res)
}

func (db *PgRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, first_name = $4, last_name = $5, "+
			"avatar = $6, latitude = $7, longitude = $8, updated_at = $9 "+
			"WHERE id = $1 RETURNING "+accountColumns,
		params.AccountId,
		params.Username,
		params.PasswordHash,
		params.FirstName,
		params.LastName,
		params.Avatar,
		params.Latitude,
		params.Longitude,
		time.Now().UTC(),
	)

	return scanAccount(res)
}

func (db *PgRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+", password_hash FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.IsOnline,
		&u.LastSeen,
		&u.Latitude,
		&u.Longitude,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.PasswordHash,
	)

	return u, err
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+", password_hash FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.IsOnline,
		&u.LastSeen,
		&u.Latitude,
		&u.Longitude,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.PasswordHash,
	)

	return u, err
}

func (db *PgRepository) SetOnlineStatus(accountId int, online bool, lastSeen time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE accounts SET is_online = $2, last_seen = $3 WHERE id = $1",
		accountId,
		online,
		lastSeen,
	)

	return err
}

// NearbyAccounts returns users with a published location within radiusKm
// of the given account, nearest first. The Haversine distance is computed
// in SQL so the result set stays small.
func (db *PgRepository) NearbyAccounts(accountId int, radiusKm float64) ([]User, error) {
	query := `
		SELECT ` + accountColumns + ` FROM accounts
		WHERE id != $1
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND 6371 * acos(least(1.0,
				cos(radians((SELECT latitude FROM accounts WHERE id = $1))) *
				cos(radians(latitude)) *
				cos(radians(longitude) - radians((SELECT longitude FROM accounts WHERE id = $1))) +
				sin(radians((SELECT latitude FROM accounts WHERE id = $1))) *
				sin(radians(latitude))
		  )) <= $2
		ORDER BY 6371 * acos(least(1.0,
				cos(radians((SELECT latitude FROM accounts WHERE id = $1))) *
				cos(radians(latitude)) *
				cos(radians(longitude) - radians((SELECT longitude FROM accounts WHERE id = $1))) +
				sin(radians((SELECT latitude FROM accounts WHERE id = $1))) *
				sin(radians(latitude))
		  ))
`

	rows, err := db.conn.Query(query, accountId, radiusKm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		u, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgRepository) AddContact(accountId, contactId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO contacts (account_id, contact_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		accountId,
		contactId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) ListContacts(accountId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.email, a.first_name, a.last_name, a.avatar, a.is_online, a.last_seen, "+
			"a.latitude, a.longitude, a.created_at, a.updated_at "+
			"FROM contacts c JOIN accounts a ON c.contact_id = a.id "+
			"WHERE c.account_id = $1 ORDER BY a.username",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		u, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgRepository) RemoveContact(accountId, contactId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM contacts WHERE account_id = $1 AND contact_id = $2",
		accountId,
		contactId,
	)

	return err
}

func (db *PgRepository) CreateChat(params CreateChatParams) (Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO chats (external_id, name, type, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, external_id, name, type, owner_id, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.Type,
		params.OwnerId,
		time.Now().UTC(),
	)

	var chat Chat
	err = res.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Name,
		&chat.Type,
		&chat.OwnerId,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return Chat{}, err
	}

	// the owner is always a participant
	members := append([]int{params.OwnerId}, params.ParticipantIds...)
	for _, accountId := range members {
		if _, err = tx.Exec(addParticipantQuery, chat.Id, accountId, time.Now().UTC()); err != nil {
			return Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Chat{}, err
	}

	return chat, nil
}

func (db *PgRepository) GetChatByExternalId(externalId string) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, type, owner_id, created_at, updated_at FROM chats "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var chat Chat
	err := row.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Name,
		&chat.Type,
		&chat.OwnerId,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)

	return chat, err
}

func (db *PgRepository) GetChatWithParticipants(chatId int) (*Chat, error) {
	query := `
		SELECT
				c.id,
				c.external_id,
				c.name,
				c.type,
				c.owner_id,
				c.created_at,
				c.updated_at,
				a.id,
				a.username,
				a.first_name,
				a.last_name,
				a.avatar,
				a.is_online,
				a.last_seen
		FROM chats c
		LEFT JOIN chat_participants p ON c.id = p.chat_id
		LEFT JOIN accounts a ON p.account_id = a.id
		WHERE c.id = $1;
`

	rows, err := db.conn.Query(query, chatId)
	if err != nil {
		return nil, fmt.Errorf("fetch chat with participants: %w", err)
	}
	defer rows.Close()

	var chat *Chat
	for rows.Next() {
		var (
			c         Chat
			accountId sql.NullInt64
			username  sql.NullString
			firstName sql.NullString
			lastName  sql.NullString
			avatar    sql.NullString
			isOnline  sql.NullBool
			lastSeen  sql.NullTime
		)

		err := rows.Scan(
			&c.Id,
			&c.ExternalId,
			&c.Name,
			&c.Type,
			&c.OwnerId,
			&c.CreatedAt,
			&c.UpdatedAt,
			&accountId,
			&username,
			&firstName,
			&lastName,
			&avatar,
			&isOnline,
			&lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if chat == nil {
			c.Participants = make([]User, 0)
			chat = &c
		}

		if accountId.Valid && username.Valid {
			u := User{
				Id:        int(accountId.Int64),
				Username:  username.String,
				FirstName: firstName.String,
				LastName:  lastName.String,
				Avatar:    avatar.String,
				IsOnline:  isOnline.Bool,
			}
			if lastSeen.Valid {
				t := lastSeen.Time
				u.LastSeen = &t
			}
			chat.Participants = append(chat.Participants, u)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if chat == nil {
		return nil, sql.ErrNoRows
	}

	return chat, nil
}

func (db *PgRepository) ListChats(accountId int) ([]Chat, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.external_id, c.name, c.type, c.owner_id, c.created_at, c.updated_at "+
			"FROM chat_participants p JOIN chats c ON c.id = p.chat_id WHERE p.account_id = $1 "+
			"ORDER BY c.updated_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err = rows.Scan(&chat.Id, &chat.ExternalId, &chat.Name, &chat.Type, &chat.OwnerId, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			break
		}

		chats = append(chats, chat)
	}
	return chats, err
}

func (db *PgRepository) DeleteChat(chatId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM chat_participants WHERE chat_id = $1", chatId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM messages WHERE chat_id = $1", chatId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM chats WHERE id = $1", chatId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgRepository) IsParticipant(accountId, chatId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM chat_participants WHERE account_id = $1 AND chat_id = $2 LIMIT 1",
		accountId,
		chatId,
	)

	var id int
	return res.Scan(&id) == nil
}

func (db *PgRepository) GetParticipants(chatId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.first_name, a.last_name, a.avatar FROM chat_participants AS p "+
			"JOIN accounts AS a ON p.account_id = a.id WHERE p.chat_id = $1",
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.FirstName, &u.LastName, &u.Avatar); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (chat_id, sender_id, content, content_type, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, chat_id, sender_id, content, content_type, read, created_at",
		params.ChatId,
		params.SenderId,
		params.Content,
		params.ContentType,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ChatId,
		&msg.SenderId,
		&msg.Content,
		&msg.ContentType,
		&msg.Read,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = db.conn.Exec("UPDATE chats SET updated_at = $1 WHERE id = $2", msg.CreatedAt, msg.ChatId)

	return msg, err
}

func (db *PgRepository) MarkMessageRead(messageId, chatId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET read = TRUE WHERE id = $1 AND chat_id = $2",
		messageId,
		chatId,
	)

	return err
}

func (db *PgRepository) GetMessages(chatId, since, before, limit int) ([]Message, error) {
	var upper, lower int = 1<<31 - 1, 0
	if before > 0 {
		upper = before - 1
	}

	if since > 0 {
		lower = since
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.chat_id, m.sender_id, a.username, m.content, m.content_type, m.read, m.created_at "+
			"FROM messages m JOIN accounts a ON m.sender_id = a.id "+
			"WHERE m.chat_id = $1 AND m.id BETWEEN $2 AND $3 ORDER BY m.id DESC LIMIT $4",
		chatId,
		lower,
		upper,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.ChatId, &msg.SenderId, &msg.Sender, &msg.Content, &msg.ContentType, &msg.Read, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}

func (db *PgRepository) UpsertKeyBundle(bundle KeyBundle) error {
	_, err := db.conn.Exec(
		"INSERT INTO signal_keys (account_id, identity_key, signed_pre_key, pre_key_signature, registration_id, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"ON CONFLICT (account_id) DO UPDATE SET identity_key = $2, signed_pre_key = $3, pre_key_signature = $4, registration_id = $5, updated_at = $6",
		bundle.AccountId,
		bundle.IdentityKey,
		bundle.SignedPreKey,
		bundle.PreKeySignature,
		bundle.RegistrationId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) GetKeyBundle(accountId int) (KeyBundle, error) {
	row := db.conn.QueryRow(
		"SELECT account_id, identity_key, signed_pre_key, pre_key_signature, registration_id, updated_at "+
			"FROM signal_keys WHERE account_id = $1 LIMIT 1",
		accountId,
	)

	var bundle KeyBundle
	err := row.Scan(
		&bundle.AccountId,
		&bundle.IdentityKey,
		&bundle.SignedPreKey,
		&bundle.PreKeySignature,
		&bundle.RegistrationId,
		&bundle.UpdatedAt,
	)

	return bundle, err
}
