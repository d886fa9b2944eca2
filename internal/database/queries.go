package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	userColumns = "id, first_name, last_name, username, password_hash, membership_status, is_admin, created_at"

	createUserQuery = "INSERT INTO users (first_name, last_name, username, password_hash, membership_status, is_admin) " +
		"VALUES ($1, $2, $3, $4, $5, $6) RETURNING " + userColumns
	getUserByIdQuery       = "SELECT " + userColumns + " FROM users WHERE id = $1 LIMIT 1"
	getUserByUsernameQuery = "SELECT " + userColumns + " FROM users WHERE username = $1 LIMIT 1"
	listUsersQuery         = "SELECT " + userColumns + " FROM users ORDER BY id"

	// Flag updates only match rows still carrying FALSE, so of two
	// concurrent grants exactly one sees a returned row.
	grantMembershipQuery = "UPDATE users SET membership_status = TRUE " +
		"WHERE id = $1 AND membership_status = FALSE RETURNING " + userColumns
	grantAdminQuery = "UPDATE users SET is_admin = TRUE " +
		"WHERE id = $1 AND is_admin = FALSE RETURNING " + userColumns

	createMessageQuery = `
		WITH m AS (
			INSERT INTO messages (title, text_content, user_id)
			VALUES ($1, $2, $3)
			RETURNING id, title, text_content, user_id, timestamp
		)
		SELECT m.id, m.title, m.text_content, m.user_id, m.timestamp, u.first_name, u.last_name
		FROM m JOIN users u ON u.id = m.user_id`
	listMessagesQuery = "SELECT id, title, text_content, user_id, timestamp FROM messages " +
		"ORDER BY timestamp DESC, id DESC"
	listMessagesWithAuthorsQuery = `
		SELECT m.id, m.title, m.text_content, m.user_id, m.timestamp, u.first_name, u.last_name
		FROM messages m
		JOIN users u ON m.user_id = u.id
		ORDER BY m.timestamp DESC, m.id DESC`
	deleteMessageQuery = "DELETE FROM messages WHERE id = $1"

	countUsersQuery = "SELECT COUNT(*) FROM users"
	resetQuery      = "TRUNCATE messages, users RESTART IDENTITY CASCADE"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.PasswordHash,
		&u.MembershipStatus,
		&u.IsAdmin,
		&u.CreatedAt,
	)

	return u, err
}

func scanMessageWithAuthor(row scanner) (MessageWithAuthor, error) {
	var m MessageWithAuthor
	err := row.Scan(
		&m.Id,
		&m.Title,
		&m.TextContent,
		&m.UserId,
		&m.Timestamp,
		&m.AuthorFirstName,
		&m.AuthorLastName,
	)

	return m, err
}

func (db *PgApexRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		createUserQuery,
		params.FirstName,
		params.LastName,
		params.Username,
		params.PasswordHash,
		params.MembershipStatus,
		params.IsAdmin,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (db *PgApexRepository) GetUserById(ctx context.Context, id int) (User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, getUserByIdQuery, id))
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}

	return u, nil
}

func (db *PgApexRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, getUserByUsernameQuery, username))
	if err != nil {
		return User{}, fmt.Errorf("get user by username: %w", err)
	}

	return u, nil
}

func (db *PgApexRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.conn.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (db *PgApexRepository) GrantMembership(ctx context.Context, id int) (User, error) {
	return db.setFlag(ctx, grantMembershipQuery, id)
}

func (db *PgApexRepository) GrantAdmin(ctx context.Context, id int) (User, error) {
	return db.setFlag(ctx, grantAdminQuery, id)
}

// setFlag runs a conditional flag update. When nothing matched it tells a
// missing row (sql.ErrNoRows) apart from a flag that was already set.
func (db *PgApexRepository) setFlag(ctx context.Context, query string, id int) (User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, query, id))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("update user %d: %w", id, err)
	}

	if _, err := db.GetUserById(ctx, id); err != nil {
		return User{}, err
	}

	return User{}, ErrFlagAlreadySet
}

func (db *PgApexRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (MessageWithAuthor, error) {
	m, err := scanMessageWithAuthor(db.conn.QueryRowContext(ctx,
		createMessageQuery,
		params.Title,
		params.TextContent,
		params.UserId,
	))
	if err != nil {
		return MessageWithAuthor{}, fmt.Errorf("create message: %w", err)
	}

	return m, nil
}

func (db *PgApexRepository) ListMessages(ctx context.Context) ([]Message, error) {
	rows, err := db.conn.QueryContext(ctx, listMessagesQuery)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Id, &m.Title, &m.TextContent, &m.UserId, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (db *PgApexRepository) ListMessagesWithAuthors(ctx context.Context) ([]MessageWithAuthor, error) {
	rows, err := db.conn.QueryContext(ctx, listMessagesWithAuthorsQuery)
	if err != nil {
		return nil, fmt.Errorf("list messages with authors: %w", err)
	}
	defer rows.Close()

	messages := make([]MessageWithAuthor, 0)
	for rows.Next() {
		m, err := scanMessageWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

// DeleteMessage returns sql.ErrNoRows when no message has the given id.
func (db *PgApexRepository) DeleteMessage(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, deleteMessageQuery, id)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete message %d: %w", id, sql.ErrNoRows)
	}

	return nil
}

func (db *PgApexRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, countUsersQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return n, nil
}

// Reset empties both tables and restarts their id sequences.
func (db *PgApexRepository) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, resetQuery); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	return nil
}
