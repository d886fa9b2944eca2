package database

import "context"

// ApexRepository is the credential store. Lookups that find nothing return
// an error wrapping sql.ErrNoRows.
type ApexRepository interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserById(ctx context.Context, id int) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	GrantMembership(ctx context.Context, id int) (User, error)
	GrantAdmin(ctx context.Context, id int) (User, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (MessageWithAuthor, error)
	ListMessages(ctx context.Context) ([]Message, error)
	ListMessagesWithAuthors(ctx context.Context) ([]MessageWithAuthor, error)
	DeleteMessage(ctx context.Context, id int) error
}
