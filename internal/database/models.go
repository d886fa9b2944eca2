package database

import "time"

// User mirrors a row of the users table. Username holds the login email.
type User struct {
	Id               int
	FirstName        string
	LastName         string
	Username         string
	PasswordHash     string
	MembershipStatus bool
	IsAdmin          bool
	CreatedAt        time.Time
}

type Message struct {
	Id          int
	Title       string
	TextContent string
	UserId      int
	Timestamp   time.Time
}

type MessageWithAuthor struct {
	Message
	AuthorFirstName string
	AuthorLastName  string
}

type CreateUserParams struct {
	FirstName        string
	LastName         string
	Username         string
	PasswordHash     string
	MembershipStatus bool
	IsAdmin          bool
}

type CreateMessageParams struct {
	Title       string
	TextContent string
	UserId      int
}
