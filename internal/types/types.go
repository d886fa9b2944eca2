package types

import (
	"time"
)

// User is the public view of an account. The password hash never leaves the
// database package.
type User struct {
	Id               int       `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	MembershipStatus bool      `json:"membershipStatus"`
	IsAdmin          bool      `json:"isAdmin"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Message is a feed entry. AuthorFullName is only filled in for member
// viewers and AuthorId only on the author's own create response and the
// diagnostic dump.
type Message struct {
	Id             int       `json:"id"`
	Title          string    `json:"title"`
	TextContent    string    `json:"textContent"`
	Timestamp      time.Time `json:"timestamp"`
	AuthorId       int       `json:"authorId,omitempty"`
	AuthorFullName string    `json:"authorFullName,omitempty"`
}

// ForViewer returns the copy of m a viewer is allowed to see. Only members
// get the author's name; nobody gets the author id.
func (m Message) ForViewer(member bool) Message {
	view := Message{
		Id:          m.Id,
		Title:       m.Title,
		TextContent: m.TextContent,
		Timestamp:   m.Timestamp,
	}
	if member {
		view.AuthorFullName = m.AuthorFullName
	}

	return view
}

const (
	FeedMessageCreated = "message_created"
	FeedMessageDeleted = "message_deleted"
)

// FeedEvent is pushed to live feed subscribers.
type FeedEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}
