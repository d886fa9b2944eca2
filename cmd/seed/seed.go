package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/apex-protocol/internal/auth"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/sirupsen/logrus"
)

var errNotEmpty = errors.New("users table is not empty, rerun with -reset")

type seedStore interface {
	CreateUser(ctx context.Context, params database.CreateUserParams) (database.User, error)
	CreateMessage(ctx context.Context, params database.CreateMessageParams) (database.MessageWithAuthor, error)
	CountUsers(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

type demoMessage struct {
	title   string
	content string
	author  int
}

var demoUsers = []database.CreateUserParams{
	{FirstName: "Alice", LastName: "Wonder", Username: "alice@example.com"},
	{FirstName: "Bob", LastName: "Builder", Username: "bob@example.com", MembershipStatus: true},
	{FirstName: "Charlie", LastName: "Admin", Username: "charlie@example.com", MembershipStatus: true, IsAdmin: true},
	{FirstName: "Diana", LastName: "Prince", Username: "diana@example.com"},
}

// author indexes into demoUsers.
var demoMessages = []demoMessage{
	{"Hello World", "My first post!", 0},
	{"Club Rules", "Welcome to the club, members!", 1},
	{"Admin Announcement", "Important update from admin.", 2},
	{"Thoughts on Privacy", "A public thought.", 0},
	{"Project Ideas", "Let's discuss new projects.", 1},
}

func run(ctx context.Context, store seedStore, logger *logrus.Logger, reset bool) error {
	if reset {
		logger.Info("resetting tables")
		if err := store.Reset(ctx); err != nil {
			return err
		}
	} else {
		n, err := store.CountUsers(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return errNotEmpty
		}
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ids := make([]int, len(demoUsers))
	for i, params := range demoUsers {
		params.PasswordHash = hash
		u, err := store.CreateUser(ctx, params)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", params.Username, err)
		}
		ids[i] = u.Id
		logger.WithFields(logrus.Fields{
			"user_id": u.Id,
			"email":   u.Username,
			"member":  u.MembershipStatus,
			"admin":   u.IsAdmin,
		}).Info("created user")
	}

	for _, m := range demoMessages {
		msg, err := store.CreateMessage(ctx, database.CreateMessageParams{
			Title:       m.title,
			TextContent: m.content,
			UserId:      ids[m.author],
		})
		if err != nil {
			return fmt.Errorf("seed message %q: %w", m.title, err)
		}
		logger.WithFields(logrus.Fields{
			"message_id": msg.Id,
			"user_id":    msg.UserId,
		}).Infof("created message %q", msg.Title)
	}

	return nil
}
