package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/feed"
	"github.com/npezzotti/apex-protocol/internal/types"
)

type MessageResponse struct {
	Msg     string        `json:"msg"`
	Message types.Message `json:"message"`
}

func messageWithAuthor(m database.MessageWithAuthor) types.Message {
	return types.Message{
		Id:             m.Id,
		Title:          m.Title,
		TextContent:    m.TextContent,
		Timestamp:      m.Timestamp,
		AuthorId:       m.UserId,
		AuthorFullName: m.AuthorFirstName + " " + m.AuthorLastName,
	}
}

// viewer resolves the caller's current membership. Unknown or anonymous
// callers are guests.
func (s *ApexApp) viewer(r *http.Request) (feed.Viewer, error) {
	userId, ok := UserId(r.Context())
	if !ok {
		return feed.Viewer{}, nil
	}

	user, err := s.db.GetUserById(r.Context(), userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return feed.Viewer{}, nil
		}
		return feed.Viewer{}, err
	}

	return feed.Viewer{UserId: user.Id, Member: user.MembershipStatus}, nil
}

func (s *ApexApp) publish(evtType string, msg types.Message) {
	s.hub.Publish(types.FeedEvent{Type: evtType, Message: msg})
}

func (s *ApexApp) createMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewAuthenticationError("user not authenticated")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateMessageRequest
	if err := s.decodeJson(w, r, &req); err != nil {
		errResp := NewValidationError("invalid request body")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := validate.Struct(req); err != nil {
		errResp := NewValidationError("please provide both title and text content for the message")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMsg, err := s.db.CreateMessage(r.Context(), database.CreateMessageParams{
		Title:       req.Title,
		TextContent: req.TextContent,
		UserId:      userId,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to create message")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg := messageWithAuthor(dbMsg)
	s.stats.MessagePosted()
	s.publish(types.FeedMessageCreated, msg)

	s.writeJson(w, http.StatusCreated, MessageResponse{
		Msg:     "Message created successfully",
		Message: msg,
	})
}

func (s *ApexApp) listMessages(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewer(r)
	if err != nil {
		s.log.WithError(err).Error("failed to load viewer")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0)
	if v.Member {
		rows, err := s.db.ListMessagesWithAuthors(r.Context())
		if err != nil {
			s.log.WithError(err).Error("failed to list messages")
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		for _, m := range rows {
			messages = append(messages, messageWithAuthor(m).ForViewer(true))
		}
	} else {
		rows, err := s.db.ListMessages(r.Context())
		if err != nil {
			s.log.WithError(err).Error("failed to list messages")
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		for _, m := range rows {
			messages = append(messages, types.Message{
				Id:          m.Id,
				Title:       m.Title,
				TextContent: m.TextContent,
				Timestamp:   m.Timestamp,
			})
		}
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ApexApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewValidationError("invalid message id format")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteMessage(r.Context(), id); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError("message not found")
		} else {
			s.log.WithError(err).Error("failed to delete message")
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.MessageDeleted()
	s.publish(types.FeedMessageDeleted, types.Message{Id: id})

	s.writeJson(w, http.StatusOK, MsgResponse{
		Msg: fmt.Sprintf("Message with ID %d deleted successfully.", id),
	})
}

func (s *ApexApp) serveFeed(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewer(r)
	if err != nil {
		s.log.WithError(err).Error("failed to load viewer")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("error upgrading connection")
		return
	}

	client, err := feed.NewClient(conn, s.hub, s.log, v)
	if err != nil {
		s.log.WithError(err).Error("failed to create feed client")
		conn.Close()
		return
	}

	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
