package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	olderTs = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	newerTs = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
)

func storedMessages() ([]database.Message, []database.MessageWithAuthor) {
	plain := []database.Message{
		{Id: 2, Title: "Second", TextContent: "newer", UserId: 2, Timestamp: newerTs},
		{Id: 1, Title: "First", TextContent: "older", UserId: 1, Timestamp: olderTs},
	}
	withAuthors := []database.MessageWithAuthor{
		{Message: plain[0], AuthorFirstName: "Bob", AuthorLastName: "Jones"},
		{Message: plain[1], AuthorFirstName: "Alice", AuthorLastName: "Smith"},
	}
	return plain, withAuthors
}

func TestCreateMessage(t *testing.T) {
	tcases := []struct {
		name       string
		noAuth     bool
		body       string
		setup      func(repo *database.MockApexRepository)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "unauthenticated",
			noAuth:     true,
			body:       `{"title":"Hi","textContent":"there"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "access token required",
		},
		{
			name:       "missing title",
			body:       `{"textContent":"there"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "please provide both title and text content for the message",
		},
		{
			name:       "whitespace content",
			body:       `{"title":"Hi","textContent":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "please provide both title and text content for the message",
		},
		{
			name: "store failure",
			body: `{"title":"Hi","textContent":"there"}`,
			setup: func(repo *database.MockApexRepository) {
				repo.On("CreateMessage", mock.Anything, mock.Anything).Return(database.MessageWithAuthor{}, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
		{
			name: "success keeps text as sent",
			body: `{"title":"  Hi  ","textContent":"  line1\n\n  "}`,
			setup: func(repo *database.MockApexRepository) {
				repo.On("CreateMessage", mock.Anything, database.CreateMessageParams{
					Title:       "  Hi  ",
					TextContent: "  line1\n\n  ",
					UserId:      1,
				}).Return(database.MessageWithAuthor{
					Message:         database.Message{Id: 10, Title: "  Hi  ", TextContent: "  line1\n\n  ", UserId: 1, Timestamp: newerTs},
					AuthorFirstName: "Alice",
					AuthorLastName:  "Smith",
				}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			if tc.setup != nil {
				tc.setup(app.repo)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(tc.body))
			if !tc.noAuth {
				req.Header.Set("Authorization", "Bearer "+app.token(t, dbUser(1, false, false)))
			}
			rr := app.do(req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			app.repo.AssertExpectations(t)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, decodeApiError(t, rr).Message)
				app.stats.AssertNotCalled(t, "MessagePosted")
				return
			}

			var resp MessageResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "Message created successfully", resp.Msg)
			assert.Equal(t, 10, resp.Message.Id)
			assert.Equal(t, "  Hi  ", resp.Message.Title)
			assert.Equal(t, 1, resp.Message.AuthorId)
			assert.Equal(t, "Alice Smith", resp.Message.AuthorFullName)
			app.stats.AssertCalled(t, "MessagePosted")
		})
	}
}

func TestListMessages(t *testing.T) {
	plain, withAuthors := storedMessages()

	tcases := []struct {
		name        string
		viewer      *database.User
		viewerErr   error
		wantAuthors bool
	}{
		{name: "anonymous"},
		{name: "guest", viewer: ptr(dbUser(1, false, false))},
		{name: "member", viewer: ptr(dbUser(1, true, false)), wantAuthors: true},
		{name: "deleted account reads as guest", viewer: &database.User{}, viewerErr: fmt.Errorf("x: %w", sql.ErrNoRows)},
	}

	var guestView, memberView []types.Message
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
			if tc.viewer != nil {
				req.Header.Set("Authorization", "Bearer "+app.token(t, dbUser(1, false, false)))
				app.repo.On("GetUserById", mock.Anything, 1).Return(*tc.viewer, tc.viewerErr).Once()
			}
			if tc.wantAuthors {
				app.repo.On("ListMessagesWithAuthors", mock.Anything).Return(withAuthors, nil).Once()
			} else {
				app.repo.On("ListMessages", mock.Anything).Return(plain, nil).Once()
			}

			rr := app.do(req)

			require.Equal(t, http.StatusOK, rr.Code)
			var got []types.Message
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			require.Len(t, got, 2)
			assert.True(t, got[0].Timestamp.After(got[1].Timestamp), "expected newest first")

			for _, m := range got {
				assert.Zero(t, m.AuthorId, "author id should never be listed")
				if tc.wantAuthors {
					assert.NotEmpty(t, m.AuthorFullName)
				} else {
					assert.Empty(t, m.AuthorFullName)
				}
			}
			if tc.wantAuthors {
				assert.Equal(t, "Bob Jones", got[0].AuthorFullName)
				memberView = got
			} else {
				assert.NotContains(t, rr.Body.String(), "author")
				guestView = got
			}
			app.repo.AssertExpectations(t)
		})
	}

	t.Run("member and guest see the same messages", func(t *testing.T) {
		require.Len(t, guestView, 2)
		require.Len(t, memberView, 2)
		for i := range guestView {
			assert.Equal(t, guestView[i], memberView[i].ForViewer(false))
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		app := newTestApp(t)
		app.repo.On("ListMessages", mock.Anything).Return([]database.Message{}, nil).Once()

		rr := app.do(httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		app := newTestApp(t)
		app.repo.On("ListMessages", mock.Anything).Return(nil, errors.New("db down")).Once()

		rr := app.do(httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func ptr[T any](v T) *T {
	return &v
}

func TestDeleteMessage(t *testing.T) {
	tcases := []struct {
		name       string
		path       string
		caller     database.User
		setup      func(repo *database.MockApexRepository)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "not an admin",
			path:       "/api/messages/1",
			caller:     dbUser(1, true, false),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status_code":403,"message":"forbidden. admin access required"}`,
		},
		{
			name:       "bad id",
			path:       "/api/messages/abc",
			caller:     dbUser(1, true, true),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status_code":400,"message":"invalid message id format"}`,
		},
		{
			name:   "not found",
			path:   "/api/messages/42",
			caller: dbUser(1, true, true),
			setup: func(repo *database.MockApexRepository) {
				repo.On("DeleteMessage", mock.Anything, 42).Return(fmt.Errorf("delete: %w", sql.ErrNoRows)).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status_code":404,"message":"message not found"}`,
		},
		{
			name:   "deleted",
			path:   "/api/messages/42",
			caller: dbUser(1, true, true),
			setup: func(repo *database.MockApexRepository) {
				repo.On("DeleteMessage", mock.Anything, 42).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"msg":"Message with ID 42 deleted successfully."}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.repo.On("GetUserById", mock.Anything, tc.caller.Id).Return(tc.caller, nil).Once()
			if tc.setup != nil {
				tc.setup(app.repo)
			}

			req := httptest.NewRequest(http.MethodDelete, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+app.token(t, tc.caller))
			rr := app.do(req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.JSONEq(t, tc.wantBody, rr.Body.String())
			app.repo.AssertExpectations(t)
		})
	}

	t.Run("stale admin claim is not trusted", func(t *testing.T) {
		app := newTestApp(t)
		token := app.token(t, dbUser(1, true, true))
		app.repo.On("GetUserById", mock.Anything, 1).Return(dbUser(1, true, false), nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/messages/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := app.do(req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		app.repo.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
	})
}

func TestServeFeed(t *testing.T) {
	app := newTestApp(t)
	go app.hub.Run()
	defer app.hub.Shutdown()

	member := dbUser(1, true, false)
	app.repo.On("GetUserById", mock.Anything, 1).Return(member, nil)
	app.repo.On("CreateMessage", mock.Anything, mock.Anything).Return(database.MessageWithAuthor{
		Message:         database.Message{Id: 5, Title: "Live", TextContent: "update", UserId: 1, Timestamp: newerTs},
		AuthorFirstName: "Alice",
		AuthorLastName:  "Smith",
	}, nil)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/messages/feed"
	token := app.token(t, member)

	memberHeader := http.Header{}
	memberHeader.Set("Authorization", "Bearer "+token)
	memberConn, resp, err := websocket.DefaultDialer.Dial(wsURL, memberHeader)
	require.NoError(t, err)
	defer memberConn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	guestConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer guestConn.Close()

	require.Eventually(t, func() bool { return app.hub.NumClients() == 2 }, time.Second, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/messages", strings.NewReader(`{"title":"Live","textContent":"update"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	postResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	postResp.Body.Close()
	require.Equal(t, http.StatusCreated, postResp.StatusCode)

	var evt types.FeedEvent
	memberConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, memberConn.ReadJSON(&evt))
	assert.Equal(t, types.FeedMessageCreated, evt.Type)
	assert.Equal(t, "Alice Smith", evt.Message.AuthorFullName)

	evt = types.FeedEvent{}
	guestConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, guestConn.ReadJSON(&evt))
	assert.Equal(t, 5, evt.Message.Id)
	assert.Empty(t, evt.Message.AuthorFullName)

	t.Run("disallowed origin", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "https://evil.example.com")
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		assert.Error(t, err)
		if resp != nil {
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		}
	})
}
