package api

import (
	"net/http"

	"github.com/npezzotti/apex-protocol/internal/types"
)

func (s *ApexApp) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello from Apex Protocol Backend!"))
}

func (s *ApexApp) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.WithError(err).Error("health check failed")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// testUsers dumps every account minus its password hash.
func (s *ApexApp) testUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListUsers(r.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to list users")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, publicUser(u))
	}

	s.writeJson(w, http.StatusOK, users)
}

// testMessages dumps the stored rows. Author names stay behind the
// membership gate.
func (s *ApexApp) testMessages(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListMessages(r.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to list messages")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(rows))
	for _, m := range rows {
		messages = append(messages, types.Message{
			Id:          m.Id,
			Title:       m.Title,
			TextContent: m.TextContent,
			Timestamp:   m.Timestamp,
			AuthorId:    m.UserId,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}
