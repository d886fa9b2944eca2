package api

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIdHeader = "X-Request-Id"

func (s *ApexApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Errorf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Hijack lets the feed upgrade connections through the recorder.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	rec.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *ApexApp) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqId := r.Header.Get(requestIdHeader)
		if reqId == "" {
			reqId = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, reqId)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.stats.ObserveRequest(r.Method, route, rec.status, elapsed)

		s.log.WithFields(logrus.Fields{
			"request_id": reqId,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   elapsed,
		}).Info("request")
	})
}

func (s *ApexApp) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			errResp := NewAuthenticationError("access token required")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		claims, err := s.authn.VerifyToken(tokenString)
		if err != nil {
			s.log.WithError(err).Debug("failed to verify token")
			errResp := NewAuthenticationError("invalid or expired token")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserId(r.Context(), claims.UserId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

// optionalAuth resolves the caller when a valid credential is present and
// otherwise continues as a guest.
func (s *ApexApp) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString != "" {
			claims, err := s.authn.VerifyToken(tokenString)
			if err == nil {
				r = r.WithContext(WithUserId(r.Context(), claims.UserId))
				w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			}
		}

		next(w, r)
	}
}

// requireAdmin must run after requireAuth. The admin flag is read from the
// store, not from the token.
func (s *ApexApp) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewAuthenticationError("access token required")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.db.GetUserById(r.Context(), userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewAuthenticationError("user session invalid")
			} else {
				errResp = NewInternalServerError(err)
				s.log.WithError(err).Error("failed to load caller")
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !user.IsAdmin {
			errResp := NewForbiddenError("forbidden. admin access required")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	}
}
