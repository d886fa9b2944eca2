package api

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/npezzotti/apex-protocol/internal/auth"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/stats"
	"github.com/npezzotti/apex-protocol/internal/types"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type UserResponse struct {
	Msg   string     `json:"msg"`
	Token string     `json:"token,omitempty"`
	User  types.User `json:"user"`
}

type StatusResponse struct {
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            *types.User `json:"user"`
}

type MsgResponse struct {
	Msg string `json:"msg"`
}

func (s *ApexApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("json encode")
	}
}

func (s *ApexApp) decodeJson(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func publicUser(u database.User) types.User {
	return types.User{
		Id:               u.Id,
		Username:         u.Username,
		Email:            u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		MembershipStatus: u.MembershipStatus,
		IsAdmin:          u.IsAdmin,
		CreatedAt:        u.CreatedAt,
	}
}

func passcodeMatches(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

func (s *ApexApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := s.decodeJson(w, r, &req); err != nil {
		errResp := NewValidationError("invalid request body")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := validate.Struct(req); err != nil {
		errResp := NewValidationError(registerValidationMessage(err))
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	_, err := s.db.GetUserByUsername(r.Context(), req.Email)
	if err == nil {
		errResp := NewConflictError("user with this email already exists")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.WithError(err).Error("failed to look up user")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.WithError(err).Error("failed to hash password")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateUser(r.Context(), database.CreateUserParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateEmail) {
			errResp = NewConflictError("user with this email already exists")
		} else {
			s.log.WithError(err).Error("failed to create user")
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.UserRegistered()
	s.log.WithField("user_id", newUser.Id).Info("user registered")

	s.writeJson(w, http.StatusCreated, UserResponse{
		Msg:  "User registered successfully",
		User: publicUser(newUser),
	})
}

func (s *ApexApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := s.decodeJson(w, r, &req); err != nil {
		errResp := NewValidationError("invalid request body")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := validate.Struct(req); err != nil {
		errResp := NewValidationError("please enter all fields")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByUsername(r.Context(), req.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			auth.RejectPassword(req.Password)
			s.stats.LoginAttempt(false)
			errResp = NewAuthenticationError("invalid email or password")
		} else {
			s.log.WithError(err).Error("failed to look up user")
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !auth.VerifyPassword(dbUser.PasswordHash, req.Password) {
		s.stats.LoginAttempt(false)
		errResp := NewAuthenticationError("invalid email or password")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user := publicUser(dbUser)
	token, err := s.authn.IssueToken(user)
	if err != nil {
		s.log.WithError(err).Error("failed to issue token")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.LoginAttempt(true)
	http.SetCookie(w, createJwtCookie(token, s.cfg.TokenExpiry))

	s.writeJson(w, http.StatusOK, UserResponse{
		Msg:   "Logged in successfully",
		Token: token,
		User:  user,
	})
}

// logout is advisory for bearer clients; browsers get the cookie cleared.
func (s *ApexApp) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, expiredJwtCookie())
	s.writeJson(w, http.StatusOK, MsgResponse{Msg: "Logged out successfully"})
}

// status never fails; anything short of a fresh user row reads as a guest.
func (s *ApexApp) status(w http.ResponseWriter, r *http.Request) {
	guest := StatusResponse{IsAuthenticated: false, User: nil}

	userId, ok := UserId(r.Context())
	if !ok {
		s.writeJson(w, http.StatusOK, guest)
		return
	}

	dbUser, err := s.db.GetUserById(r.Context(), userId)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.WithError(err).Error("failed to load user for status")
		}
		s.writeJson(w, http.StatusOK, guest)
		return
	}

	user := publicUser(dbUser)
	s.writeJson(w, http.StatusOK, StatusResponse{IsAuthenticated: true, User: &user})
}

func (s *ApexApp) joinClub(w http.ResponseWriter, r *http.Request) {
	callerId, ok := UserId(r.Context())
	if !ok {
		errResp := NewAuthenticationError("authentication required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinClubRequest
	if err := s.decodeJson(w, r, &req); err != nil {
		errResp := NewValidationError("invalid request body")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := validate.Struct(req); err != nil {
		errResp := NewValidationError("please provide a passcode")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.UserId != nil && int(*req.UserId) != callerId {
		errResp := NewForbiddenError("unauthorized: cannot modify another user's membership")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !passcodeMatches(req.Passcode, s.cfg.MembershipPasscode) {
		errResp := NewAuthenticationError("invalid passcode. access denied.")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GrantMembership(r.Context(), callerId)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			errResp = NewNotFoundError("user not found")
		case errors.Is(err, database.ErrFlagAlreadySet):
			errResp = NewConflictError("user is already a member")
		default:
			s.log.WithError(err).Error("failed to grant membership")
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user := publicUser(dbUser)
	token, err := s.authn.IssueToken(user)
	if err != nil {
		s.log.WithError(err).Error("failed to issue token")
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.PrivilegeGranted(stats.GrantMembership)
	s.log.WithField("user_id", user.Id).Info("membership granted")
	http.SetCookie(w, createJwtCookie(token, s.cfg.TokenExpiry))

	s.writeJson(w, http.StatusOK, UserResponse{
		Msg:   "Membership successfully activated!",
		Token: token,
		User:  user,
	})
}

// grantAdmin trusts the admin passcode and the target id from the body.
// Self-only grants are enforced when GrantAdminRequireSelf is set.
func (s *ApexApp) grantAdmin(w http.ResponseWriter, r *http.Request) {
	var req GrantAdminRequest
	if err := s.decodeJson(w, r, &req); err != nil {
		errResp := NewValidationError("please provide userId and adminPasscode")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := validate.Struct(req); err != nil || *req.UserId == 0 {
		errResp := NewValidationError("please provide userId and adminPasscode")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	targetId := int(*req.UserId)

	callerId, authenticated := UserId(r.Context())
	if s.cfg.GrantAdminRequireSelf && (!authenticated || callerId != targetId) {
		errResp := NewForbiddenError("unauthorized: cannot modify another user's admin status")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !passcodeMatches(req.AdminPasscode, s.cfg.AdminPasscode) {
		errResp := NewForbiddenError("invalid admin passcode. forbidden.")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GrantAdmin(r.Context(), targetId)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			errResp = NewNotFoundError("user not found")
		case errors.Is(err, database.ErrFlagAlreadySet):
			errResp = NewConflictError("user is already an admin")
		default:
			s.log.WithError(err).Error("failed to grant admin")
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user := publicUser(dbUser)
	resp := UserResponse{
		Msg:  "Admin privileges granted successfully!",
		User: user,
	}

	if authenticated && callerId == targetId {
		token, err := s.authn.IssueToken(user)
		if err != nil {
			s.log.WithError(err).Error("failed to issue token")
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		resp.Token = token
		http.SetCookie(w, createJwtCookie(token, s.cfg.TokenExpiry))
	}

	s.stats.PrivilegeGranted(stats.GrantAdmin)
	s.log.WithFields(logrus.Fields{
		"user_id":   user.Id,
		"caller_id": callerId,
	}).Info("admin granted")

	s.writeJson(w, http.StatusOK, resp)
}
