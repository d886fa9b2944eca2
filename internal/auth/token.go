// Package auth holds the password hashing policy and the token service that
// proves a prior successful login on later requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/npezzotti/apex-protocol/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity asserted by an issued token. Membership and admin
// flags reflect the account at issue time and may be stale.
type Claims struct {
	UserId           int    `json:"userId"`
	Email            string `json:"email"`
	MembershipStatus bool   `json:"membershipStatus"`
	IsAdmin          bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies the credential presented on each request.
type Authenticator interface {
	IssueToken(user types.User) (string, error)
	VerifyToken(tokenString string) (*Claims, error)
}

type JWTAuthenticator struct {
	key      []byte
	expiry   time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTAuthenticator(key []byte, expiry time.Duration, issuer, audience string) *JWTAuthenticator {
	return &JWTAuthenticator{
		key:      key,
		expiry:   expiry,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

func (a *JWTAuthenticator) IssueToken(user types.User) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserId:           user.Id,
		Email:            user.Email,
		MembershipStatus: user.MembershipStatus,
		IsAdmin:          user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
	})

	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (a *JWTAuthenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid || claims.UserId <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
