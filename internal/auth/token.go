package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"cafe/internal/access"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// TokenMaker signs and verifies HS256 access tokens.
type TokenMaker struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenMaker(secret string, ttl time.Duration) (*TokenMaker, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &TokenMaker{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Create issues a token for id valid for the configured TTL.
func (m *TokenMaker) Create(id access.Identity) (string, time.Time, error) {
	issued := m.now()
	expires := issued.Add(m.ttl)

	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   id.Username,
			IssuedAt:  issued.Unix(),
			ExpiresAt: expires.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses tokenString and returns the identity it carries.
func (m *TokenMaker) Verify(tokenString string) (access.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return access.Identity{}, err
	}
	if !token.Valid {
		return access.Identity{}, errors.New("invalid token")
	}

	return access.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}
