package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the identity carried by a signed admin token.
type Session struct {
	UserID    uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token valid for ttl starting at now.
func GenerateToken(secret string, s Session, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("empty signing secret")
	}

	expires := now.Add(ttl)
	claims := &sessionClaims{
		ID:    s.UserID.String(),
		Name:  s.Name,
		Email: s.Email,
		Image: s.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken validates the token and returns the embedded session.
func ParseToken(secret, tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Session{}, err
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Session{}, jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return Session{}, jwt.ErrTokenInvalidClaims
	}

	return Session{
		UserID:    id,
		Name:      claims.Name,
		Email:     claims.Email,
		Image:     claims.Image,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
