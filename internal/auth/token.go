// Package auth issues and checks the session tokens a client presents to
// resume its seat in a room after the connection drops.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const (
	issuer     = "stackrush"
	DefaultTTL = 2 * time.Hour
)

var (
	ErrNoSecret     = errors.New("token secret is required")
	ErrInvalidToken = errors.New("invalid session token")
)

// Session identifies one seat: a player in a room.
type Session struct {
	RoomCode string
	PlayerID string
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs an HS256 token for s.
func (s *Signer) Issue(sess Session) (string, error) {
	if sess.RoomCode == "" || sess.PlayerID == "" {
		return "", fmt.Errorf("room and player are required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss":  issuer,
		"sub":  sess.PlayerID,
		"room": sess.RoomCode,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies a token and returns the seat it names.
func (s *Signer) Parse(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != issuer {
		return Session{}, fmt.Errorf("%w: issuer %q", ErrInvalidToken, iss)
	}
	sub, _ := claims["sub"].(string)
	room, _ := claims["room"].(string)
	if sub == "" || room == "" {
		return Session{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return Session{RoomCode: room, PlayerID: sub}, nil
}
