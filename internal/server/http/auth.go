package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/lixenwraith/auth"

	"mychess/internal/core"
)

const (
	tokenTTL        = 24 * time.Hour
	minSecretLength = 32
)

var errBadClaims = errors.New("token is missing seat claims")

// Claims is the seat a join token was issued for
type Claims struct {
	ParticipantID string
	Username      string
	Email         string
	Room          string
	Color         core.Color
}

func (c Claims) Participant() core.Participant {
	return core.Participant{ID: c.ParticipantID, Username: c.Username, Email: c.Email}
}

// Tokens issues and checks HS256 join tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret []byte) (*Tokens, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	return &Tokens{secret: secret, ttl: tokenTTL}, nil
}

// Issue binds p to a seat in room
func (t *Tokens) Issue(p core.Participant, room string, color core.Color) (string, error) {
	claims := map[string]any{
		"username": p.Username,
		"email":    p.Email,
		"room":     room,
		"color":    color.String(),
	}
	return auth.GenerateHS256Token(t.secret, p.ID, claims, t.ttl)
}

// Validate verifies token and returns the seat it carries
func (t *Tokens) Validate(token string) (Claims, error) {
	subject, raw, err := auth.ValidateHS256Token(t.secret, token)
	if err != nil {
		return Claims{}, err
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}

	c := Claims{
		ParticipantID: subject,
		Username:      str("username"),
		Email:         str("email"),
		Room:          str("room"),
	}
	if err := c.Color.UnmarshalText([]byte(str("color"))); err != nil || c.Room == "" || c.Email == "" {
		return Claims{}, errBadClaims
	}
	return c, nil
}
