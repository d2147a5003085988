package core

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeRoomNotFound      = "ROOM_NOT_FOUND"
	ErrCodeRoomFull          = "ROOM_FULL"
	ErrCodeInvalidMove       = "INVALID_MOVE"
	ErrCodeNotYourTurn       = "NOT_YOUR_TURN"
	ErrCodeGameOver          = "GAME_OVER"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidFEN        = "INVALID_FEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

var (
	ErrInvalidFEN          = errors.New("invalid FEN")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNotYourPiece        = errors.New("piece belongs to the opponent")
	ErrPieceNotFound       = errors.New("piece not found")
	ErrIllegalMove         = errors.New("illegal move")
	ErrUnresolvedPromotion = errors.New("promotion must be resolved before apply")
	ErrNoPendingPromotion  = errors.New("no pending promotion")
	ErrInvalidPromotion    = errors.New("invalid promotion piece")
	ErrGameOver            = errors.New("game is over")
	ErrInactive            = errors.New("coordinator is closed")
	ErrNotConnected        = errors.New("not connected")
)

// ParseError describes a malformed position string
type ParseError struct {
	Field  string // placement, color or enPassant
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid FEN %s %q: %s", e.Field, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidFEN
}

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
