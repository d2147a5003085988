package core

// Room status values reported by the relay
const (
	RoomWaiting = "waiting"
	RoomPlaying = "playing"
	RoomClosed  = "closed"
)

// Participant identifies a seated player
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RoomSnapshot is the full room state fetched on load and pushed after joins
type RoomSnapshot struct {
	ID             string       `json:"id"`
	Code           string       `json:"code"`
	FEN            string       `json:"fen"`
	WhitePlayer    *Participant `json:"whitePlayer,omitempty"`
	BlackPlayer    *Participant `json:"blackPlayer,omitempty"`
	CapturedPieces string       `json:"capturedPieces"`
	RoomStatus     string       `json:"roomStatus"`
	GameStatus     string       `json:"gameStatus,omitempty"`
}

// LiveMove is the payload broadcast for each accepted move
type LiveMove struct {
	Move Move   `json:"move"`
	FEN  string `json:"fen"`
}

// Request types

type CreateRoomRequest struct {
	Username string `json:"username" validate:"required,min=1,max=40"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

type JoinRoomRequest struct {
	Username string `json:"username" validate:"required,min=1,max=40"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

// Response types

type JoinResponse struct {
	Room  RoomSnapshot `json:"room"`
	Color Color        `json:"color"`
	Token string       `json:"token"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage,omitempty"` // "ok" or "degraded"
	Rooms   int    `json:"rooms"`
}
