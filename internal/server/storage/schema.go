package storage

import "time"

// RoomRecord is a row in the rooms table
type RoomRecord struct {
	RoomID       string    `db:"room_id"`
	Code         string    `db:"code"`
	WhiteID      string    `db:"white_id"`
	WhiteName    string    `db:"white_name"`
	WhiteEmail   string    `db:"white_email"`
	BlackID      string    `db:"black_id"`
	BlackName    string    `db:"black_name"`
	BlackEmail   string    `db:"black_email"`
	Status       string    `db:"status"`
	GameStatus   string    `db:"game_status"`
	FEN          string    `db:"fen"`
	Captured     string    `db:"captured"`
	CreatedAtUTC time.Time `db:"created_at_utc"`
}

// MoveRecord is a row in the moves table. Squares are algebraic.
type MoveRecord struct {
	MoveID       int64     `db:"move_id"`
	RoomID       string    `db:"room_id"`
	MoveNumber   int       `db:"move_number"`
	PieceID      string    `db:"piece_id"`
	FromSquare   string    `db:"from_square"`
	ToSquare     string    `db:"to_square"`
	Outcome      string    `db:"outcome"`
	FENAfterMove string    `db:"fen_after_move"`
	PlayerColor  string    `db:"player_color"`
	MoveTimeUTC  time.Time `db:"move_time_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id TEXT PRIMARY KEY,
	code TEXT UNIQUE NOT NULL COLLATE NOCASE,
	white_id TEXT NOT NULL,
	white_name TEXT NOT NULL,
	white_email TEXT NOT NULL COLLATE NOCASE,
	black_id TEXT NOT NULL DEFAULT '',
	black_name TEXT NOT NULL DEFAULT '',
	black_email TEXT NOT NULL DEFAULT '' COLLATE NOCASE,
	status TEXT NOT NULL CHECK(status IN ('waiting', 'playing', 'closed')),
	game_status TEXT NOT NULL DEFAULT '',
	fen TEXT NOT NULL,
	captured TEXT NOT NULL DEFAULT '',
	created_at_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rooms_white_email ON rooms(white_email);
CREATE INDEX IF NOT EXISTS idx_rooms_black_email ON rooms(black_email);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	move_number INTEGER NOT NULL,
	piece_id TEXT NOT NULL,
	from_square TEXT NOT NULL,
	to_square TEXT NOT NULL,
	outcome TEXT NOT NULL,
	fen_after_move TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE,
	UNIQUE(room_id, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_room_id ON moves(room_id);
`
