package storage

import (
	"database/sql"
	"fmt"
)

// RecordRoom asynchronously records a new room
func (s *Store) RecordRoom(record RoomRecord) {
	s.enqueue("room", func(tx *sql.Tx) error {
		query := `INSERT INTO rooms (
			room_id, code,
			white_id, white_name, white_email,
			black_id, black_name, black_email,
			status, game_status, fen, captured, created_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.RoomID, record.Code,
			record.WhiteID, record.WhiteName, record.WhiteEmail,
			record.BlackID, record.BlackName, record.BlackEmail,
			record.Status, record.GameStatus, record.FEN, record.Captured, record.CreatedAtUTC,
		)
		return err
	})
}

// UpdateRoom asynchronously rewrites the mutable columns of a room
func (s *Store) UpdateRoom(record RoomRecord) {
	s.enqueue("room update", func(tx *sql.Tx) error {
		query := `UPDATE rooms SET
			black_id = ?, black_name = ?, black_email = ?,
			status = ?, game_status = ?, fen = ?, captured = ?
		WHERE room_id = ?`

		res, err := tx.Exec(query,
			record.BlackID, record.BlackName, record.BlackEmail,
			record.Status, record.GameStatus, record.FEN, record.Captured,
			record.RoomID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("room %s not found", record.RoomID)
		}
		return nil
	})
}

// RecordMove asynchronously records a move
func (s *Store) RecordMove(record MoveRecord) {
	s.enqueue("move", func(tx *sql.Tx) error {
		query := `INSERT INTO moves (
			room_id, move_number, piece_id, from_square, to_square,
			outcome, fen_after_move, player_color, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.RoomID, record.MoveNumber, record.PieceID, record.FromSquare, record.ToSquare,
			record.Outcome, record.FENAfterMove, record.PlayerColor, record.MoveTimeUTC,
		)
		return err
	})
}

// QueryRooms retrieves rooms, optionally filtered by code or player email
func (s *Store) QueryRooms(code, email string) ([]RoomRecord, error) {
	query := `SELECT
		room_id, code,
		white_id, white_name, white_email,
		black_id, black_name, black_email,
		status, game_status, fen, captured, created_at_utc
	FROM rooms WHERE 1=1`

	var args []any
	if code != "" && code != "*" {
		query += " AND code = ?"
		args = append(args, code)
	}
	if email != "" && email != "*" {
		query += " AND (white_email = ? OR black_email = ?)"
		args = append(args, email, email)
	}
	query += " ORDER BY created_at_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var rooms []RoomRecord
	for rows.Next() {
		var r RoomRecord
		err := rows.Scan(
			&r.RoomID, &r.Code,
			&r.WhiteID, &r.WhiteName, &r.WhiteEmail,
			&r.BlackID, &r.BlackName, &r.BlackEmail,
			&r.Status, &r.GameStatus, &r.FEN, &r.Captured, &r.CreatedAtUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return rooms, nil
}

// QueryMoves returns a room's moves in play order
func (s *Store) QueryMoves(roomID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT
		move_id, room_id, move_number, piece_id, from_square, to_square,
		outcome, fen_after_move, player_color, move_time_utc
	FROM moves WHERE room_id = ? ORDER BY move_number`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(
			&m.MoveID, &m.RoomID, &m.MoveNumber, &m.PieceID, &m.FromSquare, &m.ToSquare,
			&m.Outcome, &m.FENAfterMove, &m.PlayerColor, &m.MoveTimeUTC,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return moves, nil
}
