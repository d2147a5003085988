package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"mychess/internal/board"
	"mychess/internal/core"
	"mychess/internal/server/hub"
)

const testSecret = "test-secret-minimum-32-characters-long"

func newTestApp(t *testing.T) (*fiber.App, *hub.Hub, *Tokens) {
	t.Helper()
	tokens, err := NewTokens([]byte(testSecret))
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	rooms := hub.New(nil, nil)
	return NewFiberApp(rooms, tokens, true, nil), rooms, tokens
}

// call performs a request and decodes the JSON response into out
func call(t *testing.T, app *fiber.App, method, path, body, token string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	app, _, _ := newTestApp(t)
	var got core.HealthResponse
	if status := call(t, app, fiber.MethodGet, "/health", "", "", &got); status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.Status != "healthy" || got.Storage != "disabled" || got.Rooms != 0 {
		t.Errorf("health = %+v", got)
	}
}

func TestCreateJoinAndRead(t *testing.T) {
	app, _, tokens := newTestApp(t)

	var created core.JoinResponse
	status := call(t, app, fiber.MethodPost, "/api/v1/rooms", `{"username":"ann","email":"ann@example.com"}`, "", &created)
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if created.Color != core.ColorWhite || created.Room.WhitePlayer == nil || created.Token == "" {
		t.Fatalf("create = %+v", created)
	}
	claims, err := tokens.Validate(created.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Room != created.Room.Code || claims.Color != core.ColorWhite || claims.ParticipantID != created.Room.WhitePlayer.ID {
		t.Errorf("claims = %+v", claims)
	}

	code := created.Room.Code
	var joined core.JoinResponse
	status = call(t, app, fiber.MethodPost, "/api/v1/rooms/"+strings.ToLower(code)+"/join", `{"username":"bob","email":"bob@example.com"}`, "", &joined)
	if status != fiber.StatusOK || joined.Color != core.ColorBlack || joined.Room.RoomStatus != core.RoomPlaying {
		t.Fatalf("join = %d %+v", status, joined)
	}

	var full core.ErrorResponse
	status = call(t, app, fiber.MethodPost, "/api/v1/rooms/"+code+"/join", `{"username":"eve","email":"eve@example.com"}`, "", &full)
	if status != fiber.StatusConflict || full.Code != core.ErrCodeRoomFull {
		t.Errorf("third join = %d %+v", status, full)
	}

	var snap core.RoomSnapshot
	if status := call(t, app, fiber.MethodGet, "/api/v1/rooms/"+code, "", "", &snap); status != fiber.StatusOK || snap.BlackPlayer == nil {
		t.Errorf("get room = %d %+v", status, snap)
	}

	var b core.BoardResponse
	if status := call(t, app, fiber.MethodGet, "/api/v1/rooms/"+code+"/board", "", "", &b); status != fiber.StatusOK || b.FEN != board.StartingFEN {
		t.Errorf("get board = %d %+v", status, b)
	}

	var missing core.ErrorResponse
	if status := call(t, app, fiber.MethodGet, "/api/v1/rooms/NOPE00", "", "", &missing); status != fiber.StatusNotFound || missing.Code != core.ErrCodeRoomNotFound {
		t.Errorf("unknown room = %d %+v", status, missing)
	}
}

func TestRequestValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{"missing email", `{"username":"ann"}`, "application/json", fiber.StatusBadRequest, core.ErrCodeInvalidRequest},
		{"bad email", `{"username":"ann","email":"not-an-email"}`, "application/json", fiber.StatusBadRequest, core.ErrCodeInvalidRequest},
		{"not json", `{`, "application/json", fiber.StatusBadRequest, core.ErrCodeInvalidRequest},
		{"wrong content type", `username=ann`, "text/plain", fiber.StatusUnsupportedMediaType, core.ErrCodeInvalidContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/api/v1/rooms", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			var got core.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus || got.Code != tt.wantCode {
				t.Errorf("got %d %+v, want %d %s", resp.StatusCode, got, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestResign(t *testing.T) {
	app, rooms, tokens := newTestApp(t)
	snap, ann, err := rooms.CreateRoom(core.Participant{Username: "ann", Email: "ann@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	_, _, bob, err := rooms.JoinRoom(snap.Code, core.Participant{Username: "bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	other, _, _ := rooms.CreateRoom(core.Participant{Username: "cat", Email: "cat@example.com"})

	annOther, _ := tokens.Issue(ann, other.Code, core.ColorWhite)
	bobToken, _ := tokens.Issue(bob, snap.Code, core.ColorBlack)
	path := "/api/v1/rooms/" + snap.Code + "/resign"

	var errResp core.ErrorResponse
	if status := call(t, app, fiber.MethodPost, path, "", "", &errResp); status != fiber.StatusUnauthorized {
		t.Errorf("no token status = %d", status)
	}
	if status := call(t, app, fiber.MethodPost, path, "", "garbage", &errResp); status != fiber.StatusUnauthorized {
		t.Errorf("bad token status = %d", status)
	}
	if status := call(t, app, fiber.MethodPost, path, "", annOther, &errResp); status != fiber.StatusForbidden {
		t.Errorf("foreign room token status = %d", status)
	}

	var got core.RoomSnapshot
	if status := call(t, app, fiber.MethodPost, path, "", bobToken, &got); status != fiber.StatusOK {
		t.Fatalf("resign status = %d", status)
	}
	if got.GameStatus != "white won by resignation" {
		t.Errorf("GameStatus = %q", got.GameStatus)
	}
	if status := call(t, app, fiber.MethodPost, path, "", bobToken, &errResp); status != fiber.StatusConflict || errResp.Code != core.ErrCodeGameOver {
		t.Errorf("second resign = %d %+v", status, errResp)
	}
}

func TestLiveRequiresUpgrade(t *testing.T) {
	app, _, _ := newTestApp(t)
	var got core.ErrorResponse
	if status := call(t, app, fiber.MethodGet, "/live", "", "", &got); status != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d %+v", status, got)
	}
}

func TestTokens(t *testing.T) {
	if _, err := NewTokens([]byte("short")); err == nil {
		t.Error("NewTokens() accepted a short secret")
	}
	tokens, _ := NewTokens([]byte(testSecret))
	other, _ := NewTokens([]byte(strings.Repeat("x", 40)))

	p := core.Participant{ID: "p1", Username: "ann", Email: "ann@example.com"}
	token, err := tokens.Issue(p, "ABC123", core.ColorBlack)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Participant() != p || claims.Color != core.ColorBlack || claims.Room != "ABC123" {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := other.Validate(token); err == nil {
		t.Error("token validated under another secret")
	}
}
