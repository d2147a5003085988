package live

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/fasthttp/websocket"

	"mychess/internal/core"
)

// WebsocketTransport dials the relay's /live endpoint and exchanges JSON frames
type WebsocketTransport struct {
	URL    string
	Token  func() string // join token, appended as ?token=
	Dialer *websocket.Dialer
}

func (t *WebsocketTransport) Dial(ctx context.Context, rx Receiver) (Conn, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid live url: %w", err)
	}
	if t.Token != nil {
		if token := t.Token(); token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
		}
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Redacted(), resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &wsConn{ws: ws}
	go c.readLoop(rx)
	return c, nil
}

type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writers
}

func (c *wsConn) readLoop(rx Receiver) {
	for {
		var f core.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			rx.Closed(err)
			return
		}
		rx.Receive(f)
	}
}

func (c *wsConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(f)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
