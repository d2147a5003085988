package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"mychess/internal/client/display"
	"mychess/internal/core"
)

// Error is a non-2xx reply from the relay
type Error struct {
	Status   int
	Response core.ErrorResponse
}

func (e *Error) Error() string {
	if e.Response.Error != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Response.Error)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var jsonData []byte
	if body != nil {
		var err error
		jsonData, err = json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	if c.Verbose {
		display.Println(c.Out, display.Blue, fmt.Sprintf("[API] %s %s", method, path))
		if len(jsonData) > 0 {
			display.Println(c.Out, display.Blue, string(jsonData))
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if c.Verbose {
		statusColor := display.Green
		if resp.StatusCode >= 400 {
			statusColor = display.Red
		}
		display.Println(c.Out, statusColor, fmt.Sprintf("[%d %s]", resp.StatusCode, http.StatusText(resp.StatusCode)))
		var pretty any
		if json.Unmarshal(respBody, &pretty) == nil {
			display.PrettyPrintJSON(c.Out, pretty)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Response); err != nil {
			apiErr.Response.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// API Methods

func (c *Client) Health() (*core.HealthResponse, error) {
	var resp core.HealthResponse
	err := c.doRequest(http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

// CreateRoom opens a room with the caller in the white seat
func (c *Client) CreateRoom(req *core.CreateRoomRequest) (*core.JoinResponse, error) {
	var resp core.JoinResponse
	if err := c.doRequest(http.MethodPost, "/api/v1/rooms", req, &resp); err != nil {
		return nil, err
	}
	c.AuthToken = resp.Token
	return &resp, nil
}

func (c *Client) JoinRoom(code string, req *core.JoinRoomRequest) (*core.JoinResponse, error) {
	var resp core.JoinResponse
	if err := c.doRequest(http.MethodPost, "/api/v1/rooms/"+url.PathEscape(code)+"/join", req, &resp); err != nil {
		return nil, err
	}
	c.AuthToken = resp.Token
	return &resp, nil
}

func (c *Client) GetRoom(code string) (*core.RoomSnapshot, error) {
	var resp core.RoomSnapshot
	if err := c.doRequest(http.MethodGet, "/api/v1/rooms/"+url.PathEscape(code), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBoard fetches the relay's ASCII rendering, from white's side
func (c *Client) GetBoard(code string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	if err := c.doRequest(http.MethodGet, "/api/v1/rooms/"+url.PathEscape(code)+"/board", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resign concedes the room the stored token was issued for
func (c *Client) Resign(code string) (*core.RoomSnapshot, error) {
	var resp core.RoomSnapshot
	if err := c.doRequest(http.MethodPost, "/api/v1/rooms/"+url.PathEscape(code)+"/resign", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
