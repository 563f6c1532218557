// Package client provides a client for the profilechat server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/profilechat/internal/metrics"
	"github.com/raphaelgruber/profilechat/internal/protocol"
)

// DefaultServerURL is used when no server URL is configured.
const DefaultServerURL = "ws://localhost:8484/ws"

// Client connects to a profilechat server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses PROFILECHAT_SERVER_URL env var or defaults to localhost:8484.
// Timeout for HTTP calls can be configured via PROFILECHAT_CLIENT_TIMEOUT env var (default 30s).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("PROFILECHAT_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = DefaultServerURL
	}

	timeout := 30 * time.Second
	if t := os.Getenv("PROFILECHAT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the WebSocket endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// httpBase converts the WebSocket endpoint into the server's HTTP base URL.
func (c *Client) httpBase() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws")
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Stats returns the server's in-memory runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	base, err := c.httpBase()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server error: %s - %s", resp.Status, string(body))
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &snap, nil
}

// Conn is an open chat session on the server.
// Calls on a Conn are serialized.
type Conn struct {
	mu    sync.Mutex
	ws    *websocket.Conn
	hello protocol.HelloMessage
}

// Connect opens a chat session and waits for the server's hello.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	conn := &Conn{ws: ws}
	if err := conn.read(ctx, &conn.hello); err != nil {
		ws.Close()
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if conn.hello.Type != protocol.TypeHello {
		ws.Close()
		return nil, fmt.Errorf("expected hello, got %s", conn.hello.Type)
	}
	return conn, nil
}

// Hello returns the server's greeting frame.
func (c *Conn) Hello() protocol.HelloMessage {
	return c.hello
}

// SessionID returns the id of the server-side session.
func (c *Conn) SessionID() string {
	return c.hello.SessionID
}

// Submit sends a user message and waits for the assistant turn.
func (c *Conn) Submit(ctx context.Context, text string) (*protocol.TurnMessage, error) {
	var turn protocol.TurnMessage
	err := c.roundTrip(ctx, protocol.SubmitMessage{
		BaseMessage: protocol.Base(protocol.TypeSubmit, c.SessionID()),
		Text:        text,
	}, protocol.TypeTurn, &turn)
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// Reset clears the server-side transcript.
func (c *Conn) Reset(ctx context.Context) error {
	var ack protocol.BaseMessage
	return c.roundTrip(ctx, protocol.Base(protocol.TypeReset, c.SessionID()), protocol.TypeResetOK, &ack)
}

// Export asks the server to save the transcript and returns the file path
// on the server.
func (c *Conn) Export(ctx context.Context) (string, error) {
	var exported protocol.ExportedMessage
	err := c.roundTrip(ctx, protocol.Base(protocol.TypeExport, c.SessionID()), protocol.TypeExported, &exported)
	if err != nil {
		return "", err
	}
	return exported.Path, nil
}

// Close ends the session.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

// roundTrip writes one frame and decodes the reply into out.
// An error frame from the server is returned as *protocol.ErrorMessage.
func (c *Conn) roundTrip(ctx context.Context, frame any, wantType string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.WriteJSON(frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	var raw json.RawMessage
	if err := c.read(ctx, &raw); err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	frameType, err := protocol.PeekType(raw)
	if err != nil {
		return err
	}

	switch frameType {
	case wantType:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal %s: %w", frameType, err)
		}
		return nil
	case protocol.TypeError:
		var serverErr protocol.ErrorMessage
		if err := json.Unmarshal(raw, &serverErr); err != nil {
			return fmt.Errorf("unmarshal error frame: %w", err)
		}
		return &serverErr
	default:
		return fmt.Errorf("expected %s, got %s", wantType, frameType)
	}
}

// read reads one JSON frame, giving up when ctx is done.
func (c *Conn) read(ctx context.Context, out any) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(deadline)
		defer c.ws.SetReadDeadline(time.Time{})
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks ReadJSON; the connection is unusable afterwards.
			c.ws.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	if err := c.ws.ReadJSON(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
