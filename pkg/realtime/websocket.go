package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketDialer dials a JSON-over-WebSocket realtime endpoint.
//
// Frames are JSON envelopes {"id", "event", "topic", "payload"}. A close frame
// with the normal or going-away code is reported as ErrServerClosed, so the
// manager degrades instead of retrying.
type WebSocketDialer struct {
	Dialer    *websocket.Dialer
	Header    http.Header
	URL       string
	ReadLimit int64
}

// Dial opens a WebSocket connection to d.URL.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		}
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Join(ErrConnection, err)
	}

	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	return &wsConn{conn: conn}, nil
}

type envelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// wsConn adapts a gorilla connection to Conn. gorilla allows one concurrent
// writer, so writes are serialized.
type wsConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsConn) Emit(ctx context.Context, event, topic string, payload any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Join(ErrConnection, err)
	}

	env := envelope{ID: uuid.NewString(), Event: event, Topic: topic, Payload: payload}
	if err := c.conn.WriteJSON(env); err != nil {
		return errors.Join(ErrConnection, err)
	}
	return nil
}

// Receive blocks until the next frame. ctx is not observed by the underlying
// read; Close unblocks it.
func (c *wsConn) Receive(_ context.Context) (Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Message{}, errors.Join(ErrServerClosed, err)
		}
		return Message{}, errors.Join(ErrConnection, err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if msg.Event == "" {
		return Message{}, ErrMalformedMessage
	}
	return msg, nil
}

func (c *wsConn) Close() error {
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

var _ Dialer = (*WebSocketDialer)(nil)
