package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	maxFrameSize = 1 << 16
)

// wsConn owns a single websocket connection. All writes go through the write
// pump to avoid concurrent writes on the underlying connection.
type wsConn struct {
	conn    *websocket.Conn
	send    chan envelope
	done    chan struct{}
	onFrame func(env envelope)

	mu     sync.Mutex
	closed bool
}

// dial opens the channel connection. The returned status is the HTTP status
// of a rejected handshake, zero when the failure happened below HTTP.
func dial(ctx context.Context, rawURL, token string, userID uint, handshakeTimeout time.Duration) (*wsConn, int, error) {
	wsURL, err := buildChannelURL(rawURL, userID)
	if err != nil {
		return nil, 0, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, status, fmt.Errorf("channel dial: %w", err)
	}

	return &wsConn{
		conn: conn,
		send: make(chan envelope, 256),
		done: make(chan struct{}),
	}, 0, nil
}

func buildChannelURL(rawURL string, userID uint) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse channel url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/sync"

	q := u.Query()
	q.Set("user_id", strconv.FormatUint(uint64(userID), 10))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// run starts the read and write pumps and blocks until either exits.
func (wc *wsConn) run(ctx context.Context) error {
	errChan := make(chan error, 2)

	go func() {
		errChan <- wc.writePump(ctx)
	}()
	go func() {
		errChan <- wc.readPump(ctx)
	}()

	err := <-errChan
	wc.close()
	return err
}

func (wc *wsConn) readPump(ctx context.Context) error {
	wc.conn.SetReadLimit(maxFrameSize)
	wc.conn.SetReadDeadline(time.Now().Add(pongWait))
	wc.conn.SetPongHandler(func(string) error {
		wc.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, raw, err := wc.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue // skip malformed frames
		}

		if wc.onFrame != nil {
			wc.onFrame(env)
		}
	}
}

func (wc *wsConn) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			wc.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case <-wc.done:
			wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			wc.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case env, ok := <-wc.send:
			if !ok {
				return nil
			}
			wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wc.conn.WriteJSON(env); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}

		case <-ticker.C:
			wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// enqueue hands a frame to the write pump. It fails when the pump's buffer
// is full rather than blocking the caller.
func (wc *wsConn) enqueue(env envelope) error {
	select {
	case wc.send <- env:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (wc *wsConn) close() error {
	wc.mu.Lock()
	if wc.closed {
		wc.mu.Unlock()
		return nil
	}
	wc.closed = true
	close(wc.done)
	wc.mu.Unlock()

	return wc.conn.Close()
}

// isAuthRejection reports whether the close error signals a credential
// problem rather than a transport failure.
func isAuthRejection(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return closeErr.Code == websocket.ClosePolicyViolation || closeErr.Code == 4401
}
