package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/akvo/agriconnect-sub001/internal/domain/shared/events"
	"github.com/akvo/agriconnect-sub001/internal/shared/config"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// State is the channel client's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateNeedsReauth is terminal until the client is handed fresh
	// credentials through Connect.
	StateNeedsReauth State = "needs_reauth"
)

// CredentialRefresher is the collaborator for the single token-refresh
// attempt after the server rejects the channel credential.
type CredentialRefresher interface {
	ForceRefresh(ctx context.Context) (string, error)
}

// FrameHandler applies a decoded server frame to local state.
type FrameHandler interface {
	HandleFrame(ctx context.Context, event string, payload json.RawMessage) error
}

// Client maintains the realtime channel: one websocket connection, automatic
// reconnection with exponential backoff, an offline emit queue, and ack-based
// room membership. Incoming frames are applied sequentially in arrival order
// through the frame handler.
type Client struct {
	cfg        *config.RealtimeConfig
	refresher  CredentialRefresher
	dispatcher events.Dispatcher
	handler    FrameHandler
	log        logger.Interface

	mu         sync.Mutex
	state      State
	token      string
	userID     uint
	foreground bool
	conn       *wsConn
	queue      []envelope
	rooms      map[uint]struct{}
	acks       map[string]chan ackPayload
	cancelRun  context.CancelFunc
	runDone    chan struct{}
	// refreshSpent guards the one refresh attempt per auth failure; reset
	// on every successful connection.
	refreshSpent bool
}

func NewClient(
	cfg *config.RealtimeConfig,
	refresher CredentialRefresher,
	dispatcher events.Dispatcher,
	handler FrameHandler,
	log logger.Interface,
) *Client {
	return &Client{
		cfg:        cfg,
		refresher:  refresher,
		dispatcher: dispatcher,
		handler:    handler,
		log:        log.Named("realtime.client"),
		state:      StateDisconnected,
		rooms:      make(map[uint]struct{}),
		acks:       make(map[string]chan ackPayload),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect stores the session credentials and starts the connection manager.
// The call returns immediately; progress is reported through connected /
// disconnected / reconnect-failed events.
func (c *Client) Connect(ctx context.Context, token string, userID uint) error {
	if token == "" {
		return apperrors.NewValidationError("channel token is required")
	}

	c.mu.Lock()
	c.token = token
	c.userID = userID
	c.refreshSpent = false
	if c.runDone != nil {
		// Manager already running; it will pick up the new token on the
		// next dial.
		c.mu.Unlock()
		return nil
	}
	c.startLocked(ctx)
	c.mu.Unlock()
	return nil
}

// startLocked launches the connection manager. Caller holds c.mu.
func (c *Client) startLocked(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelRun = cancel
	c.runDone = make(chan struct{})
	c.state = StateConnecting
	go c.run(runCtx)
}

// Disconnect tears the connection down and stops reconnecting. Queued emits
// are kept for the next connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancelRun
	done := c.runDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.cancelRun = nil
	c.runDone = nil
	c.mu.Unlock()
}

// SetForeground records UI visibility. Returning to the foreground with
// credentials and a dead connection triggers a proactive reconnect; going to
// the background leaves the connection alive for push-style updates.
func (c *Client) SetForeground(foreground bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.foreground = foreground
	if foreground && c.state == StateDisconnected && c.token != "" && c.runDone == nil {
		c.log.Infow("foreground resume, reconnecting channel")
		c.startLocked(context.Background())
	}
}

// On registers a handler for one event type and returns its unsubscribe
// function.
func (c *Client) On(eventType events.Type, handler events.Handler) func() {
	return c.dispatcher.On(eventType, handler)
}

// Emit sends an event to the server, queueing it FIFO while offline. The
// queue is flushed in order on the next (re)connect, before newer emits.
func (c *Client) Emit(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewValidationError("unserializable emit payload", err.Error())
	}
	env := envelope{Event: event, Payload: raw}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected && c.conn != nil {
		if err := c.conn.enqueue(env); err == nil {
			return nil
		}
		// Write pump saturated; fall through to the offline queue.
	}

	limit := c.cfg.SendQueueCap
	if limit <= 0 {
		limit = 256
	}
	if len(c.queue) >= limit {
		c.log.Warnw("emit queue full, rejecting event", "event", event, "cap", limit)
		return apperrors.NewSyncError("emit queue full", event)
	}
	c.queue = append(c.queue, env)
	return nil
}

// JoinTicketRoom subscribes this device to a ticket's event room. The call
// blocks until the server acknowledges or the ack timeout elapses.
func (c *Client) JoinTicketRoom(ctx context.Context, ticketID uint) error {
	if err := c.roomRequest(ctx, eventJoinRoom, ticketID); err != nil {
		return err
	}
	c.mu.Lock()
	c.rooms[ticketID] = struct{}{}
	c.mu.Unlock()
	return nil
}

// LeaveTicketRoom unsubscribes from a ticket's event room.
func (c *Client) LeaveTicketRoom(ctx context.Context, ticketID uint) error {
	if err := c.roomRequest(ctx, eventLeaveRoom, ticketID); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.rooms, ticketID)
	c.mu.Unlock()
	return nil
}

func (c *Client) roomRequest(ctx context.Context, event string, ticketID uint) error {
	raw, _ := json.Marshal(roomPayload{TicketID: ticketID})
	ackID := uuid.NewString()
	ackCh := make(chan ackPayload, 1)

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return apperrors.NewSyncError("channel not connected", event)
	}
	c.acks[ackID] = ackCh
	err := c.conn.enqueue(envelope{Event: event, AckID: ackID, Payload: raw})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.acks, ackID)
		c.mu.Unlock()
	}()

	if err != nil {
		return apperrors.NewSyncError("channel send failed", event).WithCause(err)
	}

	timer := time.NewTimer(c.cfg.AckTimeout())
	defer timer.Stop()

	select {
	case ack := <-ackCh:
		if !ack.OK {
			return apperrors.NewSyncError("room request rejected", ack.Error)
		}
		return nil
	case <-timer.C:
		return apperrors.NewSyncError("room request timed out", event)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newReconnectBackoff builds the reconnect delay schedule: base doubling up
// to the cap, no jitter so the sequence stays predictable in logs.
func newReconnectBackoff(cfg *config.RealtimeConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffBase()
	b.MaxInterval = cfg.BackoffCap()
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

/// run is the connection manager loop: dial, pump, reconnect with backoff.
func (c *Client) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		done := c.runDone
		c.runDone = nil
		c.cancelRun = nil
		c.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()

	expBackoff := newReconnectBackoff(c.cfg)

	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.state = StateConnecting
		token := c.token
		userID := c.userID
		c.mu.Unlock()

		conn, status, err := dial(ctx, c.cfg.URL, token, userID, c.cfg.HandshakeTimeout())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				if !c.handleAuthFailure(ctx, fmt.Sprintf("handshake rejected: %d", status)) {
					return
				}
				continue
			}

			attempts++
			if !c.waitBackoff(ctx, expBackoff, attempts, err) {
				return
			}
			continue
		}

		attempts = 0
		expBackoff.Reset()
		c.onConnected(conn)

		err = conn.run(ctx)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.failPendingAcks()

		if ctx.Err() != nil {
			return
		}

		reason := "connection closed"
		if err != nil {
			reason = err.Error()
		}
		c.log.Infow("channel disconnected", "reason", reason)
		c.dispatcher.Publish(events.NewDisconnected(reason))

		if isAuthRejection(err) {
			if !c.handleAuthFailure(ctx, reason) {
				return
			}
		}
	}
}

// onConnected installs the new connection, flushes the offline queue in
// order, and rejoins previously joined rooms.
func (c *Client) onConnected(conn *wsConn) {
	conn.onFrame = c.handleFrame

	c.mu.Lock()
	c.conn = conn
	c.refreshSpent = false

	// Queued frames first, so offline emits precede anything sent after
	// the connected event fires.
	for _, env := range c.queue {
		if err := conn.enqueue(env); err != nil {
			c.log.Warnw("dropping queued emit, send buffer full", "event", env.Event)
		}
	}
	c.queue = nil

	for ticketID := range c.rooms {
		raw, _ := json.Marshal(roomPayload{TicketID: ticketID})
		if err := conn.enqueue(envelope{Event: eventJoinRoom, Payload: raw}); err != nil {
			c.log.Warnw("room rejoin not sent", "ticket_id", ticketID)
		}
	}

	c.state = StateConnected
	c.mu.Unlock()

	c.log.Infow("channel connected")
	c.dispatcher.Publish(events.NewConnected())
}

// waitBackoff sleeps before the next reconnect attempt. It returns false
// when the attempt budget is exhausted, after publishing exactly one
// reconnect-failed event.
func (c *Client) waitBackoff(ctx context.Context, expBackoff *backoff.ExponentialBackOff, attempts int, cause error) bool {
	maxAttempts := c.cfg.MaxReconnectAttempts
	if maxAttempts > 0 && attempts >= maxAttempts {
		c.log.Errorw("reconnect attempts exhausted",
			"attempts", attempts,
			"error", cause)
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.dispatcher.Publish(events.NewReconnectFailed(attempts))
		return false
	}

	delay := expBackoff.NextBackOff()
	c.log.Infow("reconnecting channel",
		"attempt", attempts,
		"delay", delay,
		"error", cause)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// handleAuthFailure makes the single refresh attempt. It returns true when a
// fresh credential is in place and the caller should redial immediately.
func (c *Client) handleAuthFailure(ctx context.Context, detail string) bool {
	c.mu.Lock()
	spent := c.refreshSpent
	c.refreshSpent = true
	c.mu.Unlock()

	if !spent && c.refresher != nil {
		token, err := c.refresher.ForceRefresh(ctx)
		if err == nil {
			c.log.Infow("channel credential refreshed, redialing")
			c.mu.Lock()
			c.token = token
			c.mu.Unlock()
			return true
		}
		c.log.Errorw("channel credential refresh failed", "error", err)
	}

	c.mu.Lock()
	c.state = StateNeedsReauth
	c.mu.Unlock()
	c.dispatcher.Publish(events.NewAuthError(detail))
	return false
}

// handleFrame runs on the read pump goroutine; frames are applied in arrival
// order, which the merge semantics depend on.
func (c *Client) handleFrame(env envelope) {
	if env.Event == eventAck {
		var ack ackPayload
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			return
		}
		c.mu.Lock()
		ch, ok := c.acks[env.AckID]
		c.mu.Unlock()
		if ok {
			ch <- ack
		}
		return
	}

	if c.handler == nil {
		return
	}
	if err := c.handler.HandleFrame(context.Background(), env.Event, env.Payload); err != nil {
		c.log.Warnw("frame not applied", "event", env.Event, "error", err)
	}
}

// failPendingAcks unblocks room requests that were waiting on a connection
// that just died.
func (c *Client) failPendingAcks() {
	c.mu.Lock()
	pending := c.acks
	c.acks = make(map[string]chan ackPayload)
	c.mu.Unlock()

	for _, ch := range pending {
		select {
		case ch <- ackPayload{OK: false, Error: "connection lost"}:
		default:
		}
	}
}
