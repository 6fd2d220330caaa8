package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"whiteboard/internal/models"
)

var (
	// ErrClientClosed is returned when sending to a client whose channel is gone.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned when a peer does not drain its queue fast enough.
	ErrSendBufferFull = errors.New("send buffer full")
)

type State int

const (
	StateOpen State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateActive:
		return "active"
	default:
		return "closed"
	}
}

// ClientConfig tunes the socket pumps. Zero fields take the defaults below.
type ClientConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

const (
	defaultSendBuffer     = 256
	defaultWriteTimeout   = 10 * time.Second
	defaultPingInterval   = 25 * time.Second
	defaultPongTimeout    = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	return cfg
}

// Client is one participant's live connection to a room.
type Client struct {
	ID            string
	ParticipantID string
	Conn          *websocket.Conn

	cfg ClientConfig

	mu     sync.Mutex
	roomID string
	hook   func(models.Frame) error
	send   chan []byte
	state  State
	done   chan struct{}
}

func NewClient(conn *websocket.Conn, participantID string, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Conn:          conn,
		cfg:           cfg,
		send:          make(chan []byte, cfg.SendBuffer),
		done:          make(chan struct{}),
	}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame) error) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Send(frame models.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", frame.Type, err)
	}
	return c.deliver(frame, data)
}

// deliver queues an already-encoded frame without blocking.
func (c *Client) deliver(frame models.Frame, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClientClosed
	}
	if c.hook != nil {
		return c.hook(frame)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) activate(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen {
		c.state = StateActive
		c.roomID = roomID
	}
}

// Close is safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	close(c.send)
	close(c.done)
}

// WritePump drains the send queue onto the socket until the client is closed
// or a write fails. It is the only goroutine that writes to Conn.
func (c *Client) WritePump() error {
	if c.Conn == nil {
		return ErrClientClosed
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return nil
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

// ReadPump reads text frames and hands each to fn until the socket fails.
// The returned error is the read error that ended the loop.
func (c *Client) ReadPump(fn func([]byte)) error {
	if c.Conn == nil {
		return ErrClientClosed
	}
	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		fn(msg)
	}
}
