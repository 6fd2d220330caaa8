package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"whiteboard/internal/session"
)

const (
	TypeRoomCreated       = "room_created"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
)

const (
	defaultQueueSize = 1024
	publishTimeout   = 2 * time.Second
)

// Event is one entry of the room activity feed.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	RoomID        string    `json:"roomId"`
	ParticipantID string    `json:"participantId,omitempty"`
	At            time.Time `json:"at"`
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisPublisher publishes room activity on a Redis channel. Hub callbacks only
// enqueue; a single goroutine does the network I/O. A full queue drops events.
type RedisPublisher struct {
	session.NopObserver

	rdb     *redis.Client
	channel string
	log     *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *zap.Logger) *RedisPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		log:     log.With(zap.String("channel", channel)),
		now:     time.Now,
		queue:   make(chan Event, defaultQueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *RedisPublisher) RoomCreated(roomID string) {
	p.enqueue(TypeRoomCreated, roomID, "")
}

func (p *RedisPublisher) ClientJoined(roomID, participantID string) {
	p.enqueue(TypeParticipantJoined, roomID, participantID)
}

func (p *RedisPublisher) ClientLeft(roomID, participantID string) {
	p.enqueue(TypeParticipantLeft, roomID, participantID)
}

func (p *RedisPublisher) ClientDropped(roomID, participantID string, _ error) {
	p.enqueue(TypeParticipantLeft, roomID, participantID)
}

func (p *RedisPublisher) enqueue(eventType, roomID, participantID string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	e := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RoomID:        roomID,
		ParticipantID: participantID,
		At:            p.now().UTC(),
	}
	select {
	case p.queue <- e:
	default:
		p.log.Warn("event queue full, dropping event", zap.String("type", eventType), zap.String("room", roomID))
	}
}

func (p *RedisPublisher) run() {
	defer p.wg.Done()
	for e := range p.queue {
		if err := p.publish(e); err != nil {
			p.log.Warn("publish event", zap.String("type", e.Type), zap.String("room", e.RoomID), zap.Error(err))
		}
	}
}

func (p *RedisPublisher) publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.rdb.Publish(ctx, p.channel, data).Err()
}

// Close stops accepting events and waits for queued ones to be published.
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
