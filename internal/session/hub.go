package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type settings struct {
	observer Observer
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Hub and the rooms it creates.
type Option func(*settings)

func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{observer: NopObserver{}, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Hub manages all active whiteboard rooms. Rooms live for the life of the process.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  []Option
	s     settings
}

func NewHub(opts ...Option) *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
		opts:  opts,
		s:     newSettings(opts),
	}
}

// GetOrCreate returns the room for id, creating it exactly once.
func (h *Hub) GetOrCreate(id string) *Room {
	h.mu.RLock()
	r, ok := h.rooms[id]
	h.mu.RUnlock()
	if ok {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r = NewRoom(id, h.opts...)
	h.rooms[id] = r
	h.s.observer.RoomCreated(id)
	h.s.log.Info("room created", zap.String("room", id), zap.Int("rooms", len(h.rooms)))
	return r
}

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) RoomIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
