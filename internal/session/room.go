package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/models"
)

// Room holds the authoritative whiteboard state and connected clients for a session.
// Every mutation and the broadcast it triggers happen under mu, so all clients
// observe events in the same order. Socket writes happen on each client's
// WritePump, outside the lock.
type Room struct {
	ID string

	mu               sync.Mutex
	clients          map[*Client]struct{}
	lines            []models.LineSegment
	participants     map[string]*models.Participant
	participantOrder []string
	cursors          map[string]*models.CursorState
	cursorOrder      []string

	now      func() time.Time
	observer Observer
	log      *zap.Logger
}

func NewRoom(id string, opts ...Option) *Room {
	s := newSettings(opts)
	return &Room{
		ID:           id,
		clients:      make(map[*Client]struct{}),
		participants: make(map[string]*models.Participant),
		cursors:      make(map[string]*models.CursorState),
		now:          s.now,
		observer:     s.observer,
		log:          s.log.With(zap.String("room", id)),
	}
}

// Join registers the client's participant, queues an INIT_SYNC snapshot to
// that client only, and adds it to the broadcast set.
func (r *Room) Join(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureParticipantLocked(c.ParticipantID)
	init := models.Frame{Type: models.TypeInitSync, Payload: models.InitSyncPayload{
		Lines:        r.linesLocked(),
		Participants: r.participantsLocked(),
	}}
	if err := c.Send(init); err != nil {
		return err
	}
	c.activate(r.ID)
	r.clients[c] = struct{}{}
	r.observer.ClientJoined(r.ID, c.ParticipantID)
	r.log.Info("client joined",
		zap.String("participant", c.ParticipantID),
		zap.String("client", c.ID),
		zap.Int("clients", len(r.clients)))
	return nil
}

// Leave removes the client and returns how many clients remain. The
// participant record and cursor are kept. Calling Leave twice is a no-op.
func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		r.observer.ClientLeft(r.ID, c.ParticipantID)
		r.log.Info("client left",
			zap.String("participant", c.ParticipantID),
			zap.String("client", c.ID),
			zap.Int("clients", len(r.clients)))
	}
	left := len(r.clients)
	r.mu.Unlock()

	c.Close()
	return left
}

func (r *Room) GetClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) HandleDraw(seg models.LineSegment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, seg)
	r.broadcastLocked(models.Frame{Type: models.TypeSyncDrawing, Payload: seg})
}

func (r *Room) HandleCursor(participantID string, p models.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.cursors[participantID]
	if !ok {
		cur = &models.CursorState{UID: participantID}
		r.cursors[participantID] = cur
		r.cursorOrder = append(r.cursorOrder, participantID)
	}
	cur.Point = p
	cur.UpdatedAt = r.now().UnixMilli()
	r.broadcastLocked(models.Frame{Type: models.TypeSyncCursors, Payload: r.cursorsLocked()})
}

func (r *Room) HandleRename(participantID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureParticipantLocked(participantID).Name = name
	r.broadcastLocked(models.Frame{Type: models.TypeSyncParticipants, Payload: models.ParticipantsPayload{
		Participants: r.participantsLocked(),
	}})
}

func (r *Room) Lines() []models.LineSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linesLocked()
}

func (r *Room) Participants() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

func (r *Room) Cursors() []models.CursorState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursorsLocked()
}

func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomSnapshot{
		ID:           r.ID,
		Lines:        r.linesLocked(),
		Participants: r.participantsLocked(),
		Cursors:      r.cursorsLocked(),
		Connections:  len(r.clients),
	}
}

// broadcastLocked encodes frame once and queues it on every client. Clients
// that cannot take it are dropped; delivery to the rest continues.
func (r *Room) broadcastLocked(frame models.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.Error("encode broadcast", zap.String("type", frame.Type), zap.Error(err))
		return
	}
	for c := range r.clients {
		if err := c.deliver(frame, data); err != nil {
			r.dropLocked(c, err)
		}
	}
}

func (r *Room) dropLocked(c *Client, reason error) {
	delete(r.clients, c)
	c.Close()
	r.observer.ClientDropped(r.ID, c.ParticipantID, reason)

	level := r.log.Warn
	if errors.Is(reason, ErrClientClosed) {
		level = r.log.Info
	}
	level("client dropped",
		zap.String("participant", c.ParticipantID),
		zap.String("client", c.ID),
		zap.Error(reason))
}

func (r *Room) ensureParticipantLocked(id string) *models.Participant {
	if p, ok := r.participants[id]; ok {
		return p
	}
	p := &models.Participant{ID: id, Name: models.DefaultParticipantName}
	r.participants[id] = p
	r.participantOrder = append(r.participantOrder, id)
	return p
}

func (r *Room) linesLocked() []models.LineSegment {
	out := make([]models.LineSegment, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *Room) participantsLocked() []models.Participant {
	out := make([]models.Participant, 0, len(r.participantOrder))
	for _, id := range r.participantOrder {
		out = append(out, *r.participants[id])
	}
	return out
}

func (r *Room) cursorsLocked() []models.CursorState {
	out := make([]models.CursorState, 0, len(r.cursorOrder))
	for _, id := range r.cursorOrder {
		out = append(out, *r.cursors[id])
	}
	return out
}
