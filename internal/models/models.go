package models

import (
	"encoding/json"
	"fmt"
)

// Inbound frame types (client -> room).
const (
	TypeDraw   = "DRAW"
	TypeCursor = "CURSOR"
	TypeRename = "RENAME"
)

// Outbound frame types (room -> clients).
const (
	TypeInitSync         = "INIT_SYNC"
	TypeSyncDrawing      = "SYNC_DRAWING"
	TypeSyncCursors      = "SYNC_CURSORS"
	TypeSyncParticipants = "SYNC_PARTICIPANTS"
)

// DefaultParticipantName is used until a participant renames themselves.
const DefaultParticipantName = "Anonymous"

// Point is an (x, y) canvas coordinate. It encodes as a two element JSON array.
type Point [2]float64

// UnmarshalJSON rejects arrays that are not exactly [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("point needs 2 coordinates, got %d", len(coords))
	}
	p[0], p[1] = coords[0], coords[1]
	return nil
}

/*** Room state ***/
type LineSegment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CursorState struct {
	UID       string `json:"uid"`
	Point     Point  `json:"point"`
	UpdatedAt int64  `json:"updatedAt"` // unix millis
}

/*** Wire frames ***/
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// InboundFrame defers payload decoding until the type is known.
type InboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DrawPayload uses pointers so a missing endpoint is distinguishable from the origin.
type DrawPayload struct {
	From *Point `json:"from"`
	To   *Point `json:"to"`
}

type CursorPayload struct {
	UID   string `json:"uid"`
	Point *Point `json:"point"`
}

type RenamePayload struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

type InitSyncPayload struct {
	Lines        []LineSegment `json:"lines"`
	Participants []Participant `json:"participants"`
}

type ParticipantsPayload struct {
	Participants []Participant `json:"participants"`
}

// RoomSnapshot is the diagnostic view served over HTTP.
type RoomSnapshot struct {
	ID           string        `json:"id"`
	Lines        []LineSegment `json:"lines"`
	Participants []Participant `json:"participants"`
	Cursors      []CursorState `json:"cursors"`
	Connections  int           `json:"connections"`
}
