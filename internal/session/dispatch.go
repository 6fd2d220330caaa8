package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"whiteboard/internal/models"
)

// ErrMalformedMessage covers unparseable frames, unknown types and payloads
// missing required fields. The connection stays open.
var ErrMalformedMessage = errors.New("malformed message")

// Handle decodes one inbound frame from c and applies it to the room.
func (r *Room) Handle(c *Client, raw []byte) error {
	msgType, err := r.dispatch(c, raw)
	if err != nil {
		r.observer.MessageRejected(r.ID, err)
		return err
	}
	r.observer.MessageHandled(r.ID, msgType)
	return nil
}

func (r *Room) dispatch(c *Client, raw []byte) (string, error) {
	var frame models.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch frame.Type {
	case models.TypeDraw:
		var p models.DrawPayload
		if err := decodePayload(frame, &p); err != nil {
			return frame.Type, err
		}
		if p.From == nil || p.To == nil {
			return frame.Type, fmt.Errorf("%w: DRAW needs from and to", ErrMalformedMessage)
		}
		r.HandleDraw(models.LineSegment{From: *p.From, To: *p.To})

	case models.TypeCursor:
		var p models.CursorPayload
		if err := decodePayload(frame, &p); err != nil {
			return frame.Type, err
		}
		if p.Point == nil {
			return frame.Type, fmt.Errorf("%w: CURSOR needs point", ErrMalformedMessage)
		}
		r.HandleCursor(orDefault(p.UID, c.ParticipantID), *p.Point)

	case models.TypeRename:
		var p models.RenamePayload
		if err := decodePayload(frame, &p); err != nil {
			return frame.Type, err
		}
		if p.Name == nil {
			return frame.Type, fmt.Errorf("%w: RENAME needs name", ErrMalformedMessage)
		}
		r.HandleRename(orDefault(p.ID, c.ParticipantID), *p.Name)

	default:
		return frame.Type, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, frame.Type)
	}
	return frame.Type, nil
}

func decodePayload(frame models.InboundFrame, out any) error {
	if len(frame.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, frame.Type)
	}
	if err := json.Unmarshal(frame.Payload, out); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedMessage, frame.Type, err)
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
