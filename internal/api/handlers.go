package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whiteboard/internal/session"
)

// ErrMissingJoinParameters rejects a connection request before any room is touched.
var ErrMissingJoinParameters = errors.New("missing join parameters")

type Handlers struct {
	log       *zap.Logger
	hub       *session.Hub
	upgrader  websocket.Upgrader
	clientCfg session.ClientConfig
}

func NewHandlers(log *zap.Logger, hub *session.Hub, allowedOrigins []string, clientCfg session.ClientConfig) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		log:       log,
		hub:       hub,
		upgrader:  websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		clientCfg: clientCfg,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) ListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.hub.RoomIDs()})
}

// RoomSnapshot serves the current state of an existing room. It never creates one.
func (h *Handlers) RoomSnapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.hub.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room_not_found"})
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

/*** Whiteboard WebSocket: one receive loop per connection ***/
func (h *Handlers) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID, participantID, err := joinParams(r)
	if err != nil {
		h.log.Warn("rejecting connection", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("room", roomID), zap.Error(err))
		return
	}

	client := session.NewClient(conn, participantID, h.clientCfg)
	log := h.log.With(
		zap.String("room", roomID),
		zap.String("participant", participantID),
		zap.String("client", client.ID))

	room := h.hub.GetOrCreate(roomID)
	if err := room.Join(client); err != nil {
		log.Warn("join failed", zap.Error(err))
		client.Close()
		_ = conn.Close()
		return
	}
	defer room.Leave(client)

	go func() {
		if err := client.WritePump(); err != nil {
			log.Info("write pump stopped", zap.Error(err))
		}
	}()

	err = client.ReadPump(func(msg []byte) {
		if err := room.Handle(client, msg); err != nil {
			log.Warn("dropping inbound message", zap.Error(err))
		}
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		log.Info("connection closed unexpectedly", zap.Error(err))
	}
}

// joinParams accepts userId as an alias for participantId.
func joinParams(r *http.Request) (roomID, participantID string, err error) {
	q := r.URL.Query()
	roomID = strings.TrimSpace(q.Get("roomId"))
	participantID = strings.TrimSpace(q.Get("participantId"))
	if participantID == "" {
		participantID = strings.TrimSpace(q.Get("userId"))
	}

	var missing []string
	if roomID == "" {
		missing = append(missing, "roomId")
	}
	if participantID == "" {
		missing = append(missing, "participantId")
	}
	if len(missing) > 0 {
		return "", "", fmt.Errorf("%w: %s", ErrMissingJoinParameters, strings.Join(missing, ", "))
	}
	return roomID, participantID, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
