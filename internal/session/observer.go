package session

// Observer is notified of hub activity. Calls may happen while a room lock is
// held, so implementations must return quickly and never call back into the room.
type Observer interface {
	RoomCreated(roomID string)
	ClientJoined(roomID, participantID string)
	ClientLeft(roomID, participantID string)
	ClientDropped(roomID, participantID string, reason error)
	MessageHandled(roomID, msgType string)
	MessageRejected(roomID string, reason error)
}

type NopObserver struct{}

func (NopObserver) RoomCreated(string)                  {}
func (NopObserver) ClientJoined(string, string)         {}
func (NopObserver) ClientLeft(string, string)           {}
func (NopObserver) ClientDropped(string, string, error) {}
func (NopObserver) MessageHandled(string, string)       {}
func (NopObserver) MessageRejected(string, error)       {}

type multiObserver []Observer

// Observers fans each notification out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) RoomCreated(roomID string) {
	for _, o := range m {
		o.RoomCreated(roomID)
	}
}

func (m multiObserver) ClientJoined(roomID, participantID string) {
	for _, o := range m {
		o.ClientJoined(roomID, participantID)
	}
}

func (m multiObserver) ClientLeft(roomID, participantID string) {
	for _, o := range m {
		o.ClientLeft(roomID, participantID)
	}
}

func (m multiObserver) ClientDropped(roomID, participantID string, reason error) {
	for _, o := range m {
		o.ClientDropped(roomID, participantID, reason)
	}
}

func (m multiObserver) MessageHandled(roomID, msgType string) {
	for _, o := range m {
		o.MessageHandled(roomID, msgType)
	}
}

func (m multiObserver) MessageRejected(roomID string, reason error) {
	for _, o := range m {
		o.MessageRejected(roomID, reason)
	}
}
