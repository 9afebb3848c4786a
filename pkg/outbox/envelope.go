package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. Guest-originated events carry
// the session token, back-office events carry the admin id.
type ActorRef struct {
	SessionToken string `json:"sessionToken,omitempty"`
	AdminID      string `json:"adminId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
