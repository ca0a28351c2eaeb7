package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is written on every new envelope. Rows from before
// versioning carry 0 and decode as version 1.
const EnvelopeVersion = 1

var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies the admin behind an event. Public intake leaves it nil.
type ActorRef struct {
	AdminID  *uuid.UUID `json:"adminId,omitempty"`
	Username string     `json:"username,omitempty"`
	Role     string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON body of an outbox row and of the Pub/Sub
// message published from it.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses raw and checks it carries an event id and a
// non-null data document.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: event id %q", ErrMalformedEnvelope, env.EventID)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, id, fmt.Errorf("%w: empty data", ErrMalformedEnvelope)
	}
	if env.Version == 0 {
		env.Version = EnvelopeVersion
	}
	return env, id, nil
}
