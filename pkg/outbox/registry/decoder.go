package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// Decoder turns envelope data into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

// JSONDecoder decodes into a fresh *T.
func JSONDecoder[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type versioned struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a decoder, so a
// consumer can keep reading old envelopes after a payload change.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[versioned]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[versioned]Decoder)}
}

// NewEventDecoders covers version 1 of every routed event.
func NewEventDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, desc := range descriptors("") {
		reg.Register(desc.EventType, 1, desc.decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.mu.Lock()
	r.decoders[versioned{eventType, version}] = decode
	r.mu.Unlock()
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[versioned{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return decode(data)
}
