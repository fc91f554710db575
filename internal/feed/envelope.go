// Package feed defines the wire protocol shared by the feed hub and the
// sync client: a small JSON event envelope carried over a websocket.
package feed

import "encoding/json"

// Event names understood on the feed channel. Directives flow client to
// server; data, acks and errors flow server to client.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventSubscribed  = "subscribed"
	EventData        = "broker_summary_data"
	EventError       = "broker_summary_error"
)

// Envelope is the frame every feed message travels in. Data stays raw so
// each side decodes only the events it cares about.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SubscribeRequest is the payload of subscribe/unsubscribe directives and
// of the subscribed ack.
type SubscribeRequest struct {
	Symbol string `json:"symbol"`
}

// ErrorPayload is the payload of a broker_summary_error event.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewEnvelope marshals v into an Envelope for the given event.
//
// Returns an error only if v cannot be marshaled, which for the fixed
// payload types above means a programming error.
func NewEnvelope(event string, v any) (Envelope, error) {
	if v == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
