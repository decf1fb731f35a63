package store

import (
	"encoding/json"
	"fmt"
)

// Event is a tagged variant: a discriminant Type plus optional payload
// fields. On the wire an event is a flat JSON object whose "type" member
// is the discriminant and whose remaining members form the payload.
type Event struct {
	Type    string
	Payload map[string]interface{}
}

// NewEvent builds an event from a discriminant and optional payload fields.
func NewEvent(eventType string, payload map[string]interface{}) Event {
	return Event{Type: eventType, Payload: payload}
}

// Field returns a payload field and whether it was present.
func (e Event) Field(key string) (interface{}, bool) {
	v, ok := e.Payload[key]
	return v, ok
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("event has empty type")
	}
	flat := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		if k == "type" {
			continue
		}
		flat[k] = v
	}
	flat["type"] = e.Type
	return json.Marshal(flat)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	rawType, ok := flat["type"]
	if !ok {
		return fmt.Errorf("event missing type field")
	}
	eventType, ok := rawType.(string)
	if !ok || eventType == "" {
		return fmt.Errorf("event type must be a non-empty string")
	}
	delete(flat, "type")
	e.Type = eventType
	if len(flat) == 0 {
		e.Payload = nil
	} else {
		e.Payload = flat
	}
	return nil
}
