package ws

import "encoding/json"

// Frame is the wire form of one push event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
