package serve

import (
	"encoding/json"

	"github.com/regexflow/regexflow/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "test" | "parse" | "generate" | "close"
	Payload json.RawMessage `json:"payload"`
}

// TestPayload is the payload for "test" requests
type TestPayload struct {
	Pattern   string `json:"pattern"`
	Sample    string `json:"sample"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// ParsePayload is the payload for "parse" requests
type ParsePayload struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

// GeneratePayload is the payload for "generate" requests
type GeneratePayload struct {
	Sample string `json:"sample"`
	Sender string `json:"sender,omitempty"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "test" | "parse" | "generate" | "error"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
}

// TestData is the data field for "test" responses
type TestData struct {
	Matched   bool              `json:"matched"`
	Fields    map[string]string `json:"fields,omitempty"`
	ElapsedMS int64             `json:"elapsed_ms"`
	Error     string            `json:"error,omitempty"`
}

// ParseData is the data field for "parse" responses
type ParseData struct {
	Status      types.ParseStatus        `json:"status"`
	Duplicate   bool                     `json:"duplicate"`
	MessageID   string                   `json:"message_id"`
	Transaction *types.ParsedTransaction `json:"transaction,omitempty"`
}
