package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a failed request. Retryable mirrors the
// code's metadata so clients can back off without a code table.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

// LiveFrame is the server-to-client websocket message. Error frames carry
// the error code and its public message; other frames carry Data.
type LiveFrame struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	LiveFrameSnapshot = "snapshot"
	LiveFrameAck      = "ack"
	LiveFrameError    = "error"
)
