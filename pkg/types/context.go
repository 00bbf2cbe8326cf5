package types

type contextKey string

// Context keys attached to request contexts by the server and read by the
// telemetry handler.
const (
	ContextKeyUserID        contextKey = "user_id"
	ContextKeySessionID     contextKey = "session_id"
	ContextKeyRequestSource contextKey = "request_source"
)
