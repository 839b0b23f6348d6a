package logger

import "go.uber.org/zap"

const (
	// FieldSessionKey identifies the caller owning a session (cookie value or terminal key).
	FieldSessionKey = "session_key"
	// FieldSessionID is the generated interview session identifier.
	FieldSessionID = "session_id"
	// FieldTurn is the zero-based question index of an interview turn.
	FieldTurn = "turn"
)

// SessionFields describes an interview session. Empty values are omitted.
func SessionFields(key, id string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSessionKey, Value: key},
		StringField{Key: FieldSessionID, Value: id},
	)
}

// TurnFields describes a single turn of the session stored under key.
func TurnFields(key string, turn int) []zap.Field {
	return append(SessionFields(key, ""), zap.Int(FieldTurn, turn))
}
