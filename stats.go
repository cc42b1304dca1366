package advisor

import (
	"time"
	"unicode/utf8"
)

// SessionStats is a read-only set of counters derived from a ConversationLog.
type SessionStats struct {
	TotalMessages          int     `json:"total_messages"`
	UserMessages           int     `json:"user_messages"`
	AssistantMessages      int     `json:"assistant_messages"`
	TotalCharacters        int     `json:"total_characters"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
	SessionStart           string  `json:"session_start"`
}

// Snapshot computes statistics for the log without modifying it.
func Snapshot(log *ConversationLog) SessionStats {
	stats := SessionStats{
		TotalMessages: len(log.messages),
		SessionStart:  log.sessionStart.Format(time.RFC3339Nano),
	}

	for _, msg := range log.messages {
		switch msg.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
		}
		stats.TotalCharacters += utf8.RuneCountInString(msg.Content)
	}

	stats.SessionDurationSeconds = max(log.now().Sub(log.sessionStart).Seconds(), 0)
	return stats
}
