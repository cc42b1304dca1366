// Package advisor provides conversation memory for a career-advisor chat assistant:
// an ordered log of turns, a retention ceiling, a token-budget context window and
// session statistics, plus the orchestration that sends the selected history to a model.
package advisor

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ConversationLog is an ordered, append-only sequence of messages belonging to one session.
// It is not safe for concurrent use; exactly one session owns a log.
type ConversationLog struct {
	messages     []Message
	sessionStart time.Time

	now    func() time.Time
	logger *slog.Logger
}

// LogOption configures a ConversationLog.
type LogOption func(*ConversationLog)

// WithClock replaces time.Now for message timestamps and session timing.
func WithClock(now func() time.Time) LogOption {
	return func(l *ConversationLog) {
		l.now = now
	}
}

// WithLogLogger sets the logger used for append and clear events.
func WithLogLogger(logger *slog.Logger) LogOption {
	return func(l *ConversationLog) {
		l.logger = logger
	}
}

// NewConversationLog creates an empty log whose session starts now.
func NewConversationLog(options ...LogOption) *ConversationLog {
	l := &ConversationLog{
		now:    time.Now,
		logger: defaultLogger,
	}
	for _, opt := range options {
		opt(l)
	}
	l.sessionStart = l.now()
	return l
}

// AppendUser appends a user turn. Content is stored as given.
func (l *ConversationLog) AppendUser(content string, metadata ...Metadata) {
	l.append(RoleUser, content, metadata)
}

// AppendAssistant appends an assistant turn. Content is stored as given.
func (l *ConversationLog) AppendAssistant(content string, metadata ...Metadata) {
	l.append(RoleAssistant, content, metadata)
}

func (l *ConversationLog) append(role MessageRole, content string, metadata []Metadata) {
	l.messages = append(l.messages, newMessage(role, content, l.now(), metadata))
	l.logger.Debug("message appended",
		"role", role,
		"chars", utf8.RuneCountInString(content),
		"total_messages", len(l.messages),
	)
}

// History yields the role/content pairs in conversation order. The sequence reads the
// log at iteration time and can be ranged over any number of times.
func (l *ConversationLog) History() iter.Seq[HistoryEntry] {
	return func(yield func(HistoryEntry) bool) {
		for _, msg := range l.messages {
			if !yield(msg.Entry()) {
				return
			}
		}
	}
}

// Recent returns copies of the last n messages, or all of them when fewer exist.
func (l *ConversationLog) Recent(n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	start := max(len(l.messages)-n, 0)
	return cloneMessages(l.messages[start:])
}

// Messages returns a copy of every message in order.
func (l *ConversationLog) Messages() []Message {
	return cloneMessages(l.messages)
}

// Last returns the newest message, if any.
func (l *ConversationLog) Last() (Message, bool) {
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1].clone(), true
}

// Len returns the number of messages.
func (l *ConversationLog) Len() int {
	return len(l.messages)
}

// SessionStart returns when the log was created or last cleared.
func (l *ConversationLog) SessionStart() time.Time {
	return l.sessionStart
}

// Clear drops all messages and restarts the session clock.
func (l *ConversationLog) Clear() {
	removed := len(l.messages)
	l.messages = nil
	l.sessionStart = l.now()
	l.logger.Info("conversation history cleared", "removed", removed)
}

// Export returns a serializable snapshot of the log. Later mutation of the log does not
// affect the returned records.
func (l *ConversationLog) Export() []MessageRecord {
	records := make([]MessageRecord, len(l.messages))
	for i, msg := range l.messages {
		records[i] = msg.Record()
	}
	return records
}

// Restore replaces the log's content with previously exported records. The session start
// is left untouched. On error the log is unchanged.
func (l *ConversationLog) Restore(records []MessageRecord) error {
	messages, err := recordsToMessages(records)
	if err != nil {
		return err
	}
	l.messages = messages
	return nil
}

// RestoreSession replaces both the records and the session start. On error the log is
// unchanged.
func (l *ConversationLog) RestoreSession(start time.Time, records []MessageRecord) error {
	messages, err := recordsToMessages(records)
	if err != nil {
		return err
	}
	l.messages = messages
	l.sessionStart = start
	return nil
}

func recordsToMessages(records []MessageRecord) ([]Message, error) {
	messages := make([]Message, 0, len(records))
	for _, r := range records {
		msg, err := r.Message()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Summary describes the conversation in a few human-readable lines.
func (l *ConversationLog) Summary() string {
	if len(l.messages) == 0 {
		return "No conversation yet."
	}

	var userCount, assistantCount, userChars, assistantChars int
	for _, msg := range l.messages {
		n := utf8.RuneCountInString(msg.Content)
		switch msg.Role {
		case RoleUser:
			userCount++
			userChars += n
		case RoleAssistant:
			assistantCount++
			assistantChars += n
		}
	}

	return fmt.Sprintf("Conversation Summary:\n"+
		"- User Messages: %d\n"+
		"- Assistant Messages: %d\n"+
		"- Total Characters: %d\n"+
		"- Avg User Message: %.0f chars\n"+
		"- Avg Assistant Message: %.0f chars",
		userCount, assistantCount, userChars+assistantChars,
		mean(userChars, userCount), mean(assistantChars, assistantCount),
	)
}

// Display renders every message with its time of day, one per line.
func (l *ConversationLog) Display() string {
	if len(l.messages) == 0 {
		return "Conversation is empty."
	}

	lines := make([]string, len(l.messages))
	for i, msg := range l.messages {
		lines[i] = msg.FormattedText()
	}
	return strings.Join(lines, "\n")
}

func mean(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func cloneMessages(src []Message) []Message {
	out := make([]Message, len(src))
	for i, msg := range src {
		out[i] = msg.clone()
	}
	return out
}
