package advisor

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// MessageRole represents the author of a turn in the conversation
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one the conversation log accepts.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Metadata is free-form information attached to a message, such as model name or token usage.
// Its contents are not validated. Values go through encoding/json when a transcript is saved,
// so after Load numbers are float64 and nested objects are map[string]any.
type Metadata map[string]any

// Message is one turn of the conversation. It is never mutated after creation.
type Message struct {
	Role      MessageRole
	Content   string
	CreatedAt time.Time
	Metadata  Metadata
}

func newMessage(role MessageRole, content string, createdAt time.Time, metadata []Metadata) Message {
	meta := Metadata{}
	for _, m := range metadata {
		maps.Copy(meta, m)
	}
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
		Metadata:  meta,
	}
}

// clone returns a copy whose metadata map is not shared with the original.
func (m Message) clone() Message {
	m.Metadata = maps.Clone(m.Metadata)
	if m.Metadata == nil {
		m.Metadata = Metadata{}
	}
	return m
}

// Entry returns the role/content pair sent to the model.
func (m Message) Entry() HistoryEntry {
	return HistoryEntry{Role: m.Role, Content: m.Content}
}

// Record converts the message to its serializable form.
func (m Message) Record() MessageRecord {
	c := m.clone()
	return MessageRecord{
		Role:      c.Role,
		Content:   c.Content,
		Timestamp: c.CreatedAt.Format(time.RFC3339Nano),
		Metadata:  c.Metadata,
	}
}

// FormattedText renders the message for display, e.g. "[14:03:21] USER: hello".
func (m Message) FormattedText() string {
	return fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Format(time.TimeOnly), strings.ToUpper(string(m.Role)), m.Content)
}

// HistoryEntry is the role/content shape consumed by the model client.
type HistoryEntry struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// MessageRecord is the exported form of a Message. Timestamp is ISO-8601 (RFC 3339).
type MessageRecord struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
	Metadata  Metadata    `json:"metadata"`
}

// Message converts the record back to a Message.
func (r MessageRecord) Message() (Message, error) {
	if !r.Role.Valid() {
		return Message{}, goerr.Wrap(ErrInvalidRecord, "unknown role", goerr.V("role", r.Role))
	}

	createdAt, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return Message{}, goerr.Wrap(ErrInvalidRecord, "malformed timestamp",
			goerr.V("timestamp", r.Timestamp),
			goerr.V("error", err.Error()),
		)
	}

	meta := maps.Clone(r.Metadata)
	if meta == nil {
		meta = Metadata{}
	}

	return Message{
		Role:      r.Role,
		Content:   r.Content,
		CreatedAt: createdAt,
		Metadata:  meta,
	}, nil
}
