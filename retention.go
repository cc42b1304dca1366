package advisor

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultMaxMessages is the retention ceiling used when MAX_CONVERSATION_HISTORY is unset.
const DefaultMaxMessages = 20

// RetentionPolicy keeps a ConversationLog at or below a fixed number of messages by
// evicting the oldest ones.
type RetentionPolicy struct {
	maxMessages int
	logger      *slog.Logger
}

// RetentionOption configures a RetentionPolicy.
type RetentionOption func(*RetentionPolicy)

// WithRetentionLogger sets the logger that records evictions.
func WithRetentionLogger(logger *slog.Logger) RetentionOption {
	return func(p *RetentionPolicy) {
		p.logger = logger
	}
}

// NewRetentionPolicy returns a policy keeping at most maxMessages messages.
// maxMessages must be positive.
func NewRetentionPolicy(maxMessages int, options ...RetentionOption) (*RetentionPolicy, error) {
	if maxMessages <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "max messages must be positive", goerr.V("max_messages", maxMessages))
	}

	p := &RetentionPolicy{
		maxMessages: maxMessages,
		logger:      defaultLogger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// MaxMessages returns the configured ceiling.
func (p *RetentionPolicy) MaxMessages() int {
	return p.maxMessages
}

// Apply drops the oldest messages so that at most MaxMessages remain and returns how many
// were removed. Calling it again right away removes nothing.
func (p *RetentionPolicy) Apply(log *ConversationLog) int {
	excess := len(log.messages) - p.maxMessages
	if excess <= 0 {
		return 0
	}

	kept := make([]Message, p.maxMessages)
	copy(kept, log.messages[excess:])
	log.messages = kept

	p.logger.Info("optimized memory: removed old messages",
		"removed", excess,
		"max_messages", p.maxMessages,
	)
	return excess
}
