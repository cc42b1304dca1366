package advisor

import (
	"slices"
	"unicode/utf8"
)

const (
	// DefaultTokenBudget is the context budget used when none is configured.
	DefaultTokenBudget = 4000

	// tokenOverhead is added to every message estimate for role and framing tokens.
	tokenOverhead = 10
)

// EstimateTokens approximates the model cost of one message as ceil(chars/4) + 10.
// It is a heuristic, not a tokenizer.
func EstimateTokens(content string) int {
	chars := utf8.RuneCountInString(content)
	return (chars+3)/4 + tokenOverhead
}

// ContextWindow is the recent part of a conversation chosen to fit a token budget.
type ContextWindow struct {
	Entries []HistoryEntry
	Tokens  int
}

// Len returns the number of selected messages.
func (w ContextWindow) Len() int {
	return len(w.Entries)
}

// ContextWindowSelector picks the longest run of newest messages that fits a budget.
type ContextWindowSelector struct {
	estimate func(string) int
}

// NewContextWindowSelector returns a selector using EstimateTokens.
func NewContextWindowSelector() *ContextWindowSelector {
	return &ContextWindowSelector{estimate: EstimateTokens}
}

// Select walks the log from newest to oldest, adding messages while the running estimate
// stays within budget, and stops at the first message that would exceed it. The result is
// always a contiguous suffix of the log in conversation order. If the newest message alone
// exceeds the budget the window is empty with zero tokens.
func (s *ContextWindowSelector) Select(log *ConversationLog, budget int) ContextWindow {
	var (
		entries []HistoryEntry
		total   int
	)

	for i := len(log.messages) - 1; i >= 0; i-- {
		cost := s.estimate(log.messages[i].Content)
		if total+cost > budget {
			break
		}
		entries = append(entries, log.messages[i].Entry())
		total += cost
	}

	slices.Reverse(entries)
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return ContextWindow{Entries: entries, Tokens: total}
}
