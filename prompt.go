package advisor

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
)

// Prompt is the payload handed to a ModelClient. History holds the turns preceding Input,
// oldest first; Input is the newest user turn.
type Prompt struct {
	System  string
	History []HistoryEntry
	Input   string
}

func (p *Prompt) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("system_chars", len(p.System)),
		slog.Int("history", len(p.History)),
		slog.Int("input_chars", len(p.Input)),
	)
}

// PromptAssembler combines a fixed instruction prompt with selected history.
type PromptAssembler struct {
	systemPrompt string
}

// NewPromptAssembler returns an assembler that attaches systemPrompt to every prompt.
func NewPromptAssembler(systemPrompt string) *PromptAssembler {
	return &PromptAssembler{systemPrompt: systemPrompt}
}

// SystemPrompt returns the instruction prompt.
func (a *PromptAssembler) SystemPrompt() string {
	return a.systemPrompt
}

// Assemble builds a prompt from a window whose newest entry is the pending user turn.
func (a *PromptAssembler) Assemble(entries []HistoryEntry) (*Prompt, error) {
	if len(entries) == 0 {
		return nil, goerr.Wrap(ErrInvalidPrompt, "no history selected")
	}

	last := entries[len(entries)-1]
	if last.Role != RoleUser {
		return nil, goerr.Wrap(ErrInvalidPrompt, "newest turn is not from the user", goerr.V("role", last.Role))
	}

	history := make([]HistoryEntry, len(entries)-1)
	copy(history, entries[:len(entries)-1])

	return &Prompt{
		System:  a.systemPrompt,
		History: history,
		Input:   last.Content,
	}, nil
}
