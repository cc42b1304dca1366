package advisor

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidConfig is returned when a component is constructed with an unusable setting.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput is returned by Chat.Ask for blank user text.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidPrompt is returned when a context window cannot be turned into a prompt.
	ErrInvalidPrompt = errors.New("invalid prompt")

	// ErrInvalidRecord is returned when an exported record cannot be restored.
	ErrInvalidRecord = errors.New("invalid message record")

	ErrTranscriptVersionMismatch = errors.New("transcript version mismatch")

	// ErrInvalidSessionID is returned for session IDs that are not usable as storage keys.
	ErrInvalidSessionID = errors.New("invalid session ID")

	// ErrEmptyResponse is returned when the model produced no usable text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrProhibitedContent is returned when the provider blocked the generation.
	ErrProhibitedContent = errors.New("prohibited content")
)

var (
	// ErrTagTokenExceeded marks provider errors caused by a prompt longer than the model context.
	ErrTagTokenExceeded = goerr.NewTag("token_exceeded")
)
