package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// session bundles everything a command needs to talk to the model.
type session struct {
	cfg    *config
	logger *slog.Logger
	chat   *advisor.Chat
	repo   transcriptStore

	closer io.Closer
}

func (s *session) Close() error {
	return s.closer.Close()
}

// newSession loads configuration, sets up logging and creates the chat. When resumeID is
// given the saved conversation is loaded into the chat.
func newSession(ctx context.Context, cmd *cli.Command, console io.Writer, resumeID string) (*session, error) {
	cfg := newConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := cfg.newLogger(console)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	s := &session{cfg: cfg, logger: logger, closer: closer}
	if err := s.init(ctx, resumeID); err != nil {
		_ = closer.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) init(ctx context.Context, resumeID string) error {
	client, err := s.cfg.newModelClient(ctx)
	if err != nil {
		return err
	}

	repo, err := s.cfg.newRepository(ctx)
	if err != nil {
		return err
	}
	s.repo = repo

	systemPrompt, err := s.cfg.systemPrompt()
	if err != nil {
		return err
	}

	chat, err := advisor.NewChat(client, s.cfg.chatOptions(systemPrompt, s.logger)...)
	if err != nil {
		return err
	}
	s.chat = chat

	if resumeID != "" {
		t, err := repo.Load(ctx, resumeID)
		if err != nil {
			return err
		}
		if t == nil {
			return goerr.New("saved conversation not found", goerr.V("session_id", resumeID))
		}
		if err := chat.Resume(t); err != nil {
			return err
		}
		s.logger.Info("conversation resumed", "session_id", resumeID, "messages", len(t.Messages))
	}

	return nil
}
