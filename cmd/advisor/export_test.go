package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/advisor/trace"
	"github.com/urfave/cli/v3"
)

// Exported response types for testing
type (
	PostMessageResponse  = postMessageResponse
	HistoryResponse      = historyResponse
	ListSessionsResponse = listSessionsResponse
	Config               = config
)

// Exported constructors and options for testing
var (
	NewServer      = newServer
	WithRepository = withRepository
	WithTitle      = withTitle
	NewApp         = newApp
	PrintSessions  = printSessions
	ParseLogLevel  = parseLogLevel
)

// Handler returns the server's HTTP handler for testing.
func (s *server) Handler() http.Handler {
	return s.handler()
}

// RunREPL runs the terminal loop over the given input with a fixed clock.
func RunREPL(ctx context.Context, chat *advisor.Chat, repo advisor.ConversationRepository, in io.Reader, out io.Writer, now time.Time) error {
	r := &repl{
		chat:        chat,
		repo:        repo,
		title:       "Test Advisor",
		description: "test",
		in:          in,
		out:         out,
		now:         func() time.Time { return now },
	}
	return r.run(ctx)
}

// NewConfigFromArgs parses args with the root flags and returns the resulting config.
func NewConfigFromArgs(ctx context.Context, args []string) (*config, error) {
	var cfg *config
	cmd := &cli.Command{
		Name:  "advisor",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg = newConfig(cmd)
			return nil
		},
	}
	if err := cmd.Run(ctx, append([]string{"advisor"}, args...)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Exported config methods for testing
func (c *config) NewLogger(console io.Writer) error {
	_, closer, err := c.newLogger(console)
	if err != nil {
		return err
	}
	return closer.Close()
}

func (c *config) SystemPrompt() (string, error) {
	return c.systemPrompt()
}

func (c *config) NewModelClient(ctx context.Context) (advisor.ModelClient, error) {
	return c.newModelClient(ctx)
}

func (c *config) Tracer(logger *slog.Logger) trace.Handler {
	return c.tracer(logger)
}
