package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive conversation in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "resume",
				Usage: "Session ID of a saved conversation to continue",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Logs go to the log file only; stderr would interleave with the conversation.
			s, err := newSession(ctx, cmd, nil, cmd.String("resume"))
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			r := &repl{
				chat:        s.chat,
				repo:        s.repo,
				title:       s.cfg.AppName,
				description: s.cfg.AppDescription,
				in:          os.Stdin,
				out:         os.Stdout,
				now:         time.Now,
			}
			return r.run(ctx)
		},
	}
}

const replHelp = `Commands:
  /clear          clear the conversation
  /stats          show session statistics
  /summary        show a conversation summary
  /history        show the conversation with timestamps
  /export [path]  write the conversation as JSON
  /save           save the conversation for later
  /model          show the model configuration
  /help           show this help
  /quit           exit`

// repl is the terminal front end of a Chat.
type repl struct {
	chat        *advisor.Chat
	repo        advisor.ConversationRepository
	title       string
	description string

	in  io.Reader
	out io.Writer
	now func() time.Time
}

func (r *repl) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context) error {
	r.printf("%s\n%s\n\n", r.title, r.description)
	if r.chat.Stats().TotalMessages == 0 {
		r.printf("Welcome! Start a conversation by asking a career-related question. Type /help for commands.\n")
	} else {
		r.printf("%s\n", r.chat.Display())
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		r.printf("\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.handleCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		reply, err := r.chat.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, advisor.ErrEmptyInput) {
				continue
			}
			return err
		}
		r.printf("\nAdvisor: %s\n", reply.Text)
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	return nil
}

func (r *repl) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		r.printf("Goodbye!\n")
		return true

	case "/help":
		r.printf("%s\n", replHelp)

	case "/clear":
		r.chat.Clear()
		r.printf("Conversation history cleared\n")

	case "/stats":
		stats := r.chat.Stats()
		r.printf("Messages: %d (user %d, assistant %d)\nCharacters: %d\nDuration: %ds\n",
			stats.TotalMessages, stats.UserMessages, stats.AssistantMessages,
			stats.TotalCharacters, int(stats.SessionDurationSeconds))

	case "/summary":
		r.printf("%s\n", r.chat.Summary())

	case "/history":
		r.printf("%s\n", r.chat.Display())

	case "/export":
		path := fmt.Sprintf("conversation_%s.json", r.now().Format("20060102_150405"))
		if len(fields) > 1 {
			path = fields[1]
		}
		if err := writeTranscript(path, r.chat.Transcript()); err != nil {
			r.printf("Export failed: %v\n", err)
			return false
		}
		r.printf("Conversation exported to %s\n", path)

	case "/save":
		if err := r.chat.Save(ctx, r.repo); err != nil {
			r.printf("Save failed: %v\n", err)
			return false
		}
		r.printf("Conversation saved. Resume with: advisor chat --resume %s\n", r.chat.ID())

	case "/model":
		info := r.chat.ModelInfo()
		r.printf("Provider: %s\nModel: %s\nTemperature: %.2f\nMax Tokens: %d\n",
			info.Provider, info.Model, info.Temperature, info.MaxTokens)

	default:
		r.printf("Unknown command %q. Type /help for commands.\n", fields[0])
	}
	return false
}

func writeTranscript(path string, t *advisor.Transcript) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal transcript")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write transcript", goerr.V("path", path))
	}
	return nil
}
