package main_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/advisor"
	main "github.com/m-mizutani/advisor/cmd/advisor"
	"github.com/m-mizutani/advisor/trace"
	"github.com/m-mizutani/gt"
)

func TestConfigDefaults(t *testing.T) {
	for _, key := range []string{"ADVISOR_PROVIDER", "GEMINI_MODEL", "MAX_TOKENS", "TEMPERATURE", "MAX_CONVERSATION_HISTORY", "CONTEXT_TOKEN_BUDGET", "APP_NAME", "LOG_FILE"} {
		t.Setenv(key, "")
		gt.NoError(t, os.Unsetenv(key))
	}

	cfg, err := main.NewConfigFromArgs(context.Background(), nil)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Provider, "gemini")
	gt.Equal(t, cfg.GeminiModel, "gemini-2.5-flash")
	gt.Equal(t, cfg.MaxTokens, 4096)
	gt.Equal(t, cfg.Temperature, 0.7)
	gt.Equal(t, cfg.MaxHistory, 20)
	gt.Equal(t, cfg.TokenBudget, 4000)
	gt.Equal(t, cfg.AppName, "Career Advisor Chatbot")
	gt.Equal(t, cfg.LogFile, "app.log")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ADVISOR_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("MAX_CONVERSATION_HISTORY", "8")

	cfg, err := main.NewConfigFromArgs(context.Background(), nil)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Provider, "openai")
	gt.Equal(t, cfg.OpenAIAPIKey, "sk-test")
	gt.Equal(t, cfg.Temperature, 0.2)
	gt.Equal(t, cfg.MaxHistory, 8)
	gt.NoError(t, cfg.Validate())

	client, err := cfg.NewModelClient(context.Background())
	gt.NoError(t, err)
	gt.Equal(t, client.Info().Provider, "openai")
	gt.Equal(t, client.Info().MaxTokens, 4096)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *main.Config {
		return &main.Config{
			Provider:     "gemini",
			GeminiAPIKey: "key",
			MaxTokens:    4096,
			Temperature:  0.7,
			MaxHistory:   20,
			TokenBudget:  4000,
		}
	}
	gt.NoError(t, valid().Validate())

	for name, mutate := range map[string]func(c *main.Config){
		"missing gemini key":   func(c *main.Config) { c.GeminiAPIKey = "" },
		"missing openai key":   func(c *main.Config) { c.Provider = "openai" },
		"missing claude key":   func(c *main.Config) { c.Provider = "claude" },
		"unknown provider":     func(c *main.Config) { c.Provider = "llama" },
		"temperature too high": func(c *main.Config) { c.Temperature = 1.5 },
		"negative temperature": func(c *main.Config) { c.Temperature = -0.1 },
		"zero max tokens":      func(c *main.Config) { c.MaxTokens = 0 },
		"zero history":         func(c *main.Config) { c.MaxHistory = 0 },
		"zero budget":          func(c *main.Config) { c.TokenBudget = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			gt.True(t, errors.Is(c.Validate(), advisor.ErrInvalidConfig))
		})
	}

	t.Run("vertex project replaces gemini key", func(t *testing.T) {
		c := valid()
		c.GeminiAPIKey = ""
		c.GeminiProject = "my-project"
		gt.NoError(t, c.Validate())
	})
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := main.ParseLogLevel(input)
		gt.NoError(t, err)
		gt.Equal(t, got, want)
	}

	_, err := main.ParseLogLevel("verbose")
	gt.True(t, errors.Is(err, advisor.ErrInvalidConfig))
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	cfg := &main.Config{LogLevel: "debug", LogFormat: "json", LogFile: filepath.Join(dir, "app.log")}
	var buf bytes.Buffer
	gt.NoError(t, cfg.NewLogger(&buf))

	cfg = &main.Config{LogLevel: "info", LogFormat: "yaml"}
	gt.True(t, errors.Is(cfg.NewLogger(nil), advisor.ErrInvalidConfig))
}

func TestSystemPrompt(t *testing.T) {
	cfg := &main.Config{UserName: "Aki", Topic: "leadership"}
	p, err := cfg.SystemPrompt()
	gt.NoError(t, err)
	gt.S(t, p).Contains("Aki")
	gt.S(t, p).Contains("leadership development")
}

func TestPrintSessions(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, main.PrintSessions(&buf, &advisor.ListResponse{}))
	gt.Equal(t, buf.String(), "No saved conversations.\n")

	buf.Reset()
	gt.NoError(t, main.PrintSessions(&buf, &advisor.ListResponse{
		Transcripts: []advisor.TranscriptSummary{
			{SessionID: "0190-abc", Size: 512, UpdatedAt: time.Now()},
		},
		NextPageToken: "tok",
	}))
	gt.S(t, buf.String()).Contains("0190-abc")
	gt.S(t, buf.String()).Contains("--page-token tok")
}

func TestAppCommands(t *testing.T) {
	app := main.NewApp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	gt.Equal(t, names, []string{"chat", "serve", "ping", "sessions"})
}

func TestTracer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	cfg := &main.Config{}
	gt.Value(t, cfg.Tracer(logger)).Nil()

	cfg = &main.Config{TraceDir: t.TempDir()}
	h := cfg.Tracer(logger)
	_, ok := h.(*trace.Recorder)
	gt.True(t, ok)

	cfg = &main.Config{TraceDir: t.TempDir(), TraceLog: true, TraceOTel: true}
	h = cfg.Tracer(logger)
	gt.NotNil(t, h)
	_, ok = h.(*trace.Recorder)
	gt.False(t, ok)
}
