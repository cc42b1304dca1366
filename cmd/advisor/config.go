package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/advisor/llm/claude"
	"github.com/m-mizutani/advisor/llm/gemini"
	"github.com/m-mizutani/advisor/llm/openai"
	"github.com/m-mizutani/advisor/prompt"
	"github.com/m-mizutani/advisor/repository/cs"
	"github.com/m-mizutani/advisor/trace"
	traceLogger "github.com/m-mizutani/advisor/trace/logger"
	traceOtel "github.com/m-mizutani/advisor/trace/otel"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerClaude = "claude"

	defaultAppName        = "Career Advisor Chatbot"
	defaultAppDescription = "AI-powered career guidance and professional development"
	defaultExportDir      = "conversations"
)

type config struct {
	Provider string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiProject  string
	GeminiLocation string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	ClaudeModel     string
	ClaudeRegion    string
	ClaudeProject   string

	MaxTokens   int
	Temperature float64

	MaxHistory  int
	TokenBudget int
	FullHistory bool

	UserName       string
	Topic          string
	AppName        string
	AppDescription string

	ExportDir         string
	ExportBucket      string
	ExportPrefix      string
	ExportCredentials string

	LogLevel  string
	LogFormat string
	LogFile   string

	TraceDir  string
	TraceLog  bool
	TraceOTel bool
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "provider",
			Value:   providerGemini,
			Sources: cli.EnvVars("ADVISOR_PROVIDER"),
			Usage:   "LLM provider (gemini, openai, claude)",
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Sources: cli.EnvVars("GEMINI_API_KEY"),
			Usage:   "Gemini API key",
		},
		&cli.StringFlag{
			Name:    "gemini-model",
			Value:   gemini.DefaultModel,
			Sources: cli.EnvVars("GEMINI_MODEL"),
			Usage:   "Gemini model name",
		},
		&cli.StringFlag{
			Name:    "gemini-project",
			Sources: cli.EnvVars("GEMINI_PROJECT"),
			Usage:   "Google Cloud project for Gemini on Vertex AI",
		},
		&cli.StringFlag{
			Name:    "gemini-location",
			Sources: cli.EnvVars("GEMINI_LOCATION"),
			Usage:   "Google Cloud location for Gemini on Vertex AI",
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
			Usage:   "OpenAI API key",
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Value:   openai.DefaultModel,
			Sources: cli.EnvVars("OPENAI_MODEL"),
			Usage:   "OpenAI model name",
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Sources: cli.EnvVars("OPENAI_BASE_URL"),
			Usage:   "OpenAI compatible API endpoint",
		},
		&cli.StringFlag{
			Name:    "anthropic-api-key",
			Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
			Usage:   "Anthropic API key",
		},
		&cli.StringFlag{
			Name:    "claude-model",
			Value:   claude.DefaultModel,
			Sources: cli.EnvVars("CLAUDE_MODEL"),
			Usage:   "Claude model name",
		},
		&cli.StringFlag{
			Name:    "claude-region",
			Sources: cli.EnvVars("CLAUDE_VERTEX_REGION"),
			Usage:   "Vertex AI region for Claude",
		},
		&cli.StringFlag{
			Name:    "claude-project",
			Sources: cli.EnvVars("CLAUDE_VERTEX_PROJECT"),
			Usage:   "Google Cloud project for Claude on Vertex AI",
		},
		&cli.IntFlag{
			Name:    "max-tokens",
			Value:   4096,
			Sources: cli.EnvVars("MAX_TOKENS"),
			Usage:   "Maximum tokens to generate per response",
		},
		&cli.FloatFlag{
			Name:    "temperature",
			Value:   0.7,
			Sources: cli.EnvVars("TEMPERATURE"),
			Usage:   "Sampling temperature (0 to 1)",
		},
		&cli.IntFlag{
			Name:    "max-history",
			Value:   advisor.DefaultMaxMessages,
			Sources: cli.EnvVars("MAX_CONVERSATION_HISTORY"),
			Usage:   "Maximum number of messages kept in the conversation",
		},
		&cli.IntFlag{
			Name:    "token-budget",
			Value:   advisor.DefaultTokenBudget,
			Sources: cli.EnvVars("CONTEXT_TOKEN_BUDGET"),
			Usage:   "Estimated token budget for history sent to the model",
		},
		&cli.BoolFlag{
			Name:    "full-history",
			Sources: cli.EnvVars("FULL_HISTORY"),
			Usage:   "Send the whole retained history instead of a budgeted window",
		},
		&cli.StringFlag{
			Name:    "user-name",
			Sources: cli.EnvVars("USER_NAME"),
			Usage:   "Name used to personalize advice",
		},
		&cli.StringFlag{
			Name:    "topic",
			Sources: cli.EnvVars("ADVISOR_TOPIC"),
			Usage:   "Guidance focus (career_planning, skill_development, job_search, career_transition, leadership, salary_negotiation)",
		},
		&cli.StringFlag{
			Name:    "app-name",
			Value:   defaultAppName,
			Sources: cli.EnvVars("APP_NAME"),
			Usage:   "Application title",
		},
		&cli.StringFlag{
			Name:    "app-description",
			Value:   defaultAppDescription,
			Sources: cli.EnvVars("APP_DESCRIPTION"),
			Usage:   "Application description",
		},
		&cli.StringFlag{
			Name:    "export-dir",
			Value:   defaultExportDir,
			Sources: cli.EnvVars("ADVISOR_EXPORT_DIR"),
			Usage:   "Local directory for saved conversations",
		},
		&cli.StringFlag{
			Name:    "export-bucket",
			Sources: cli.EnvVars("ADVISOR_EXPORT_BUCKET"),
			Usage:   "Google Cloud Storage bucket for saved conversations (overrides --export-dir)",
		},
		&cli.StringFlag{
			Name:    "export-prefix",
			Sources: cli.EnvVars("ADVISOR_EXPORT_PREFIX"),
			Usage:   "Google Cloud Storage object prefix",
		},
		&cli.StringFlag{
			Name:    "export-credentials",
			Sources: cli.EnvVars("ADVISOR_EXPORT_CREDENTIALS"),
			Usage:   "Service account key file for Google Cloud Storage",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Usage:   "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
			Usage:   "Log format (text, json)",
		},
		&cli.StringFlag{
			Name:    "log-file",
			Value:   "app.log",
			Sources: cli.EnvVars("LOG_FILE"),
			Usage:   "Log file path, rotated at 10MB. Empty disables file logging",
		},
		&cli.StringFlag{
			Name:    "trace-dir",
			Sources: cli.EnvVars("ADVISOR_TRACE_DIR"),
			Usage:   "Directory to write one JSON trace per conversation turn",
		},
		&cli.BoolFlag{
			Name:    "trace-log",
			Sources: cli.EnvVars("ADVISOR_TRACE_LOG"),
			Usage:   "Write conversation turn traces to the log",
		},
		&cli.BoolFlag{
			Name:    "trace-otel",
			Sources: cli.EnvVars("ADVISOR_TRACE_OTEL"),
			Usage:   "Export conversation turn traces to the global OpenTelemetry tracer provider",
		},
	}
}

func newConfig(cmd *cli.Command) *config {
	return &config{
		Provider: strings.ToLower(cmd.String("provider")),

		GeminiAPIKey:   cmd.String("gemini-api-key"),
		GeminiModel:    cmd.String("gemini-model"),
		GeminiProject:  cmd.String("gemini-project"),
		GeminiLocation: cmd.String("gemini-location"),

		OpenAIAPIKey:  cmd.String("openai-api-key"),
		OpenAIModel:   cmd.String("openai-model"),
		OpenAIBaseURL: cmd.String("openai-base-url"),

		AnthropicAPIKey: cmd.String("anthropic-api-key"),
		ClaudeModel:     cmd.String("claude-model"),
		ClaudeRegion:    cmd.String("claude-region"),
		ClaudeProject:   cmd.String("claude-project"),

		MaxTokens:   int(cmd.Int("max-tokens")),
		Temperature: cmd.Float("temperature"),

		MaxHistory:  int(cmd.Int("max-history")),
		TokenBudget: int(cmd.Int("token-budget")),
		FullHistory: cmd.Bool("full-history"),

		UserName:       cmd.String("user-name"),
		Topic:          cmd.String("topic"),
		AppName:        cmd.String("app-name"),
		AppDescription: cmd.String("app-description"),

		ExportDir:         cmd.String("export-dir"),
		ExportBucket:      cmd.String("export-bucket"),
		ExportPrefix:      cmd.String("export-prefix"),
		ExportCredentials: cmd.String("export-credentials"),

		LogLevel:  cmd.String("log-level"),
		LogFormat: cmd.String("log-format"),
		LogFile:   cmd.String("log-file"),

		TraceDir:  cmd.String("trace-dir"),
		TraceLog:  cmd.Bool("trace-log"),
		TraceOTel: cmd.Bool("trace-otel"),
	}
}

// Validate checks settings that would otherwise fail later in the session.
func (c *config) Validate() error {
	switch c.Provider {
	case providerGemini:
		if c.GeminiAPIKey == "" && c.GeminiProject == "" {
			return goerr.Wrap(advisor.ErrInvalidConfig, "GEMINI_API_KEY environment variable is not set. Please add it to your .env file.")
		}
	case providerOpenAI:
		if c.OpenAIAPIKey == "" {
			return goerr.Wrap(advisor.ErrInvalidConfig, "OPENAI_API_KEY environment variable is not set. Please add it to your .env file.")
		}
	case providerClaude:
		if c.AnthropicAPIKey == "" && c.ClaudeProject == "" {
			return goerr.Wrap(advisor.ErrInvalidConfig, "ANTHROPIC_API_KEY environment variable is not set. Please add it to your .env file.")
		}
	default:
		return goerr.Wrap(advisor.ErrInvalidConfig, "unknown provider", goerr.V("provider", c.Provider))
	}

	if c.Temperature < 0 || c.Temperature > 1 {
		return goerr.Wrap(advisor.ErrInvalidConfig, "TEMPERATURE must be between 0 and 1.", goerr.V("temperature", c.Temperature))
	}
	if c.MaxTokens < 1 {
		return goerr.Wrap(advisor.ErrInvalidConfig, "MAX_TOKENS must be greater than 0.", goerr.V("max_tokens", c.MaxTokens))
	}
	if c.MaxHistory < 1 {
		return goerr.Wrap(advisor.ErrInvalidConfig, "MAX_CONVERSATION_HISTORY must be greater than 0.", goerr.V("max_history", c.MaxHistory))
	}
	if c.TokenBudget < 1 {
		return goerr.Wrap(advisor.ErrInvalidConfig, "CONTEXT_TOKEN_BUDGET must be greater than 0.", goerr.V("token_budget", c.TokenBudget))
	}
	return nil
}

func (c *config) newModelClient(ctx context.Context) (advisor.ModelClient, error) {
	switch c.Provider {
	case providerGemini:
		opts := []gemini.Option{
			gemini.WithModel(c.GeminiModel),
			gemini.WithTemperature(float32(c.Temperature)),
			gemini.WithMaxTokens(int32(c.MaxTokens)),
		}
		if c.GeminiProject != "" {
			opts = append(opts, gemini.WithVertexAI(c.GeminiProject, c.GeminiLocation))
		}
		return gemini.New(ctx, c.GeminiAPIKey, opts...)

	case providerOpenAI:
		return openai.New(ctx, c.OpenAIAPIKey,
			openai.WithModel(c.OpenAIModel),
			openai.WithTemperature(float32(c.Temperature)),
			openai.WithMaxTokens(c.MaxTokens),
			openai.WithBaseURL(c.OpenAIBaseURL),
		)

	case providerClaude:
		opts := []claude.Option{
			claude.WithModel(c.ClaudeModel),
			claude.WithTemperature(c.Temperature),
			claude.WithMaxTokens(int64(c.MaxTokens)),
		}
		if c.ClaudeProject != "" {
			opts = append(opts, claude.WithVertexAI(c.ClaudeRegion, c.ClaudeProject))
		}
		return claude.New(ctx, c.AnthropicAPIKey, opts...)
	}

	return nil, goerr.Wrap(advisor.ErrInvalidConfig, "unknown provider", goerr.V("provider", c.Provider))
}

// transcriptStore is where /save and the sessions command read and write conversations.
type transcriptStore interface {
	advisor.ConversationRepository
	advisor.TranscriptLister
}

func (c *config) newRepository(ctx context.Context) (transcriptStore, error) {
	if c.ExportBucket == "" {
		return advisor.NewFileRepository(c.ExportDir), nil
	}

	var opts []option.ClientOption
	if c.ExportCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(c.ExportCredentials))
	}
	repo, err := cs.New(ctx, c.ExportBucket, c.ExportPrefix, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage repository", goerr.V("bucket", c.ExportBucket))
	}
	return repo, nil
}

func (c *config) systemPrompt() (string, error) {
	return prompt.Build(
		prompt.WithUserName(c.UserName),
		prompt.WithTopic(prompt.Topic(c.Topic)),
	)
}

// tracer returns nil when no trace backend is enabled.
func (c *config) tracer(logger *slog.Logger) trace.Handler {
	var handlers []trace.Handler
	if c.TraceDir != "" {
		handlers = append(handlers, trace.New(
			trace.WithRepository(trace.NewFileRepository(c.TraceDir)),
			trace.WithMetadata(trace.TraceMetadata{
				Labels: map[string]string{"provider": c.Provider},
			}),
		))
	}
	if c.TraceLog {
		handlers = append(handlers, traceLogger.New(traceLogger.WithLogger(logger)))
	}
	if c.TraceOTel {
		handlers = append(handlers, traceOtel.New())
	}
	return trace.Multi(handlers...)
}

func (c *config) chatOptions(systemPrompt string, logger *slog.Logger) []advisor.Option {
	opts := []advisor.Option{
		advisor.WithMaxMessages(c.MaxHistory),
		advisor.WithTokenBudget(c.TokenBudget),
		advisor.WithSystemPrompt(systemPrompt),
		advisor.WithLogger(logger),
	}
	if c.FullHistory {
		opts = append(opts, advisor.WithFullHistory())
	}
	if h := c.tracer(logger); h != nil {
		opts = append(opts, advisor.WithTrace(h))
	}
	return opts
}
