// Package prompt holds the instruction prompts given to the career advisor model.
package prompt

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/system_prompt.md
var systemPrompt string

//go:embed templates/meta_prompt.md
var metaPromptTemplate string

var metaTmpl = template.Must(template.New("meta").Parse(metaPromptTemplate))

type metaTemplateData struct {
	SystemPrompt string
	UserName     string
	Focus        string
}

// Topic is a kind of career guidance the user is looking for.
type Topic string

const (
	TopicCareerPlanning    Topic = "career_planning"
	TopicSkillDevelopment  Topic = "skill_development"
	TopicJobSearch         Topic = "job_search"
	TopicCareerTransition  Topic = "career_transition"
	TopicLeadership        Topic = "leadership"
	TopicSalaryNegotiation Topic = "salary_negotiation"
)

const defaultFocus = "Provide comprehensive career guidance tailored to the user's specific needs."

var focusByTopic = map[Topic]string{
	TopicCareerPlanning:    "Focus on long-term strategic career development with measurable goals.",
	TopicSkillDevelopment:  "Provide specific, actionable skill-building recommendations with learning resources.",
	TopicJobSearch:         "Give practical job search strategies including resume, interview, and networking advice.",
	TopicCareerTransition:  "Support the user in making informed career changes with risk mitigation strategies.",
	TopicLeadership:        "Provide guidance on leadership development, team management, and organizational impact.",
	TopicSalaryNegotiation: "Offer evidence-based salary negotiation strategies and market insights.",
}

// System returns the career advisor system prompt.
func System() string {
	return strings.TrimSpace(systemPrompt)
}

// Focus returns the guidance hint for a topic, or a general hint for unknown topics.
func Focus(topic Topic) string {
	if s, ok := focusByTopic[topic]; ok {
		return s
	}
	return defaultFocus
}

// Option adjusts the prompt built by Build.
type Option func(*metaTemplateData)

// WithUserName personalizes the prompt for the named user.
func WithUserName(name string) Option {
	return func(d *metaTemplateData) {
		d.UserName = strings.TrimSpace(name)
	}
}

// WithTopic appends the focus hint for topic. An empty topic adds nothing.
func WithTopic(topic Topic) Option {
	return func(d *metaTemplateData) {
		if topic != "" {
			d.Focus = Focus(topic)
		}
	}
}

// Build returns the system prompt with optional user context and topic focus.
func Build(options ...Option) (string, error) {
	data := metaTemplateData{SystemPrompt: System()}
	for _, opt := range options {
		opt(&data)
	}

	var b strings.Builder
	if err := metaTmpl.Execute(&b, data); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt")
	}
	return strings.TrimSpace(b.String()), nil
}
