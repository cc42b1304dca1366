package openai_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/advisor/llm/openai"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	goopenai "github.com/sashabaranov/go-openai"
)

type fakeAPIClient struct {
	req  goopenai.ChatCompletionRequest
	resp goopenai.ChatCompletionResponse
	err  error
}

func (f *fakeAPIClient) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

var _ openai.APIClient = &fakeAPIClient{}

func TestGenerate(t *testing.T) {
	fake := &fakeAPIClient{
		resp: goopenai.ChatCompletionResponse{
			Model: "gpt-test-0001",
			Choices: []goopenai.ChatCompletionChoice{
				{
					Message: goopenai.ChatCompletionMessage{
						Role:    goopenai.ChatMessageRoleAssistant,
						Content: "Update your resume first.",
					},
					FinishReason: goopenai.FinishReasonStop,
				},
			},
			Usage: goopenai.Usage{PromptTokens: 30, CompletionTokens: 6},
		},
	}
	client := openai.NewWithAPIClient(fake, openai.WithModel("gpt-test"), openai.WithMaxTokens(256))

	resp, err := client.Generate(context.Background(), &advisor.Prompt{
		System: "You are an advisor.",
		History: []advisor.HistoryEntry{
			{Role: advisor.RoleUser, Content: "Hi"},
			{Role: advisor.RoleAssistant, Content: "Hello there"},
		},
		Input: "How do I start a job search?",
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "Update your resume first.")
	gt.Equal(t, resp.Model, "gpt-test-0001")
	gt.Equal(t, resp.InputTokens, 30)
	gt.Equal(t, resp.OutputTokens, 6)

	gt.Equal(t, fake.req.Model, "gpt-test")
	gt.Equal(t, fake.req.MaxTokens, 256)
	gt.A(t, fake.req.Messages).Length(4)
	gt.Equal(t, fake.req.Messages[0].Role, goopenai.ChatMessageRoleSystem)
	gt.Equal(t, fake.req.Messages[2].Role, goopenai.ChatMessageRoleAssistant)
	gt.Equal(t, fake.req.Messages[3].Content, "How do I start a job search?")
}

func TestGenerateNoChoices(t *testing.T) {
	client := openai.NewWithAPIClient(&fakeAPIClient{}, openai.WithModel("gpt-test"))

	resp, err := client.Generate(context.Background(), &advisor.Prompt{Input: "Hello"})
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "")
	gt.Equal(t, resp.Model, "gpt-test")
}

func TestGenerateTokenExceeded(t *testing.T) {
	fake := &fakeAPIClient{
		err: &goopenai.APIError{
			Type:    "invalid_request_error",
			Code:    "context_length_exceeded",
			Message: "maximum context length exceeded",
		},
	}
	client := openai.NewWithAPIClient(fake)

	_, err := client.Generate(context.Background(), &advisor.Prompt{Input: "Hello"})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, advisor.ErrTagTokenExceeded))
}

func TestTokenLimitErrorOptions(t *testing.T) {
	gt.A(t, openai.TokenLimitErrorOptions(errors.New("network"))).Length(0)
	gt.A(t, openai.TokenLimitErrorOptions(&goopenai.APIError{Type: "server_error", Code: "context_length_exceeded"})).Length(0)
	gt.A(t, openai.TokenLimitErrorOptions(&goopenai.APIError{Type: "invalid_request_error", Code: 400})).Length(0)
}

func TestConvertPromptWithoutSystem(t *testing.T) {
	messages, err := openai.ConvertPrompt(&advisor.Prompt{Input: "Hello"})
	gt.NoError(t, err)
	gt.A(t, messages).Length(1)
	gt.Equal(t, messages[0].Role, goopenai.ChatMessageRoleUser)
}

func TestConvertPromptInvalidRole(t *testing.T) {
	_, err := openai.ConvertPrompt(&advisor.Prompt{
		History: []advisor.HistoryEntry{{Role: "tool", Content: "x"}},
		Input:   "Hello",
	})
	gt.True(t, errors.Is(err, advisor.ErrInvalidPrompt))
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := openai.New(context.Background(), "")
	gt.True(t, errors.Is(err, advisor.ErrInvalidConfig))
}

func TestInfo(t *testing.T) {
	info := openai.NewWithAPIClient(&fakeAPIClient{}, openai.WithTemperature(0.3)).Info()
	gt.Equal(t, info.Provider, "openai")
	gt.Equal(t, info.Model, openai.DefaultModel)
	gt.Equal(t, info.Temperature, float32(0.3))
}

func TestOpenAIGenerateLive(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_OPENAI_API_KEY")
	if !ok {
		t.Skip("TEST_OPENAI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := openai.New(ctx, apiKey)
	gt.NoError(t, err)

	resp, err := client.Generate(ctx, &advisor.Prompt{Input: "Say hello in one word"})
	gt.NoError(t, err)
	gt.N(t, len(resp.Text)).Greater(0)
}
