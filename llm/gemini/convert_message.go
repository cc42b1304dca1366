package gemini

import (
	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// convertRole maps a conversation role to the Gemini content role.
func convertRole(role advisor.MessageRole) (string, error) {
	switch role {
	case advisor.RoleUser:
		return roleUser, nil
	case advisor.RoleAssistant:
		return roleModel, nil
	default:
		return "", goerr.Wrap(advisor.ErrInvalidPrompt, "unsupported role", goerr.V("role", role))
	}
}

// convertPrompt converts the prompt history and input into Gemini contents, oldest first.
func convertPrompt(p *advisor.Prompt) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(p.History)+1)
	for _, entry := range p.History {
		role, err := convertRole(entry.Role)
		if err != nil {
			return nil, err
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: entry.Content}},
		})
	}

	contents = append(contents, &genai.Content{
		Role:  roleUser,
		Parts: []*genai.Part{{Text: p.Input}},
	})
	return contents, nil
}
