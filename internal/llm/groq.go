package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

var ErrNoChoices = errors.New("groq: no choices in response")

// Groq is a ChatModel backed by Groq's OpenAI-compatible chat completions API.
// Construction does no I/O; the key is first checked on the first Invoke.
type Groq struct {
	client *openai.Client
	model  string
	opts   Options
}

func NewGroq(apiKey, model string, opts Options) *Groq {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Groq{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		opts:   opts,
	}
}

// Model returns the model identifier this handle is bound to.
func (g *Groq) Model() string {
	return g.model
}

// Invoke sends prompt as a single user message and blocks for the reply.
func (g *Groq) Invoke(ctx context.Context, prompt string) (Reply, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrNoChoices
	}
	msg := resp.Choices[0].Message
	return Reply{Message: &Message{Role: msg.Role, Content: msg.Content}}, nil
}
