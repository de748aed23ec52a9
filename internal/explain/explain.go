// Package explain asks a hosted LLM why a piece of text classified as fake
// news might be fake. Every failure is reported to the caller as a string.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"fakenews/internal/llm"
)

const (
	CredentialKey = "GROQ_API_KEY"
	DefaultModel  = "meta-llama/llama-4-scout-17b-16e-instruct"

	MissingCredentialMessage = "API key missing — explanation unavailable."
	errorPrefix              = "Error generating explanation: "

	promptTemplate = "The following news article has been classified as FAKE.\n" +
		"Explain in a few sentences why this might be fake news:\n\n%s\n\nExplanation:"
)

var ErrCredentialMissing = errors.New(CredentialKey + " not found")

// CredentialResolver yields the API key, or false when none is configured.
type CredentialResolver interface {
	Resolve() (string, bool)
}

// ModelFactory builds a handle bound to a credential and model identifier.
type ModelFactory func(apiKey, model string) llm.ChatModel

// Service builds its model handle at most once, on first use. A missing
// credential is remembered as well: a key configured later is only picked up
// by a new Service.
type Service struct {
	resolver CredentialResolver
	factory  ModelFactory
	model    string

	once   sync.Once
	handle llm.ChatModel
}

func NewService(resolver CredentialResolver, factory ModelFactory, model string) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{resolver: resolver, factory: factory, model: model}
}

// NewGroqService wires the Groq chat model.
func NewGroqService(resolver CredentialResolver, model string, opts llm.Options) *Service {
	return NewService(resolver, func(apiKey, model string) llm.ChatModel {
		return llm.Limit(llm.NewGroq(apiKey, model, opts), opts.MaxConcurrent)
	}, model)
}

// ModelName is the identifier handles are bound to.
func (s *Service) ModelName() string {
	return s.model
}

// Model returns the memoized handle, or nil when no credential was found.
func (s *Service) Model() llm.ChatModel {
	s.once.Do(func() {
		apiKey, ok := s.resolver.Resolve()
		if !ok {
			log.Printf("[Explain] WARNING: %s not found! Add it to the secrets file or .env", CredentialKey)
			return
		}
		s.handle = s.factory(apiKey, s.model)
		log.Printf("[Explain] Initialized model handle for %s", s.model)
	})
	return s.handle
}

// Prompt renders the explanation prompt. text is inserted as-is.
func Prompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// Generate runs one explanation request. The returned error is either
// ErrCredentialMissing or the invocation error unchanged.
func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	handle := s.Model()
	if handle == nil {
		return "", ErrCredentialMissing
	}
	reply, err := handle.Invoke(ctx, Prompt(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text()), nil
}

// Explain is Generate with failures folded into the returned text.
func (s *Service) Explain(ctx context.Context, text string) string {
	out, err := s.Generate(ctx, text)
	if err != nil {
		return Message(err)
	}
	return out
}

// Message renders a Generate error the way Explain reports it.
func Message(err error) string {
	if errors.Is(err, ErrCredentialMissing) {
		return MissingCredentialMessage
	}
	return errorPrefix + err.Error()
}
