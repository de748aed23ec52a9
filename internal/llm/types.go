package llm

import (
	"context"
	"fmt"
)

// ChatModel is a configured handle to a remote text-generation endpoint.
// Implementations must be safe for concurrent use.
type ChatModel interface {
	Invoke(ctx context.Context, prompt string) (Reply, error)
}

// Message is a structured model reply.
type Message struct {
	Role    string
	Content string
}

// Reply is what a ChatModel hands back: either a structured Message or a
// bare value for endpoints that answer with plain text.
type Reply struct {
	Message *Message
	Raw     interface{}
}

// MessageReply wraps structured content.
func MessageReply(content string) Reply {
	return Reply{Message: &Message{Role: "assistant", Content: content}}
}

// RawReply wraps a plain value.
func RawReply(v interface{}) Reply {
	return Reply{Raw: v}
}

// Text normalizes either shape to a single string.
func (r Reply) Text() string {
	if r.Message != nil {
		return r.Message.Content
	}
	switch v := r.Raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
