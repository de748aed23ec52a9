package llm

import (
	"context"
	"log"
	"sync/atomic"
)

// Limited caps how many Invoke calls run at once against the wrapped model.
// Callers over the cap wait for a slot or for their context to end.
type Limited struct {
	model     ChatModel
	semaphore chan struct{}
	waiting   atomic.Int64
}

// Limit wraps model with a concurrency cap. max <= 0 returns model unchanged.
func Limit(model ChatModel, max int) ChatModel {
	if max <= 0 {
		return model
	}
	return &Limited{model: model, semaphore: make(chan struct{}, max)}
}

func (l *Limited) Invoke(ctx context.Context, prompt string) (Reply, error) {
	select {
	case l.semaphore <- struct{}{}:
	default:
		queued := l.waiting.Add(1)
		log.Printf("[LLM] All %d slots busy, %d request(s) queued", cap(l.semaphore), queued)
		select {
		case l.semaphore <- struct{}{}:
			l.waiting.Add(-1)
		case <-ctx.Done():
			l.waiting.Add(-1)
			return Reply{}, ctx.Err()
		}
	}
	defer func() { <-l.semaphore }()
	return l.model.Invoke(ctx, prompt)
}
