// Package providertest provides a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/parley-chat/parley/internal/provider"
)

// Fake is a scriptable Provider. Zero value replies with Reply to every
// request. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	// Reply is returned by Complete and emitted as a single chunk by
	// Stream when no Fragments are scripted.
	Reply string

	// Fragments, when non-empty, are emitted one chunk at a time by Stream.
	Fragments []string

	// Err, when set, is returned by Complete and by Stream (initial error).
	Err error

	// StreamErr, when set, is delivered mid-stream after Fragments,
	// exercising the partial-output path.
	StreamErr error

	// Requests records every request received, in call order.
	Requests []provider.CompletionRequest
}

var _ provider.Provider = (*Fake)(nil)

// Complete implements provider.Provider.
func (f *Fake) Complete(_ context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return provider.CompletionResponse{}, f.Err
	}
	return provider.CompletionResponse{
		Content:      f.Reply,
		FinishReason: provider.FinishReasonStop,
	}, nil
}

// Stream implements provider.Provider.
func (f *Fake) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	err := f.Err
	fragments := append([]string(nil), f.Fragments...)
	reply := f.Reply
	streamErr := f.StreamErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if len(fragments) == 0 && reply != "" {
		fragments = []string{reply}
	}

	ch := make(chan provider.StreamChunk, len(fragments)+2)
	go func() {
		defer close(ch)
		for _, frag := range fragments {
			select {
			case ch <- provider.StreamChunk{Content: frag}:
			case <-ctx.Done():
				return
			}
		}
		if streamErr != nil {
			ch <- provider.StreamChunk{Err: streamErr}
			return
		}
		ch <- provider.StreamChunk{FinishReason: provider.FinishReasonStop}
	}()
	return ch, nil
}

// ContextWindowSize implements provider.Provider.
func (f *Fake) ContextWindowSize() int { return 8192 }

// ModelName implements provider.Provider.
func (f *Fake) ModelName() string { return "fake-model" }

// RequestCount returns the number of requests received so far.
func (f *Fake) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// LastRequest returns the most recent request, or false if none.
func (f *Fake) LastRequest() (provider.CompletionRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return provider.CompletionRequest{}, false
	}
	return f.Requests[len(f.Requests)-1], true
}
