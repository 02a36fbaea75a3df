package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/parley-chat/parley/internal/provider"
)

// streamBufferSize decouples SDK event consumption from the engine's
// fragment forwarding.
const streamBufferSize = 16

// Stream sends a streaming completion request and returns a channel of
// StreamChunks. The channel is closed when the stream ends or an error
// occurs. Initial connection errors are returned directly; mid-stream
// errors arrive via StreamChunk.Err.
func (a *Anthropic) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	params := convertRequest(req, &a.config, a.logger)

	stream := a.client.Messages.NewStreaming(ctx, params)

	// Consume the first event synchronously so auth, network, and 4xx
	// errors surface to the caller instead of arriving mid-stream.
	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, mapError(err)
		}
		// Stream ended without error or events.
		ch := make(chan provider.StreamChunk)
		close(ch)
		return ch, nil
	}

	firstEvent := stream.Current()
	ch := make(chan provider.StreamChunk, streamBufferSize)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		a.consumeStreamWithFirst(ctx, stream, firstEvent, ch)
	}()

	return ch, nil
}

// consumeStreamWithFirst processes the already-consumed first event,
// then the rest of the stream.
func (a *Anthropic) consumeStreamWithFirst(
	ctx context.Context,
	stream *ssestream.Stream[sdkanthropic.MessageStreamEventUnion],
	firstEvent sdkanthropic.MessageStreamEventUnion,
	ch chan<- provider.StreamChunk,
) {
	var inputTokens int64

	processEvent(ctx, &inputTokens, firstEvent, ch)

	for stream.Next() {
		if ctx.Err() != nil {
			return
		}
		processEvent(ctx, &inputTokens, stream.Current(), ch)
	}

	if err := stream.Err(); err != nil {
		emit(ctx, ch, provider.StreamChunk{Err: mapError(err)})
	}
}

// processEvent dispatches a single SSE event: text deltas become
// content chunks, the final message delta carries usage and the finish
// reason.
func processEvent(
	ctx context.Context,
	inputTokens *int64,
	event sdkanthropic.MessageStreamEventUnion,
	ch chan<- provider.StreamChunk,
) {
	switch ev := event.AsAny().(type) {
	case sdkanthropic.MessageStartEvent:
		*inputTokens = ev.Message.Usage.InputTokens

	case sdkanthropic.ContentBlockDeltaEvent:
		if delta, ok := ev.Delta.AsAny().(sdkanthropic.TextDelta); ok {
			emit(ctx, ch, provider.StreamChunk{Content: delta.Text})
		}

	case sdkanthropic.MessageDeltaEvent:
		outputTokens := ev.Usage.OutputTokens
		emit(ctx, ch, provider.StreamChunk{
			FinishReason: convertStopReason(ev.Delta.StopReason),
			Usage: &provider.TokenUsage{
				PromptTokens:     int(*inputTokens),
				CompletionTokens: int(outputTokens),
				TotalTokens:      int(*inputTokens + outputTokens),
			},
		})
	}
}

// emit sends a StreamChunk to the channel, respecting context cancellation.
func emit(ctx context.Context, ch chan<- provider.StreamChunk, chunk provider.StreamChunk) {
	select {
	case ch <- chunk:
	case <-ctx.Done():
	}
}
