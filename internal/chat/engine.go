package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ctxwindow "github.com/parley-chat/parley/internal/context"
	"github.com/parley-chat/parley/internal/memory"
	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/security"
	"github.com/parley-chat/parley/pkg/turn"
)

// EngineServiceName is the AppContext service key for the chat engine.
const EngineServiceName = "chat.engine"

// SessionServiceName is the AppContext service key for the session store.
const SessionServiceName = "chat.sessions"

// FailureMessage is recorded as the assistant turn when the provider
// fails, so the conversation history stays well-formed for retries.
const FailureMessage = "Sorry, something went wrong while generating a response. Please try again."

// Reply is the result of one message exchange. Retryable is set on
// failed replies whose underlying provider error is transient.
type Reply struct {
	ConversationID string              `json:"conversation_id"`
	Content        string              `json:"content"`
	Failed         bool                `json:"failed,omitempty"`
	Retryable      bool                `json:"retryable,omitempty"`
	Model          string              `json:"model,omitempty"`
	Usage          provider.TokenUsage `json:"usage"`
}

// EngineConfig carries the collaborators an Engine needs. Turns is
// optional; a nil TurnStore disables persistence.
type EngineConfig struct {
	Logger      *slog.Logger
	Sessions    Store
	Lanes       *LaneLock
	Trimmer     *ctxwindow.Trimmer
	Provider    provider.Provider
	Turns       memory.TurnStore
	MaxTokens   int
	Temperature *float64
}

// Engine runs the message pipeline: validate, serialize per
// conversation, append the user turn, trim the context window, call
// the provider, and record the assistant turn. Session history is
// authoritative and append-only; only the provider payload is trimmed.
type Engine struct {
	log         *slog.Logger
	sessions    Store
	lanes       *LaneLock
	trimmer     *ctxwindow.Trimmer
	provider    provider.Provider
	turns       memory.TurnStore
	tracer      trace.Tracer
	maxTokens   int
	temperature *float64
	now         func() time.Time
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:         log,
		sessions:    cfg.Sessions,
		lanes:       cfg.Lanes,
		trimmer:     cfg.Trimmer,
		provider:    cfg.Provider,
		turns:       cfg.Turns,
		tracer:      otel.Tracer("github.com/parley-chat/parley/internal/chat"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		now:         time.Now,
	}
}

// Handle processes one user message and returns the assistant reply.
// Validation errors are returned as-is (check with security sentinels);
// provider errors are returned alongside a Reply carrying the recorded
// failure turn.
func (e *Engine) Handle(ctx context.Context, conversationID, content string) (Reply, error) {
	ctx, span := e.tracer.Start(ctx, "chat.Handle",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	payload, err := e.prepare(ctx, conversationID, content)
	if err != nil {
		return Reply{}, err
	}
	defer e.lanes.Release(conversationID)

	resp, err := e.provider.Complete(ctx, provider.CompletionRequest{
		Turns:       payload,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		e.log.Error("provider completion failed",
			"conversation_id", conversationID, "error", err)
		e.recordAssistant(ctx, conversationID, FailureMessage, true)
		return Reply{
			ConversationID: conversationID,
			Content:        FailureMessage,
			Failed:         true,
			Retryable:      provider.IsRetryable(err),
			Model:          e.provider.ModelName(),
		}, fmt.Errorf("complete: %w", err)
	}

	e.recordAssistant(ctx, conversationID, resp.Content, false)
	return Reply{
		ConversationID: conversationID,
		Content:        resp.Content,
		Model:          e.provider.ModelName(),
		Usage:          resp.Usage,
	}, nil
}

// HandleStream processes one user message, calling emit for each
// content fragment as it arrives. Fragments already emitted remain
// part of the recorded assistant turn even if the stream fails partway:
// partial output is kept best-effort, and a stream with no output at
// all is recorded as the generic failure turn.
func (e *Engine) HandleStream(ctx context.Context, conversationID, content string, emit func(fragment string) error) (Reply, error) {
	ctx, span := e.tracer.Start(ctx, "chat.HandleStream",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	payload, err := e.prepare(ctx, conversationID, content)
	if err != nil {
		return Reply{}, err
	}
	defer e.lanes.Release(conversationID)

	stream, err := e.provider.Stream(ctx, provider.CompletionRequest{
		Turns:       payload,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		e.log.Error("provider stream failed",
			"conversation_id", conversationID, "error", err)
		e.recordAssistant(ctx, conversationID, FailureMessage, true)
		return Reply{
			ConversationID: conversationID,
			Content:        FailureMessage,
			Failed:         true,
			Retryable:      provider.IsRetryable(err),
			Model:          e.provider.ModelName(),
		}, fmt.Errorf("stream: %w", err)
	}

	var (
		acc       strings.Builder
		usage     provider.TokenUsage
		streamErr error
	)
	for chunk := range stream {
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if chunk.Content == "" {
			continue
		}
		acc.WriteString(chunk.Content)
		if emitErr := emit(chunk.Content); emitErr != nil {
			// Client gone. Keep what was generated so far.
			streamErr = fmt.Errorf("emit: %w", emitErr)
			break
		}
	}

	reply := Reply{
		ConversationID: conversationID,
		Content:        acc.String(),
		Model:          e.provider.ModelName(),
		Usage:          usage,
	}
	if streamErr != nil {
		e.log.Warn("stream ended early",
			"conversation_id", conversationID,
			"partial_bytes", acc.Len(), "error", streamErr)
		reply.Failed = true
		reply.Retryable = provider.IsRetryable(streamErr)
		if reply.Content == "" {
			reply.Content = FailureMessage
		}
		e.recordAssistant(ctx, conversationID, reply.Content, true)
		return reply, streamErr
	}

	e.recordAssistant(ctx, conversationID, reply.Content, false)
	return reply, nil
}

// prepare runs the shared front half of the pipeline: validation, lane
// acquisition, session setup, user turn append, and context trimming.
// On success the conversation lane is held; the caller must release it.
func (e *Engine) prepare(ctx context.Context, conversationID, content string) ([]turn.Turn, error) {
	if err := security.ValidateContent(content); err != nil {
		e.log.Warn("message rejected",
			"conversation_id", conversationID, "reason", security.Reason(err))
		return nil, err
	}

	e.lanes.Acquire(conversationID)

	sess, created := e.sessions.GetOrCreate(conversationID)
	if sess == nil {
		e.lanes.Release(conversationID)
		return nil, ErrMaxSessions
	}
	if created {
		e.restoreOrSeed(ctx, sess)
	}

	userTurn := turn.New(conversationID, turn.RoleUser, content, e.now())
	if err := e.sessions.Append(conversationID, userTurn); err != nil {
		e.lanes.Release(conversationID)
		return nil, fmt.Errorf("append user turn: %w", err)
	}
	e.persist(ctx, userTurn)

	payload := e.trimmer.Trim(sess.History)
	if e.trimmer.NeedsSummarization(sess.History) {
		e.log.Debug("conversation nearing window limit",
			"conversation_id", conversationID, "turns", len(sess.History))
	}
	return payload, nil
}

// restoreOrSeed reloads a freshly created session's history from the
// turn store, or persists the seeded system turn when nothing was
// stored. Both paths are best-effort; the in-memory session is already
// usable.
func (e *Engine) restoreOrSeed(ctx context.Context, sess *Session) {
	if e.turns == nil {
		return
	}
	persisted, err := e.turns.LoadHistory(ctx, sess.ConversationID)
	if err != nil {
		e.log.Warn("history restore failed",
			"conversation_id", sess.ConversationID, "error", err)
		return
	}
	if len(persisted) > 0 {
		if persisted[0].Role != turn.RoleSystem {
			persisted = append(sess.History[:1:1], persisted...)
		}
		sess.History = persisted
		e.log.Info("history restored",
			"conversation_id", sess.ConversationID, "turns", len(persisted))
		return
	}
	e.persist(ctx, sess.History[0])
}

// recordAssistant appends the assistant turn to the session and
// persists it. Failures here are logged, not surfaced; the reply has
// already been produced.
func (e *Engine) recordAssistant(ctx context.Context, conversationID, content string, failed bool) {
	sess := e.sessions.Get(conversationID)
	if sess == nil {
		return
	}
	t := turn.New(conversationID, turn.RoleAssistant, content, e.now())
	t.Failed = failed
	if err := e.sessions.Append(conversationID, t); err != nil {
		e.log.Error("append assistant turn failed",
			"conversation_id", conversationID, "error", err)
		return
	}
	e.persist(ctx, t)
}

// persist writes a turn to the optional store. Persistence is
// write-behind; errors are logged and swallowed.
func (e *Engine) persist(ctx context.Context, t turn.Turn) {
	if e.turns == nil {
		return
	}
	if err := e.turns.Save(ctx, t); err != nil {
		e.log.Warn("turn persistence failed",
			"conversation_id", t.ConversationID, "error", err)
	}
}
