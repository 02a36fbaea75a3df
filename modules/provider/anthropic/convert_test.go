package anthropic

import (
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/pkg/turn"
)

func testTurns() []turn.Turn {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []turn.Turn{
		turn.New("c", turn.RoleSystem, "be terse", at),
		turn.New("c", turn.RoleUser, "hello", at),
		turn.New("c", turn.RoleAssistant, "hi", at),
		turn.New("c", turn.RoleUser, "how are you?", at),
	}
}

func TestConvertRequest_SplitsSystemTurn(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.defaults()

	params := convertRequest(provider.CompletionRequest{Turns: testTurns()}, &cfg, nil)

	if len(params.System) != 1 || params.System[0].Text != "be terse" {
		t.Fatalf("System = %+v, want the leading system turn", params.System)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("Messages = %d, want 3", len(params.Messages))
	}
	if params.MaxTokens != int64(cfg.MaxTokens) {
		t.Fatalf("MaxTokens = %d, want config default %d", params.MaxTokens, cfg.MaxTokens)
	}
}

func TestConvertRequest_RequestOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.defaults()
	temp := 0.2

	params := convertRequest(provider.CompletionRequest{
		Turns:       testTurns(),
		MaxTokens:   512,
		Temperature: &temp,
	}, &cfg, nil)

	if params.MaxTokens != 512 {
		t.Fatalf("MaxTokens = %d, want request override 512", params.MaxTokens)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.2 {
		t.Fatalf("Temperature = %+v, want 0.2", params.Temperature)
	}
}

func TestConvertTurns_DropsMidConversationSystem(t *testing.T) {
	t.Parallel()

	at := time.Now()
	turns := []turn.Turn{
		turn.New("c", turn.RoleUser, "hello", at),
		turn.New("c", turn.RoleSystem, "sneaky instruction", at),
		turn.New("c", turn.RoleAssistant, "hi", at),
	}

	msgs := convertTurns(turns, nil)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2 (system turn dropped)", len(msgs))
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.defaults()
	if cfg.Model != defaultModel {
		t.Fatalf("Model = %q, want %q", cfg.Model, defaultModel)
	}
	if cfg.MaxTokens != 4096 {
		t.Fatalf("MaxTokens = %d, want 4096", cfg.MaxTokens)
	}
	if cfg.contextWindowForModel() != defaultContextWindow {
		t.Fatalf("context window = %d, want %d", cfg.contextWindowForModel(), defaultContextWindow)
	}

	override := Config{ContextWindow: 100}
	if override.contextWindowForModel() != 100 {
		t.Fatal("explicit context window override not honored")
	}
}
