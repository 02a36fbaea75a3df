package anthropic

import (
	"log/slog"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/pkg/turn"
)

// convertRequest transforms a CompletionRequest into Anthropic SDK
// parameters. System turns are extracted from the turn list into the
// dedicated System field.
func convertRequest(req provider.CompletionRequest, cfg *Config, logger *slog.Logger) sdkanthropic.MessageNewParams {
	system, rest := splitSystemTurns(req.Turns)

	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertTurns(rest, logger),
		System:   system,
	}

	// MaxTokens: request-level override takes precedence over config default.
	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}

	return params
}

// splitSystemTurns extracts leading system turns into Anthropic's
// System parameter format and returns the remaining turns.
func splitSystemTurns(turns []turn.Turn) ([]sdkanthropic.TextBlockParam, []turn.Turn) {
	var system []sdkanthropic.TextBlockParam
	var idx int
	for idx = 0; idx < len(turns); idx++ {
		if turns[idx].Role != turn.RoleSystem {
			break
		}
		system = append(system, sdkanthropic.TextBlockParam{
			Text: turns[idx].Content,
		})
	}
	return system, turns[idx:]
}

// convertTurns transforms conversation turns into Anthropic SDK message
// params. Non-leading system turns are dropped with a warning: the
// Anthropic API only accepts system content as a separate parameter.
func convertTurns(turns []turn.Turn, logger *slog.Logger) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(turns))

	for i, t := range turns {
		switch t.Role {
		case turn.RoleUser:
			result = append(result, sdkanthropic.NewUserMessage(
				sdkanthropic.NewTextBlock(t.Content),
			))

		case turn.RoleAssistant:
			result = append(result, sdkanthropic.NewAssistantMessage(
				sdkanthropic.NewTextBlock(t.Content),
			))

		case turn.RoleSystem:
			if logger != nil {
				logger.Warn("dropping non-leading system turn; the Anthropic API only supports system content at the start",
					"index", i,
				)
			}
		}
	}

	return result
}

// convertResponse transforms an Anthropic SDK Message into a
// CompletionResponse, concatenating text blocks.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var content string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if content != "" {
				content += "\n"
			}
			content += v.Text
		}
	}

	return provider.CompletionResponse{
		Content:      content,
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonEndTurn, sdkanthropic.StopReasonStopSequence:
		return provider.FinishReasonStop
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
