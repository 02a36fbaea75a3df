// Package openaicompat provides an OpenAI-compatible completion
// provider module. It works with any API that implements the OpenAI
// chat completions interface (Mistral, Groq, DeepSeek, Together, vLLM,
// LiteLLM, etc.) via a configurable base_url.
package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parley-chat/parley/internal/core"
	"github.com/parley-chat/parley/internal/provider"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Provider is an OpenAI-compatible completion provider.
type Provider struct {
	config Config
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai_compatible",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	p.apiKey = p.config.APIKey
	if p.apiKey == "" && p.config.APIKeyEnv != "" {
		p.apiKey = os.Getenv(p.config.APIKeyEnv)
	}

	// Use a transport with response-header timeout instead of a global
	// client timeout. A global timeout kills long-running SSE streams;
	// per-request context handles cancellation.
	p.client = &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: p.config.Timeout,
		},
	}

	ctx.RegisterService(provider.ServiceName, provider.Provider(p))
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	oaiReq := buildRequest(p.config.Model, p.config.MaxTokens, req, false)

	resp, err := p.doRequest(ctx, oaiReq)
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.CompletionResponse{}, handleErrorResponse(resp)
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}

	return parseResponse(oaiResp), nil
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	oaiReq := buildRequest(p.config.Model, p.config.MaxTokens, req, true)

	resp, err := p.doRequest(ctx, oaiReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, handleErrorResponse(resp)
	}

	// 1 MiB line buffer handles providers that send large SSE events.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ch := p.parseSSEStream(ctx, scanner)

	// Wrap to ensure the body gets closed when the stream ends. Select
	// on ctx.Done() to avoid a goroutine leak if the consumer abandons
	// the channel.
	out := make(chan provider.StreamChunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for chunk := range ch {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int {
	return p.config.ContextWindow
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// errMissingField returns a validation error for a missing required field.
func errMissingField(field string) error {
	return fmt.Errorf("provider.openai_compatible: %s is required", field)
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
	_ provider.Provider = (*Provider)(nil)
)
