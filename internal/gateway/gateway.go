package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/core"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Engine is the slice of the chat engine the gateway needs. Satisfied
// by *chat.Engine; narrowed so handler tests can substitute a stub.
type Engine interface {
	Handle(ctx context.Context, conversationID, content string) (chat.Reply, error)
	HandleStream(ctx context.Context, conversationID, content string, emit func(fragment string) error) (chat.Reply, error)
}

// Gateway is the HTTP surface module. It exposes the conversation API,
// the chat websocket, health, Prometheus metrics, and bearer-protected
// admin endpoints. It is a leaf module — nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	startedAt time.Time

	// Resolved at Start() via the service registry.
	engine   Engine
	sessions chat.Store
}

// Interface guards.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. The chat engine is resolved here
// because the chat module starts first (module IDs sort "chat" before
// "gateway.http").
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service(chat.EngineServiceName)
	if !ok {
		return fmt.Errorf("gateway: service %q not registered; is the chat module configured?", chat.EngineServiceName)
	}
	engine, ok := svc.(Engine)
	if !ok {
		return fmt.Errorf("gateway: service %q does not implement the chat engine", chat.EngineServiceName)
	}
	g.engine = engine

	if svc, ok := g.appCtx.Service(chat.SessionServiceName); ok {
		if store, ok := svc.(chat.Store); ok {
			g.sessions = store
		}
	}

	g.metrics = NewMetrics(g.sessions)
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
