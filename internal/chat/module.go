package chat

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	ctxwindow "github.com/parley-chat/parley/internal/context"
	"github.com/parley-chat/parley/internal/core"
	"github.com/parley-chat/parley/internal/cron"
	"github.com/parley-chat/parley/internal/memory"
	"github.com/parley-chat/parley/internal/provider"
)

func init() {
	core.RegisterModule(new(Module))
}

// Config is the YAML configuration for the chat module.
type Config struct {
	// SystemPrompt seeds the pinned system turn of every new session.
	SystemPrompt string `yaml:"system_prompt"`

	// IdleTimeout is how long a session may sit idle before eviction,
	// as a Go duration string. Default "24h".
	IdleTimeout string `yaml:"idle_timeout"`

	// SweepSchedule is the cron expression for the reaper sweep.
	// Default "0 * * * *" (hourly).
	SweepSchedule string `yaml:"sweep_schedule"`

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int `yaml:"max_sessions"`

	// MaxTokens is the completion token cap passed to the provider.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature passed to the provider.
	// Nil leaves the provider default.
	Temperature *float64 `yaml:"temperature"`

	// Window configures context trimming.
	Window WindowConfig `yaml:"window"`
}

// WindowConfig mirrors ctxwindow.Window in YAML form.
type WindowConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	MaxMessages int     `yaml:"max_messages"`
	KeepRecent  int     `yaml:"keep_recent"`
	SummarizeAt float64 `yaml:"summarize_at"`
}

// Module is the conversation engine module. It owns the session store,
// the per-conversation lane locks, the trimmer, the reaper schedule,
// and the engine itself, and publishes the engine and session store as
// services for the gateway.
type Module struct {
	cfg Config

	appCtx    *core.AppContext
	store     *InMemoryStore
	lanes     *LaneLock
	trimmer   *ctxwindow.Trimmer
	engine    *Engine
	scheduler *cron.Scheduler

	idleTimeout time.Duration
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "chat",
		New: func() core.Module { return new(Module) },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.cfg); err != nil {
		return fmt.Errorf("decoding chat config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. The provider is resolved
// later, at Start, because provider modules provision after this one.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx

	m.idleTimeout = DefaultIdleTimeout
	if m.cfg.IdleTimeout != "" {
		d, err := time.ParseDuration(m.cfg.IdleTimeout)
		if err != nil {
			return fmt.Errorf("invalid idle_timeout %q: %w", m.cfg.IdleTimeout, err)
		}
		m.idleTimeout = d
	}
	if m.cfg.SweepSchedule == "" {
		m.cfg.SweepSchedule = DefaultSweepSchedule
	}

	m.store = NewInMemoryStore(m.cfg.SystemPrompt)
	m.store.SetMaxSessions(m.cfg.MaxSessions)
	m.lanes = NewLaneLock()
	m.trimmer = ctxwindow.NewTrimmer(nil, ctxwindow.Window{
		MaxTokens:   m.cfg.Window.MaxTokens,
		MaxMessages: m.cfg.Window.MaxMessages,
		KeepRecent:  m.cfg.Window.KeepRecent,
		SummarizeAt: m.cfg.Window.SummarizeAt,
	})
	m.scheduler = cron.NewScheduler(ctx.Logger)

	ctx.RegisterService(SessionServiceName, Store(m.store))
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.idleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %s", m.idleTimeout)
	}
	if m.cfg.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must be >= 0, got %d", m.cfg.MaxSessions)
	}
	return nil
}

// Start implements core.Starter. It resolves the provider (required)
// and the turn store (optional), builds the engine, publishes it, and
// starts the reaper schedule.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service(provider.ServiceName)
	if !ok {
		return fmt.Errorf("no completion provider registered; configure a provider module")
	}
	prov, ok := svc.(provider.Provider)
	if !ok {
		return fmt.Errorf("service %q is not a provider.Provider", provider.ServiceName)
	}

	var turns memory.TurnStore
	if svc, ok := m.appCtx.Service(memory.ServiceName); ok {
		turns, ok = svc.(memory.TurnStore)
		if !ok {
			return fmt.Errorf("service %q is not a memory.TurnStore", memory.ServiceName)
		}
		m.appCtx.Logger.Info("turn persistence enabled")
	}

	m.engine = NewEngine(EngineConfig{
		Logger:      m.appCtx.Logger,
		Sessions:    m.store,
		Lanes:       m.lanes,
		Trimmer:     m.trimmer,
		Provider:    prov,
		Turns:       turns,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
	})
	m.appCtx.RegisterService(EngineServiceName, m.engine)

	reaper := NewReaper(m.appCtx.Logger, m.store, m.lanes, turns, m.idleTimeout, m.cfg.SweepSchedule)
	if err := m.scheduler.AddJob(reaper); err != nil {
		return fmt.Errorf("scheduling reaper: %w", err)
	}
	if err := m.scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	m.appCtx.Logger.Info("chat engine started",
		"model", prov.ModelName(),
		"idle_timeout", m.idleTimeout,
		"sweep_schedule", m.cfg.SweepSchedule)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}
