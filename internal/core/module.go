// Package core provides the module system foundation for parley:
// a registry of loadable modules, their configuration/provisioning
// lifecycle, and the App that starts and stops them.
package core

// ModuleID uniquely identifies a module, namespaced with dots
// (e.g. "gateway.http", "provider.anthropic", "memory.sqlite").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the module's unique identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Optional
// lifecycle behavior is declared through the interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
