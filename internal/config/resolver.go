package config

import "slices"

// Resolve returns the configured module IDs in sorted order. The
// deterministic order keeps module loading (and therefore service
// registration) reproducible across runs.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
