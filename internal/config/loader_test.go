package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeConfig(t, `
version: "1"
log:
  level: debug
modules:
  chat:
    system_prompt: "be brief"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != "1" {
		t.Fatalf("Version = %q, want 1", cfg.Version)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if _, ok := cfg.Modules["chat"]; !ok {
		t.Fatal("chat module config missing")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("PARLEY_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
version: "1"
modules:
  provider.anthropic:
    api_key: ${PARLEY_TEST_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	node := cfg.Modules["provider.anthropic"]
	var mod struct {
		APIKey string `yaml:"api_key"`
	}
	if err := node.Decode(&mod); err != nil {
		t.Fatalf("decoding module config: %v", err)
	}
	if mod.APIKey != "sk-secret" {
		t.Fatalf("api_key = %q, want expanded env value", mod.APIKey)
	}
}

func TestLoad_EnvDefault(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  gateway.http:
    bind: ${PARLEY_TEST_UNSET_BIND:-127.0.0.1:8080}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	node := cfg.Modules["gateway.http"]
	var mod struct {
		Bind string `yaml:"bind"`
	}
	if err := node.Decode(&mod); err != nil {
		t.Fatalf("decoding module config: %v", err)
	}
	if mod.Bind != "127.0.0.1:8080" {
		t.Fatalf("bind = %q, want the default", mod.Bind)
	}
}

func TestLoad_UnresolvedEnvFails(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  provider.anthropic:
    api_key: ${PARLEY_TEST_DEFINITELY_UNSET}
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "PARLEY_TEST_DEFINITELY_UNSET") {
		t.Fatalf("error should name the variable: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve_SortedOrder(t *testing.T) {
	cfg := &Config{
		Modules: map[string]yaml.Node{
			"provider.anthropic": {},
			"chat":               {},
			"gateway.http":       {},
		},
	}
	ids := Resolve(cfg)
	want := []string{"chat", "gateway.http", "provider.anthropic"}
	if len(ids) != len(want) {
		t.Fatalf("Resolve = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Resolve = %v, want %v", ids, want)
		}
	}
}
