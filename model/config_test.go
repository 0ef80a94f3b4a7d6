package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const yamlRegistry = `
models:
  - name: sonnet
    provider: openrouter
    model: anthropic/claude-sonnet-4.5
    input_per_million_usd: 3.0
    output_per_million_usd: 15.0
    rate:
      requests: 60
      window: 1m
    context_window: 200000
  - name: haiku
    provider: openrouter
    model: anthropic/claude-haiku-4.5
    input_per_million_usd: 0.25
    output_per_million_usd: 1.25
    rate:
      requests: 120
      window: 1m
      max_wait: 30s
    billed_on_failure: true
`

const tomlRegistry = `
[[models]]
name = "opus"
provider = "openrouter"
model = "anthropic/claude-opus-4.6"
input_per_million_usd = 15.0
output_per_million_usd = 75.0
context_window = 200000

[models.rate]
requests = 20
window = "1m"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "models.yaml", yamlRegistry)

	specs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}

	sonnet := specs[0]
	if sonnet.Name != "sonnet" {
		t.Errorf("Name = %q, want sonnet", sonnet.Name)
	}
	if sonnet.Pricing.InputPerToken != PerMillionUSD(3.0) {
		t.Errorf("InputPerToken = %d, want %d", sonnet.Pricing.InputPerToken, PerMillionUSD(3.0))
	}
	if sonnet.Rate.Window != time.Minute {
		t.Errorf("Window = %v, want 1m", sonnet.Rate.Window)
	}

	haiku := specs[1]
	if haiku.Rate.MaxWait != 30*time.Second {
		t.Errorf("MaxWait = %v, want 30s", haiku.Rate.MaxWait)
	}
	if !haiku.BilledOnFailure {
		t.Error("haiku should be billed on failure")
	}
}

func TestLoadFileTOML(t *testing.T) {
	path := writeFile(t, "models.toml", tomlRegistry)

	specs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	if specs[0].Name != "opus" {
		t.Errorf("Name = %q, want opus", specs[0].Name)
	}
	if specs[0].Rate.Requests != 20 {
		t.Errorf("Requests = %d, want 20", specs[0].Rate.Requests)
	}
	if specs[0].Pricing.OutputPerToken != PerMillionUSD(75.0) {
		t.Errorf("OutputPerToken = %d", specs[0].Pricing.OutputPerToken)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "models.json", "{}")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for unsupported extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile("/nonexistent/models.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, "models.yaml", `
models:
  - name: bad
    provider: p
    model: m
    rate:
      requests: 1
      window: sixty
`)
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for bad duration")
		}
	})
}

func TestRegistryLoadFile(t *testing.T) {
	path := writeFile(t, "models.yaml", yamlRegistry)

	r := NewRegistry()
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !r.Has("sonnet") || !r.Has("haiku") {
		t.Error("expected sonnet and haiku to be registered")
	}

	// Loading the same file again hits the duplicate check.
	if err := r.LoadFile(path); err == nil {
		t.Error("expected duplicate error on second load")
	}
}

func TestRegistryWatchAddsNewModels(t *testing.T) {
	path := writeFile(t, "models.yaml", yamlRegistry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRegistry()
	if err := r.Watch(ctx, path); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if !r.Has("sonnet") {
		t.Fatal("initial load should register sonnet")
	}

	updated := yamlRegistry + `
  - name: opus
    provider: openrouter
    model: anthropic/claude-opus-4.6
    input_per_million_usd: 15.0
    output_per_million_usd: 75.0
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for !r.Has("opus") {
		select {
		case <-deadline:
			t.Fatal("opus was not picked up from the updated file")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
