package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of a model registry config file.
// Prices are written in USD per million tokens; durations are strings
// like "60s" or "1m".
type registryFile struct {
	Models []fileSpec `yaml:"models" toml:"models"`
}

type fileSpec struct {
	Name                string   `yaml:"name" toml:"name"`
	Provider            string   `yaml:"provider" toml:"provider"`
	Model               string   `yaml:"model" toml:"model"`
	InputPerMillionUSD  float64  `yaml:"input_per_million_usd" toml:"input_per_million_usd"`
	OutputPerMillionUSD float64  `yaml:"output_per_million_usd" toml:"output_per_million_usd"`
	FlatPerRequestUSD   float64  `yaml:"flat_per_request_usd" toml:"flat_per_request_usd"`
	Rate                fileRate `yaml:"rate" toml:"rate"`
	ContextWindow       int      `yaml:"context_window" toml:"context_window"`
	BilledOnFailure     bool     `yaml:"billed_on_failure" toml:"billed_on_failure"`
}

type fileRate struct {
	Requests int    `yaml:"requests" toml:"requests"`
	Window   string `yaml:"window" toml:"window"`
	MaxWait  string `yaml:"max_wait" toml:"max_wait"`
}

func (f fileSpec) toSpec() (Spec, error) {
	spec := Spec{
		Name:     f.Name,
		Provider: f.Provider,
		Model:    f.Model,
		Pricing: Pricing{
			InputPerToken:  PerMillionUSD(f.InputPerMillionUSD),
			OutputPerToken: PerMillionUSD(f.OutputPerMillionUSD),
			FlatPerRequest: USD(f.FlatPerRequestUSD),
		},
		ContextWindow:   f.ContextWindow,
		BilledOnFailure: f.BilledOnFailure,
	}

	spec.Rate.Requests = f.Rate.Requests
	if f.Rate.Window != "" {
		d, err := time.ParseDuration(f.Rate.Window)
		if err != nil {
			return Spec{}, fmt.Errorf("spec %q: parse rate.window: %w", f.Name, err)
		}
		spec.Rate.Window = d
	}
	if f.Rate.MaxWait != "" {
		d, err := time.ParseDuration(f.Rate.MaxWait)
		if err != nil {
			return Spec{}, fmt.Errorf("spec %q: parse rate.max_wait: %w", f.Name, err)
		}
		spec.Rate.MaxWait = d
	}

	return spec, spec.Validate()
}

// LoadFile reads model specs from a YAML (.yaml/.yml) or TOML (.toml) file.
func LoadFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var file registryFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported registry file extension %q", ext)
	}

	specs := make([]Spec, 0, len(file.Models))
	for _, fs := range file.Models {
		spec, err := fs.toSpec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadFile reads a registry config file and registers every spec in it.
// The first duplicate or invalid spec aborts loading.
func (r *Registry) LoadFile(path string) error {
	specs, err := LoadFile(path)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
