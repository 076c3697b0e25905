// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"shoebox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The geocoder is disabled so tests never reach the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Geocoder.Enabled = false
	cfgVal.Geocoder.CacheFile = filepath.Join(base, "data", "geocache.json")
	cfgVal.Workflow.QueuePollInterval = 10 * time.Millisecond
	cfgVal.Workflow.ProgressFlushFiles = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRulesFile points the config at a rules file.
func WithRulesFile(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Rules.Path = path
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = count
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
