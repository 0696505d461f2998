package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bespoke/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Frames go to <base>/frames and document images to <base>/images.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Animate.FramesDir = filepath.Join(base, "frames")
	cfgVal.Doc.ImagesDir = filepath.Join(base, "images")
	if err := os.MkdirAll(cfgVal.Animate.FramesDir, 0o755); err != nil {
		t.Fatalf("mkdir frames dir: %v", err)
	}

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

// WithMaxWorkers overrides the render pool size on the test config.
func WithMaxWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.MaxWorkers = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, keli, convert, and gifsicle are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"keli", "convert", "gifsicle"}
		}
		for _, name := range names {
			writeScript(b, name, "exit 0\n")
		}
		prependPath(b)
	}
}

// WithBinaryScript writes a shell script named name whose body is script and
// prepends it to PATH.
func WithBinaryScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		writeScript(b, name, script)
		prependPath(b)
	}
}

func binDir(b *configBuilder) string {
	return filepath.Join(b.baseDir, "bin")
}

func writeScript(b *configBuilder, name, body string) {
	dir := binDir(b)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
}

func prependPath(b *configBuilder) {
	dir := binDir(b)
	oldPath := os.Getenv("PATH")
	if filepath.SplitList(oldPath)[0] == dir {
		return
	}
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Animate.FramesDir)
}
