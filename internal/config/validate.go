package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateAnimate(); err != nil {
		return err
	}
	if err := c.validateDoc(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendRedis:
	case BackendSnapshot:
		if c.Store.SnapshotPath == "" {
			return errors.New("store.snapshot_path must be set when store.backend is snapshot")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q", c.Store.Backend)
	}
	if c.Store.Port < 1 || c.Store.Port > 65535 {
		return fmt.Errorf("store.port must be between 1 and 65535, got %d", c.Store.Port)
	}
	if c.Store.DB < 0 {
		return errors.New("store.db must be >= 0")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.MaxWorkers < 1 {
		return errors.New("render.max_workers must be >= 1")
	}
	return nil
}

func (c *Config) validateAnimate() error {
	if c.Animate.Delay < 0 {
		return errors.New("animate.delay must be >= 0")
	}
	if strings.ContainsAny(c.Animate.FramesPrefix, `/\`) {
		return errors.New("animate.frames_prefix must not contain path separators")
	}
	return nil
}

func (c *Config) validateDoc() error {
	if strings.ContainsAny(c.Doc.ImagePrefix, `/\`) {
		return errors.New("doc.image_prefix must not contain path separators")
	}
	if strings.ContainsAny(c.Doc.Fence, "` \t\r\n") {
		return errors.New("doc.fence must be a single word without backticks")
	}
	switch c.Doc.QueryLanguage {
	case "expr", "cue", "starlark":
	default:
		return fmt.Errorf("doc.query_language: unsupported value %q", c.Doc.QueryLanguage)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
