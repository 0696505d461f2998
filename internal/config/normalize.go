package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeTools()
	if err := c.normalizeAnimate(); err != nil {
		return err
	}
	c.normalizeDoc()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	c.Store.Host = strings.TrimSpace(c.Store.Host)
	if c.Store.Host == "" {
		c.Store.Host = defaultStoreHost
	}
	if c.Store.Port == 0 {
		c.Store.Port = defaultStorePort
	}
	if c.Store.Password == "" {
		if value, ok := os.LookupEnv("BESPOKE_REDIS_PASSWORD"); ok {
			c.Store.Password = strings.TrimSpace(value)
		}
	}
	c.Store.SourcesTemplate = strings.TrimSpace(c.Store.SourcesTemplate)
	if c.Store.SourcesTemplate == "" {
		c.Store.SourcesTemplate = defaultSourcesTemplate
	}
	c.Store.SourceField = strings.TrimSpace(c.Store.SourceField)
	if c.Store.SourceField == "" {
		c.Store.SourceField = defaultSourceField
	}
	var err error
	if c.Store.SnapshotPath, err = expandPath(strings.TrimSpace(c.Store.SnapshotPath)); err != nil {
		return fmt.Errorf("store.snapshot_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.Keli = strings.TrimSpace(c.Tools.Keli)
	if c.Tools.Keli == "" {
		c.Tools.Keli = defaultKeliBinary
	}
	c.Tools.Convert = strings.TrimSpace(c.Tools.Convert)
	if c.Tools.Convert == "" {
		c.Tools.Convert = defaultConvertBinary
	}
	c.Tools.Gifsicle = strings.TrimSpace(c.Tools.Gifsicle)
	if c.Tools.Gifsicle == "" {
		c.Tools.Gifsicle = defaultGifsicleBinary
	}
}

func (c *Config) normalizeAnimate() error {
	c.Animate.Resize = strings.TrimSpace(c.Animate.Resize)
	c.Animate.FramesPrefix = strings.TrimSpace(c.Animate.FramesPrefix)
	if c.Animate.FramesPrefix == "" {
		c.Animate.FramesPrefix = defaultFramesPrefix
	}
	if strings.TrimSpace(c.Animate.FramesDir) == "" {
		c.Animate.FramesDir = os.TempDir()
	}
	var err error
	if c.Animate.FramesDir, err = expandPath(strings.TrimSpace(c.Animate.FramesDir)); err != nil {
		return fmt.Errorf("animate.frames_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDoc() {
	c.Doc.ImagePrefix = strings.TrimSpace(c.Doc.ImagePrefix)
	if c.Doc.ImagePrefix == "" {
		c.Doc.ImagePrefix = defaultImagePrefix
	}
	c.Doc.ImagesDir = strings.TrimSpace(c.Doc.ImagesDir)
	if c.Doc.ImagesDir == "" {
		c.Doc.ImagesDir = defaultImagesDir
	}
	c.Doc.Fence = strings.TrimSpace(c.Doc.Fence)
	if c.Doc.Fence == "" {
		c.Doc.Fence = defaultFence
	}
	c.Doc.QueryLanguage = strings.ToLower(strings.TrimSpace(c.Doc.QueryLanguage))
	if c.Doc.QueryLanguage == "" {
		c.Doc.QueryLanguage = defaultQueryLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
