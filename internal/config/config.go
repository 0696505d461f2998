package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Store contains connection settings for the source store.
type Store struct {
	Backend         string `toml:"backend"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	SourcesTemplate string `toml:"sources_template"`
	SourceField     string `toml:"source_field"`
	SnapshotPath    string `toml:"snapshot_path"`
}

// Tools names the external programs invoked during a run.
type Tools struct {
	Keli     string `toml:"keli"`
	Convert  string `toml:"convert"`
	Gifsicle string `toml:"gifsicle"`
}

// Render contains configuration for the artifact rendering pool.
type Render struct {
	MaxWorkers int `toml:"max_workers"`
}

// Animate contains configuration for the animation tool.
type Animate struct {
	Delay        int    `toml:"delay"`
	Resize       string `toml:"resize"`
	FramesPrefix string `toml:"frames_prefix"`
	FramesDir    string `toml:"frames_dir"`
	FrameStart   int    `toml:"frame_start"`
	// FrameEnd is nil when the slice runs through the end of the source list.
	FrameEnd *int `toml:"frame_end"`
}

// Doc contains configuration for the document tool.
type Doc struct {
	ImagePrefix   string `toml:"image_prefix"`
	ImagesDir     string `toml:"images_dir"`
	Fence         string `toml:"fence"`
	QueryLanguage string `toml:"query_language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format  string `toml:"format"`
	Level   string `toml:"level"`
	Journal bool   `toml:"journal"`
}

// Config encapsulates all configuration values for bespoke.
//
// Configuration sections by subsystem:
//   - Store: key-value store connection and source list key template
//   - Tools: external renderer, converter, and GIF assembler binaries
//   - Render: worker pool size for parallel rendering
//   - Animate: frame slicing, delay, resize, and temporary frame location
//   - Doc: image prefix and directory, block fence, query language
//   - Logging: log format, level, and journal output
type Config struct {
	Store   Store   `toml:"store"`
	Tools   Tools   `toml:"tools"`
	Render  Render  `toml:"render"`
	Animate Animate `toml:"animate"`
	Doc     Doc     `toml:"doc"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the configuration. Callers that mutate a
// loaded config (for example from command-line flags) run it again afterwards.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// StoreAddr returns the host:port address of the key-value store.
func (c *Config) StoreAddr() string {
	return net.JoinHostPort(c.Store.Host, strconv.Itoa(c.Store.Port))
}

// ImagesDir returns the absolute images directory for the document tool.
func (c *Config) ImagesDir() (string, error) {
	return expandPath(c.Doc.ImagesDir)
}

// EnsureImagesDir creates the document images directory when missing and
// reports whether it had to be created.
func (c *Config) EnsureImagesDir() (string, bool, error) {
	dir, err := c.ImagesDir()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return "", false, fmt.Errorf("images path %q is not a directory", dir)
		}
		return dir, false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create images directory %q: %w", dir, err)
	}
	return dir, true, nil
}

// EnsureFramesDir creates the animation frames directory when missing.
func (c *Config) EnsureFramesDir() error {
	if err := os.MkdirAll(c.Animate.FramesDir, 0o755); err != nil {
		return fmt.Errorf("create frames directory %q: %w", c.Animate.FramesDir, err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
