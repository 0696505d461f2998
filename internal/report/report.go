package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bespoke/internal/fileutil"
)

// Report summarizes one tool run.
type Report struct {
	RunID      string    `yaml:"run_id"`
	Tool       string    `yaml:"tool"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Output     string    `yaml:"output,omitempty"`
	Sources    []Source  `yaml:"sources"`
	Blocks     []Block   `yaml:"blocks,omitempty"`
	Renders    []Render  `yaml:"renders"`
	Failures   int       `yaml:"failures"`
}

// Source is a consumed source and the image it was assigned.
type Source struct {
	Index    int    `yaml:"index"`
	Key      string `yaml:"key"`
	Filename string `yaml:"filename"`
}

// Block is the outcome of one annotated block.
type Block struct {
	Block   int    `yaml:"block"`
	Outcome string `yaml:"outcome"`
	Source  string `yaml:"source,omitempty"`
	Index   *int   `yaml:"index,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// Render is the outcome of rendering one source.
type Render struct {
	Index     int     `yaml:"index"`
	Source    string  `yaml:"source"`
	Filename  string  `yaml:"filename"`
	Seconds   float64 `yaml:"seconds"`
	Succeeded bool    `yaml:"succeeded"`
	Error     string  `yaml:"error,omitempty"`
}

// Write encodes r as YAML at path.
func Write(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Read decodes a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}
