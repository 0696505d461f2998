package preflight

import (
	"context"
	"os"
	"path/filepath"

	"bespoke/internal/config"
	"bespoke/internal/deps"
	"bespoke/internal/sources"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for tool: external binaries, the
// directory images are written to, and store reachability when store can
// be pinged.
func RunAll(ctx context.Context, cfg *config.Config, tool string, store sources.Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg, tool) {
		results = append(results, fromStatus(status))
	}

	switch tool {
	case deps.ToolAnimate:
		results = append(results, CheckDirectoryAccess("Frames directory", cfg.Animate.FramesDir))
	case deps.ToolDoc:
		results = append(results, checkImagesDir(cfg))
	}

	if store != nil {
		results = append(results, CheckStore(ctx, "Source store", store))
	}
	return results
}

// checkImagesDir checks the images directory, or its parent when the
// directory has not been created yet.
func checkImagesDir(cfg *config.Config) Result {
	dir, err := cfg.ImagesDir()
	if err != nil {
		return Result{Name: "Images directory", Detail: err.Error()}
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		result := CheckDirectoryAccess("Images directory", filepath.Dir(dir))
		if result.Passed {
			result.Detail = dir + " (will be created)"
		}
		return result
	}
	return CheckDirectoryAccess("Images directory", dir)
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional}
	switch {
	case status.Available:
		result.Detail = status.Path
	case status.Optional:
		result.Detail = status.Detail + " (optional)"
	default:
		result.Detail = status.Detail
	}
	return result
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
