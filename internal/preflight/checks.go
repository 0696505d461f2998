package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bespoke/internal/config"
	"bespoke/internal/deps"
	"bespoke/internal/sources"
)

const storeCheckTimeout = 5 * time.Second

// CheckStore verifies the source store answers within a short timeout.
func CheckStore(ctx context.Context, name string, store sources.Pinger) Result {
	if store == nil {
		return Result{Name: name, Detail: "store unavailable"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs tool needs. The deps
// command and RunAll share it so the requirement list lives in one place.
func CheckSystemDeps(cfg *config.Config, tool string) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg, tool))
}
