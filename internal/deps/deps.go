package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"bespoke/internal/config"
)

// Tool names accepted by Requirements.
const (
	ToolAnimate = "animate"
	ToolDoc     = "doc"
)

// Requirement defines an external program a bespoke tool invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Requirements lists the programs tool needs under cfg. The document tool
// only renders; the animation tool also converts and assembles frames.
func Requirements(cfg *config.Config, tool string) []Requirement {
	reqs := []Requirement{
		{Name: "keli", Command: cfg.Tools.Keli, Description: "Renders source artifacts to images"},
	}
	if tool == ToolAnimate {
		reqs = append(reqs,
			Requirement{Name: "convert", Command: cfg.Tools.Convert, Description: "Converts rendered stills to GIF frames"},
			Requirement{Name: "gifsicle", Command: cfg.Tools.Gifsicle, Description: "Assembles and resizes the animation"},
		)
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// Missing returns the required, unavailable entries of statuses.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
