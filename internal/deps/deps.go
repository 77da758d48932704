package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediaconv/internal/config"
	"mediaconv/internal/services"
)

// Requirement defines an external binary mediaconv relies on.
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
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured strategy needs.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return RequirementsFor(cfg.StrategyKind(), cfg)
}

// RequirementsFor lists the binaries strategy kind needs under cfg.
func RequirementsFor(kind string, cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{{
		Name:        "FFprobe",
		Command:     cfg.ProberBinary(),
		Description: "Required for media inspection",
	}}
	switch kind {
	case config.StrategyDrapto:
		reqs = append(reqs, Requirement{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Used by Drapto for encoding",
		})
	default:
		reqs = append(reqs, Requirement{
			Name:        "FFmpeg",
			Command:     cfg.EncoderBinary(),
			Description: "Required for conversion",
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
// exec.LookPath searches PATH for bare names and checks that explicit paths
// are executable.
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
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Resolved = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify returns an error wrapping services.ErrExternalToolNotFound naming
// every required dependency that is unavailable.
func Verify(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrExternalToolNotFound, "startup", "dependencies", strings.Join(missing, "; "), nil)
}
