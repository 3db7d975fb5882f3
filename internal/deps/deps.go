// Package deps reports whether the external tools autoprint shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"autoprint/internal/config"
)

// Requirement defines an external dependency autoprint relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries the configured printer and network gates
// invoke. The SSID probe is only required when an SSID is configured.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{Name: "lp", Command: cfg.Printer.LPBinary, Description: "Submits print jobs to CUPS"},
		{Name: "lpstat", Command: cfg.Printer.LPStatBinary, Description: "Reports printer and job state"},
		{Name: "cancel", Command: cfg.Printer.CancelBinary, Description: "Withdraws timed-out print jobs", Optional: true},
	}
	if strings.TrimSpace(cfg.Network.Interface) != "" {
		reqs = append(reqs, Requirement{
			Name:        "ssid probe",
			Command:     cfg.Network.SSIDProbeBinary,
			Description: "Reads the associated wireless network",
			Optional:    strings.TrimSpace(cfg.Network.SSID) == "",
		})
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
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
