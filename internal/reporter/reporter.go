// Package reporter builds the status report printed by the status command.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/driftshell/driftshell/internal/config"
	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/database"
	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/models"
	"github.com/driftshell/driftshell/internal/shell"
	"github.com/driftshell/driftshell/pkg/utils"
	"github.com/driftshell/driftshell/pkg/window"
)

// DaemonStatus describes the background process
type DaemonStatus struct {
	Running bool   `json:"running" yaml:"running"`
	PID     int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	PIDFile string `json:"pid_file" yaml:"pid_file"`
	Address string `json:"address" yaml:"address"`
}

// Report is a point-in-time view of the shell and its surroundings
type Report struct {
	Daemon        DaemonStatus          `json:"daemon" yaml:"daemon"`
	Bridge        *shell.Status         `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	DisplayServer string                `json:"display_server" yaml:"display_server"`
	Window        *events.WindowChange  `json:"window,omitempty" yaml:"window,omitempty"`
	WindowError   string                `json:"window_error,omitempty" yaml:"window_error,omitempty"`
	Stores        []models.StoreSummary `json:"stores" yaml:"stores"`
	GeneratedAt   time.Time             `json:"generated_at" yaml:"generated_at"`
}

// Reporter gathers a Report. Any dependency may be nil; its section is skipped.
type Reporter struct {
	config   *config.Config
	repo     *database.Repository
	dm       *daemon.Daemon
	detector window.Detector
	client   *http.Client
	now      func() time.Time
}

func New(cfg *config.Config, repo *database.Repository, dm *daemon.Daemon, det window.Detector) *Reporter {
	return &Reporter{
		config:   cfg,
		repo:     repo,
		dm:       dm,
		detector: det,
		client:   &http.Client{Timeout: 2 * time.Second},
		now:      time.Now,
	}
}

// GenerateReport collects the daemon, bridge, window and store sections
func (r *Reporter) GenerateReport(ctx context.Context) (*Report, error) {
	report := &Report{
		DisplayServer: "none",
		Stores:        []models.StoreSummary{},
		GeneratedAt:   r.now(),
	}

	if r.dm != nil {
		running, pid, err := r.dm.IsRunning()
		if err != nil {
			return nil, errors.Wrap(err, "failed to check daemon status")
		}
		report.Daemon = DaemonStatus{
			Running: running,
			PID:     pid,
			PIDFile: r.dm.PIDFile(),
			Address: r.config.Address(),
		}
		if running {
			if status, err := r.fetchBridgeStatus(ctx); err == nil {
				report.Bridge = status
			}
		}
	}

	if r.detector != nil {
		report.DisplayServer = r.detector.GetDisplayServer()
		active, err := r.detector.GetActiveWindow()
		if err != nil {
			report.WindowError = err.Error()
		} else {
			change := events.NewWindowChange(active, r.now().UnixMilli())
			report.Window = &change
		}
	}

	if r.repo != nil {
		stores, err := r.repo.Summary()
		if err != nil {
			return nil, err
		}
		report.Stores = stores
	}

	return report, nil
}

func (r *Reporter) fetchBridgeStatus(ctx context.Context) (*shell.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+r.config.Address()+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("bridge status returned %s", resp.Status)
	}
	var status shell.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.Wrap(err, "failed to decode bridge status")
	}
	return &status, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *Report) string {
	output := "driftshell status\n\n"

	if report.Daemon.Running {
		output += fmt.Sprintf("Daemon:   running (PID: %d)\n", report.Daemon.PID)
		output += fmt.Sprintf("Bridge:   http://%s\n", report.Daemon.Address)
	} else {
		output += "Daemon:   not running\n"
	}
	if b := report.Bridge; b != nil {
		uptime := report.GeneratedAt.Sub(b.StartedAt)
		output += fmt.Sprintf("Uptime:   %s\n", utils.FormatRoundedUnit(int64(uptime.Seconds())))
		output += fmt.Sprintf("Sessions: %d (%d tracking)\n", b.Sessions, b.Tracking)
	}

	output += fmt.Sprintf("Display:  %s\n", report.DisplayServer)
	switch {
	case report.Window != nil:
		w := report.Window
		output += fmt.Sprintf("Window:   %s - %s\n", truncate(w.AppName, 30), truncate(w.WindowTitle, 50))
		output += fmt.Sprintf("Geometry: %dx%d at %d,%d", w.Position.Width, w.Position.Height, w.Position.X, w.Position.Y)
		if w.Position.IsFullScreen {
			output += " (full screen)"
		}
		output += "\n"
	case report.WindowError != "":
		output += fmt.Sprintf("Window:   unavailable (%s)\n", report.WindowError)
	}

	if len(report.Stores) == 0 {
		output += "\nNo stored keys.\n"
		return output
	}

	output += fmt.Sprintf("\n%-30s %10s\n", "Store", "Keys")
	output += fmt.Sprintf("%s\n", "-----------------------------------------")
	for _, s := range report.Stores {
		output += fmt.Sprintf("%-30s %10d\n", truncate(s.Store, 30), s.Entries)
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

// FormatReportYAML formats the report as YAML
func (r *Reporter) FormatReportYAML(report *Report) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal YAML")
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
