package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/fileutil"
	"github.com/CHRISHLOH/tmdb-etl/internal/loader"
)

// Status is the outcome of a stage.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StageResult reports one stage.
type StageResult struct {
	Stage      Stage                `yaml:"stage" json:"stage"`
	Status     Status               `yaml:"status" json:"status"`
	Elapsed    time.Duration        `yaml:"elapsed" json:"elapsed_ns"`
	Discovered int                  `yaml:"discovered" json:"discovered"`
	Fetched    int                  `yaml:"fetched" json:"fetched"`
	NotFound   int                  `yaml:"not_found" json:"not_found"`
	Failed     int                  `yaml:"failed" json:"failed"`
	Loaded     int                  `yaml:"rows_loaded" json:"rows_loaded"`
	Dropped    int                  `yaml:"rows_dropped" json:"rows_dropped"`
	Tables     []loader.TableReport `yaml:"tables,omitempty" json:"tables,omitempty"`
	Error      string               `yaml:"error,omitempty" json:"error,omitempty"`
}

// Summary is the end-of-run report.
type Summary struct {
	RunID     string        `yaml:"run_id" json:"run_id"`
	StartedAt time.Time     `yaml:"started_at" json:"started_at"`
	Duration  time.Duration `yaml:"duration" json:"duration_ns"`
	Stages    []StageResult `yaml:"stages" json:"stages"`
}

// Failed reports whether any stage failed.
func (s *Summary) Failed() bool {
	for _, st := range s.Stages {
		if st.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Stage returns the result of stage, if it ran.
func (s *Summary) Stage(stage Stage) (StageResult, bool) {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st, true
		}
	}
	return StageResult{}, false
}

// WriteYAML writes the summary to path.
func (s *Summary) WriteYAML(path string) error {
	if err := fileutil.WriteYAMLFile(s, path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// WriteReport writes the summary as JSON when path ends in .json and as
// YAML otherwise.
func (s *Summary) WriteReport(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := fileutil.WriteJSONFile(s, path); err != nil {
			return fmt.Errorf("failed to write report %s: %w", path, err)
		}
		return nil
	}
	return s.WriteYAML(path)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("254"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	statusStyles = map[Status]lipgloss.Style{
		StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		StatusSkipped: lipgloss.NewStyle().Foreground(lipgloss.Color("247")),
	}
)

var summaryColumns = []string{"STAGE", "STATUS", "ELAPSED", "DISCOVERED", "FETCHED", "DROPPED", "ROWS", "ORPHANS"}

func (st StageResult) cells() []string {
	return []string{
		string(st.Stage),
		string(st.Status),
		st.Elapsed.Round(time.Millisecond).String(),
		humanize.Comma(int64(st.Discovered)),
		humanize.Comma(int64(st.Fetched)),
		humanize.Comma(int64(st.NotFound + st.Failed)),
		humanize.Comma(int64(st.Loaded)),
		humanize.Comma(int64(st.Dropped)),
	}
}

// Render formats the summary as a boxed table for the terminal.
func (s *Summary) Render() string {
	rows := [][]string{summaryColumns}
	for _, st := range s.Stages {
		rows = append(rows, st.cells())
	}

	widths := make([]int, len(summaryColumns))
	for _, row := range rows {
		for j, cell := range row {
			widths[j] = max(widths[j], lipgloss.Width(cell))
		}
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("Run %s finished in %s", s.RunID, s.Duration.Round(time.Millisecond))),
		"",
	}
	for i, row := range rows {
		parts := make([]string, len(row))
		for j, cell := range row {
			padded := fmt.Sprintf("%-*s", widths[j], cell)
			switch {
			case i == 0:
				padded = headerStyle.Render(padded)
			case j == 1:
				padded = statusStyles[Status(cell)].Render(padded)
			}
			parts[j] = padded
		}
		lines = append(lines, strings.Join(parts, "  "))
	}

	for _, st := range s.Stages {
		if st.Error != "" {
			lines = append(lines, "", errorStyle.Render(fmt.Sprintf("%s: %s", st.Stage, st.Error)))
		}
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
