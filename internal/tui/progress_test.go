package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressModelTracksMessages(t *testing.T) {
	m := newProgressModel(nil)
	assert.Contains(t, m.View(), "Waiting for work")

	_, cmd := m.Update(ProgressMsg{Label: "movie", Done: 5, Total: 20})
	assert.Nil(t, cmd)
	assert.Equal(t, 0.25, m.percent())

	view := m.View()
	assert.Contains(t, view, "movie")
	assert.Contains(t, view, "5/20")
}

func TestProgressModelIgnoresStaleCounts(t *testing.T) {
	m := newProgressModel(nil)
	m.Update(ProgressMsg{Label: "movie", Done: 7, Total: 10})
	m.Update(ProgressMsg{Label: "movie", Done: 6, Total: 10})
	assert.Equal(t, 7, m.done)

	// A new fan-out starts from zero.
	m.Update(ProgressMsg{Label: "season", Done: 1, Total: 40})
	assert.Equal(t, 1, m.done)
	assert.Equal(t, "season", m.label)
}

func TestProgressModelFormatsLargeCounts(t *testing.T) {
	m := newProgressModel(nil)
	m.Update(ProgressMsg{Label: "episode translations", Done: 1500, Total: 25000})
	assert.Contains(t, m.View(), "1,500/25,000")
}

func TestProgressModelQuitCancels(t *testing.T) {
	cancelled := false
	m := newProgressModel(func() { cancelled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.Contains(t, m.View(), "Stopping")
}

func TestProgressModelResizesBar(t *testing.T) {
	m := newProgressModel(nil)
	m.Update(tea.WindowSizeMsg{Width: 70, Height: 20})
	assert.Equal(t, 14, m.bar.Width)

	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, minBarWidth, m.bar.Width)

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 20})
	assert.Equal(t, defaultBarWidth, m.bar.Width)
}

func TestProgressRunsAndStops(t *testing.T) {
	p := StartProgress(nil, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	p.Report("movie", 1, 2)
	p.Report("movie", 2, 2)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("progress view did not stop")
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
