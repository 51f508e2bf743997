package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/heapmeter/pkg/meter"
)

func statsFixture() StatsModel {
	return NewStatsModel([]meter.TypeStat{
		{Type: "map[string]any", Count: 3, Bytes: 3072},
		{Type: "string", Count: 10, Bytes: 1024},
		{Type: "[]any", Count: 2, Bytes: 512},
	}, 4608)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStatsModelNavigation(t *testing.T) {
	m := statsFixture()

	next, _ := m.Update(key("j"))
	m = next.(StatsModel)
	if m.Cursor != 1 {
		t.Errorf("cursor after j = %d, want 1", m.Cursor)
	}

	next, _ = m.Update(key("G"))
	m = next.(StatsModel)
	if m.Cursor != 2 {
		t.Errorf("cursor after G = %d, want 2", m.Cursor)
	}

	// Moving past the last row stays put.
	next, _ = m.Update(key("j"))
	m = next.(StatsModel)
	if m.Cursor != 2 {
		t.Errorf("cursor past end = %d, want 2", m.Cursor)
	}

	next, _ = m.Update(key("g"))
	m = next.(StatsModel)
	if m.Cursor != 0 || m.Offset != 0 {
		t.Errorf("cursor/offset after g = %d/%d, want 0/0", m.Cursor, m.Offset)
	}
}

func TestStatsModelQuit(t *testing.T) {
	m := statsFixture()
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if msg := cmd(); msg == nil {
		t.Error("q command produced no message")
	}
}

func TestStatsModelView(t *testing.T) {
	m := statsFixture()
	view := m.View()

	for _, want := range []string{"Retained Memory by Type", "map[string]any", "3.00 KiB", "66.7%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStatsModelWindowResize(t *testing.T) {
	m := statsFixture()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(StatsModel)
	if m.Height != 5 {
		t.Errorf("Height after small resize = %d, want clamp to 5", m.Height)
	}
}
