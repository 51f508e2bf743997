package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/heapmeter/pkg/meter"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// StatsModel - Interactive per-type statistics browser
// =============================================================================

// StatsModel is the bubbletea model for browsing measurement results.
type StatsModel struct {
	Rows   []meter.TypeStat
	Total  uint64
	Cursor int
	Height int
	Offset int
}

// NewStatsModel creates a stats browser over the given rows.
func NewStatsModel(rows []meter.TypeStat, total uint64) StatsModel {
	return StatsModel{
		Rows:   rows,
		Total:  total,
		Height: 15,
	}
}

func (m StatsModel) Init() tea.Cmd {
	return nil
}

func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "g":
			m.Cursor, m.Offset = 0, 0
		case "G":
			m.Cursor = len(m.Rows) - 1
			if m.Cursor >= m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m StatsModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Retained Memory by Type"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G jump  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		share := "—"
		if m.Total > 0 {
			share = fmt.Sprintf("%.1f%%", 100*float64(r.Bytes)/float64(m.Total))
		}
		rows = append(rows, []string{cursor, r.Type, fmt.Sprintf("%d", r.Count), meter.HumanBytes(r.Bytes), share})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Type", "Blocks", "Bytes", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col >= 2 {
				return StyleNumber
			}
			return StyleValue
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  total %s · [%d/%d]",
		meter.HumanBytes(m.Total), m.Cursor+1, len(m.Rows))))

	return b.String()
}

// browseStats runs the interactive stats browser until the user quits.
func browseStats(rows []meter.TypeStat, total uint64) error {
	if len(rows) == 0 {
		printInfo("Nothing to browse")
		return nil
	}
	_, err := tea.NewProgram(NewStatsModel(rows, total)).Run()
	return err
}
