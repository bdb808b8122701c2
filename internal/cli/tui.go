package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
)

// =============================================================================
// Renderable Rows
// =============================================================================

// renderableRow describes one renderable element for display.
type renderableRow struct {
	Path     string
	Category string
	Type     string
	Graph    string
}

// renderableRows collects display rows for the given elements.
func renderableRows(elements []*mtlx.Element) []renderableRow {
	rows := make([]renderableRow, len(elements))
	for i, e := range elements {
		row := renderableRow{Path: e.NamePath(), Category: e.Category, Type: e.Type()}
		if p := e.Parent(); p != nil && p.Category == mtlx.CategoryNodeGraph {
			row.Graph = p.Name()
		}
		if row.Type == "" {
			row.Type = "-"
		}
		if row.Graph == "" {
			row.Graph = "-"
		}
		rows[i] = row
	}
	return rows
}

// renderableTable renders rows as a static table. cursor marks the
// highlighted row, or -1 for none.
func renderableTable(rows []renderableRow, offset, end, cursor int) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	data := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		r := rows[i]
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		data = append(data, []string{mark, r.Path, r.Category, r.Type, r.Graph})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Element", "Category", "Type", "Graph").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle()
			if col == 3 || col == 4 {
				base = base.Foreground(colorDim)
			}
			if offset+row == cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})
	return t.Render()
}

// =============================================================================
// RenderableListModel - Interactive element selection
// =============================================================================

// RenderableListModel is the bubbletea model for interactive selection of a
// renderable element.
type RenderableListModel struct {
	Rows     []renderableRow
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewRenderableListModel creates a new renderable list model.
func NewRenderableListModel(rows []renderableRow) RenderableListModel {
	return RenderableListModel{Rows: rows, Height: 15}
}

func (m RenderableListModel) Init() tea.Cmd {
	return nil
}

func (m RenderableListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		case "enter":
			if len(m.Rows) == 0 {
				return m, nil
			}
			m.Selected = m.Rows[m.Cursor].Path
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m RenderableListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Renderable Element"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Rows))
	b.WriteString(renderableTable(m.Rows, m.Offset, end, m.Cursor))
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))

	return b.String()
}
