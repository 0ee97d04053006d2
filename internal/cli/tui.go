package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/tapesched/pkg/pipeline"
	"github.com/matzehuels/tapesched/pkg/report"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// StepListModel - Interactive visit order browser
// =============================================================================

// StepListModel is the bubbletea model that lists the visits of a schedule
// with the seek cost of each step.
type StepListModel struct {
	Result *pipeline.Result
	Cursor int
	Height int
	Offset int

	// cumulative[i] is the seek cost spent up to and including step i.
	cumulative []uint64
}

// NewStepListModel creates a list model over the steps of res.
func NewStepListModel(res *pipeline.Result) StepListModel {
	cum := make([]uint64, len(res.Steps))
	var total uint64
	for i, s := range res.Steps {
		total += uint64(s.Seek)
		cum[i] = total
	}
	return StepListModel{Result: res, Height: 15, cumulative: cum}
}

func (m StepListModel) Init() tea.Cmd {
	return nil
}

func (m StepListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.Result.Steps)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.moveTo(m.Cursor - 1)
		case "down", "j":
			m.moveTo(m.Cursor + 1)
		case "pgup":
			m.moveTo(m.Cursor - m.Height)
		case "pgdown":
			m.moveTo(m.Cursor + m.Height)
		case "home", "g":
			m.moveTo(0)
		case "end", "G":
			m.moveTo(n - 1)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
		m.moveTo(m.Cursor)
	}
	return m, nil
}

// moveTo places the cursor at i, clamped to the list, and scrolls it into
// view.
func (m *StepListModel) moveTo(i int) {
	n := len(m.Result.Steps)
	m.Cursor = max(min(i, n-1), 0)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m StepListModel) View() string {
	var b strings.Builder
	res := m.Result

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s  cost %s", res.Dataset, formatCost(res.Schedule.Cost))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(res.Steps))
	b.WriteString(stepTable(res.Steps[m.Offset:end], m.cumulative[m.Offset:end], m.Cursor-m.Offset))
	b.WriteString("\n")

	if len(res.Steps) > 0 {
		s := res.Steps[m.Cursor]
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  from %s to %s, then read to lpos %d",
			s.From, s.Start, s.End.LPos)))
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(res.Steps))))
	return b.String()
}

// stepTable renders steps as a table. The row at selected is highlighted;
// a negative selected highlights nothing.
func stepTable(steps []report.Step, cumulative []uint64, selected int) string {
	rows := make([][]string, len(steps))
	for i, s := range steps {
		cursor := "  "
		if i == selected {
			cursor = "▸ "
		}
		rows[i] = []string{
			cursor,
			strconv.Itoa(s.Position + 1),
			strconv.FormatUint(uint64(s.ID), 10),
			strconv.FormatUint(uint64(s.Start.Wrap), 10),
			fmt.Sprintf("%d → %d", s.Start.LPos, s.End.LPos),
			strconv.FormatUint(uint64(s.Seek), 10),
			strconv.FormatUint(uint64(s.Read), 10),
			strconv.FormatUint(cumulative[i], 10),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "id", "wrap", "lpos", "seek", "read", "seek total").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case row == selected:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case col == 5:
				return StyleNumber
			default:
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
		}).
		Render()
}
