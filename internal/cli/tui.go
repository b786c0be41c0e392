package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/state"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// FigureListModel - Interactive figure selection
// =============================================================================

// FigureListModel is the bubbletea model for picking a saved figure.
type FigureListModel struct {
	Figures  []state.FigureState
	Steps    []int
	Cursor   int
	Selected *state.FigureState
	Height   int
	Offset   int
}

// NewFigureListModel creates a figure list over doc.
func NewFigureListModel(doc state.Document, steps []int) FigureListModel {
	return FigureListModel{Figures: doc, Steps: steps, Height: 15}
}

func (m FigureListModel) Init() tea.Cmd {
	return nil
}

func (m FigureListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Figures)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Figures) == 0 {
				return m, nil
			}
			fs := m.Figures[m.Cursor]
			m.Selected = &fs
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m FigureListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Figure"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ render  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Figures))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		fs := m.Figures[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		visible := len(fs.VisibleObjects())
		title := fs.Properties.GetString("title", "")
		if title == "" {
			title = "—"
		}
		rows = append(rows, []string{
			cursor, fs.Figure, title,
			fmt.Sprint(visible), fmt.Sprint(len(fs.Objects) - visible),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Figure", "Title", "Visible", "Hidden").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle()
			if col >= 3 {
				base = base.Foreground(colorGray)
			}
			if m.Offset+row == m.Cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  timesteps: %s", m.Cursor+1, len(m.Figures), formatSteps(m.Steps))))

	return b.String()
}

// =============================================================================
// browse command
// =============================================================================

// browseCommand creates the "browse" command: pick a figure interactively,
// then render it.
func (c *CLI) browseCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "browse <database>",
		Short: "Pick a saved figure interactively and render it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "image", "output format: image, webgl")

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, path, format string) error {
	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	doc, err := s.Store().Figures(ctx)
	if err != nil {
		_ = s.Close(ctx)
		return err
	}
	steps, err := s.Steps(ctx)
	_ = s.Close(ctx)
	if err != nil {
		return err
	}
	if len(doc) == 0 {
		printWarning("No figures saved in %s", path)
		return nil
	}

	final, err := tea.NewProgram(NewFigureListModel(doc, steps), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	m, ok := final.(FigureListModel)
	if !ok || m.Selected == nil {
		return nil
	}
	return c.runShow(ctx, path, m.Selected.Figure, showOpts{format: format, step: -1})
}
