package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// errPickCanceled is returned when the user exits the picker without choosing
var errPickCanceled = errors.New("selection canceled")

// pickItem implements list.Item for the failed-action picker
type pickItem struct {
	index       int
	title       string
	description string
}

func (i pickItem) Title() string       { return i.title }
func (i pickItem) Description() string { return i.description }
func (i pickItem) FilterValue() string { return i.title + " " + i.description }

// pickModel is the bubbletea model for the picker
type pickModel struct {
	list     list.Model
	selected pickItem
	quitting bool
	canceled bool
}

func (m pickModel) Init() tea.Cmd {
	return nil
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(pickItem); ok {
				m.selected = item
				m.quitting = true
				return m, tea.Quit
			}
		case "q", "esc", "ctrl+c":
			m.canceled = true
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 2)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// pickFailedAction shows an interactive picker over the failed actions and
// returns the one the user selects. Requires an interactive terminal.
func pickFailedAction(failed []failedAction) (failedAction, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return failedAction{}, errors.New(
			"--pick requires an interactive terminal; drop the flag to analyze all failed actions")
	}

	items := make([]list.Item, 0, len(failed))
	for i, fa := range failed {
		desc := fa.step
		if fa.action.RunTimeMillis > 0 {
			desc += " • " + fa.action.Duration().String()
		}
		items = append(items, pickItem{
			index:       i,
			title:       fa.action.Name,
			description: desc,
		})
	}

	selected, err := runPicker(items, "Select Failed Action")
	if err != nil {
		return failedAction{}, err
	}
	return failed[selected.index], nil
}

func runPicker(items []list.Item, title string) (pickItem, error) {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("39")).
		Foreground(lipgloss.Color("39")).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("241"))

	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Background(lipgloss.Color("39")).
		Foreground(lipgloss.Color("0")).
		Padding(0, 1)

	m := pickModel{list: l}
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return pickItem{}, fmt.Errorf("picker failed: %w", err)
	}

	result, ok := finalModel.(pickModel)
	if !ok {
		return pickItem{}, errors.New("unexpected picker state")
	}
	if result.canceled {
		return pickItem{}, errPickCanceled
	}
	return result.selected, nil
}
