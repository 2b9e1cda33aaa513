// Package review is the terminal screen for confirming extracted
// candidates before they are stored.
package review

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultPreselect is the confidence at which candidates start selected.
const DefaultPreselect = 0.8

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.All, k.None, k.Confirm, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, k.ShortHelp()}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
	None:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "none")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(12)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

// Model is the bubbletea model of the review screen.
type Model struct {
	items     []Item
	cursor    int
	confirmed bool
	quitting  bool

	confidence progress.Model
	help       help.Model
}

func NewModel(items []Item) Model {
	return Model{
		items: items,
		confidence: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		help: help.New(),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(km, keys.Confirm):
		m.confirmed = true
		m.quitting = true
		return m, tea.Quit
	case key.Matches(km, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.Toggle):
		if len(m.items) > 0 {
			m.items[m.cursor].Selected = !m.items[m.cursor].Selected
		}
	case key.Matches(km, keys.All):
		m.selectAll(true)
	case key.Matches(km, keys.None):
		m.selectAll(false)
	}
	return m, nil
}

func (m *Model) selectAll(v bool) {
	for i := range m.items {
		m.items[i].Selected = v
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Review extracted context "))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d selected", m.selectedCount(), len(m.items))))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("No candidates found."))
		b.WriteString("\n")
	}
	for i, it := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		check := "[ ]"
		if it.Selected {
			check = selectedStyle.Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s %s\n",
			cursor, check,
			categoryStyle.Render(string(it.Category)),
			m.confidence.ViewAs(it.Confidence),
			it.Text))
		if i == m.cursor {
			b.WriteString(dimStyle.Render(fmt.Sprintf("      %s · %s · %.2f", it.Pattern, it.Detail, it.Confidence)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return containerStyle.Render(b.String())
}

func (m Model) selectedCount() int {
	n := 0
	for _, it := range m.items {
		if it.Selected {
			n++
		}
	}
	return n
}

// Confirmed reports whether the user saved, and the items as left on screen.
func (m Model) Confirmed() (bool, []Item) {
	return m.confirmed, m.items
}

// Run shows the review screen on in/out and returns the items the user
// confirmed. Cancelling returns no items and no error.
func Run(ctx context.Context, items []Item, in io.Reader, out io.Writer) ([]Item, error) {
	p := tea.NewProgram(NewModel(items), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("review screen: %w", err)
	}
	ok, reviewed := final.(Model).Confirmed()
	if !ok {
		return nil, nil
	}
	var selected []Item
	for _, it := range reviewed {
		if it.Selected {
			selected = append(selected, it)
		}
	}
	return selected, nil
}
