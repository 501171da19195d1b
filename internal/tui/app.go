// Package tui is the interactive contract browser behind `valobj browse`.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/valobj/contract"
)

// Synthesizer turns a contract into a value type and returns its name.
type Synthesizer func(*contract.Contract) (string, error)

type contractItem struct {
	contract *contract.Contract
	err      error
}

func (i contractItem) Title() string { return i.contract.QualifiedName() }

func (i contractItem) Description() string {
	count := len(contract.Inspect(i.contract).Attributes)
	state := "valid"
	if i.err != nil {
		state = "invalid"
	}
	return fmt.Sprintf("%d attributes · %s", count, state)
}

func (i contractItem) FilterValue() string { return i.contract.QualifiedName() }

// synthesizedMsg reports the outcome of an enter press.
type synthesizedMsg struct {
	contract string
	typeName string
	err      error
}

// App lists contracts on the left and the selected shape on the right.
type App struct {
	list       list.Model
	synthesize Synthesizer
	width      int
	height     int
	status     string
	statusErr  bool
}

// NewApp builds the browser over contracts. synthesize may be nil, in which
// case enter only reports the validation verdict.
func NewApp(contracts []*contract.Contract, synthesize Synthesizer) *App {
	items := make([]list.Item, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, contractItem{contract: c, err: contract.Validate(c)})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Contracts"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return &App{list: l, synthesize: synthesize}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetSize(a.listWidth(), max(5, msg.Height-4))
		return a, nil
	case synthesizedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("%s: %v", msg.contract, msg.err)
			a.statusErr = true
		} else {
			a.status = fmt.Sprintf("%s → %s", msg.contract, msg.typeName)
			a.statusErr = false
		}
		return a, nil
	case tea.KeyMsg:
		if a.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter":
			return a, a.synthesizeSelected()
		}
	}
	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) synthesizeSelected() tea.Cmd {
	item, ok := a.list.SelectedItem().(contractItem)
	if !ok {
		return nil
	}
	c, validation := item.contract, item.err
	synthesize := a.synthesize
	return func() tea.Msg {
		if validation != nil {
			return synthesizedMsg{contract: c.QualifiedName(), err: validation}
		}
		if synthesize == nil {
			return synthesizedMsg{contract: c.QualifiedName(), typeName: "eligible"}
		}
		name, err := synthesize(c)
		return synthesizedMsg{contract: c.QualifiedName(), typeName: name, err: err}
	}
}

// Selected returns the highlighted contract, if any.
func (a *App) Selected() *contract.Contract {
	item, ok := a.list.SelectedItem().(contractItem)
	if !ok {
		return nil
	}
	return item.contract
}

func (a *App) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).Render("valobj")
	left := a.list.View()
	right := Box(RenderShape(a.Selected(), a.detailWidth()-4), a.detailWidth())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)

	footer := mutedStyle.Render("enter synthesize · / filter · q quit")
	if a.status != "" {
		style := okStyle
		if a.statusErr {
			style = badStyle
		}
		footer = style.Render(a.status) + "\n" + footer
	}
	return strings.Join([]string{header, body, footer}, "\n")
}

func (a *App) listWidth() int {
	if a.width <= 0 {
		return 40
	}
	return max(24, a.width*2/5)
}

func (a *App) detailWidth() int {
	if a.width <= 0 {
		return 60
	}
	return max(24, a.width-a.listWidth()-2)
}
