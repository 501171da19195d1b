package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/valobj/contract"
)

func testContracts() []*contract.Contract {
	base := &contract.Contract{Name: "Named", Package: "shapes", Attributes: []contract.Attribute{{Name: "Name", Type: "string"}}}
	return []*contract.Contract{
		{
			Name:       "Point",
			Package:    "shapes",
			Extends:    []*contract.Contract{base},
			Attributes: []contract.Attribute{{Name: "X", Type: "int"}, {Name: "Y", Type: "int"}},
		},
		{
			Name:       "Counter",
			Package:    "shapes",
			Attributes: []contract.Attribute{{Name: "Count", Type: "int", Mutable: true}},
		},
	}
}

func TestItemsDescribeValidity(t *testing.T) {
	app := NewApp(testContracts(), nil)
	items := app.list.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	point := items[0].(contractItem)
	if point.Title() != "shapes.Point" || point.Description() != "3 attributes · valid" {
		t.Fatalf("unexpected point item %q / %q", point.Title(), point.Description())
	}
	counter := items[1].(contractItem)
	if !strings.HasSuffix(counter.Description(), "invalid") {
		t.Fatalf("mutable contract must be listed as invalid, got %q", counter.Description())
	}
}

func TestEnterSynthesizesSelected(t *testing.T) {
	var got *contract.Contract
	app := NewApp(testContracts(), func(c *contract.Contract) (string, error) {
		got = c
		return c.Name + "Value", nil
	})
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = runCommands(t, model, cmd)
	if got == nil || got.Name != "Point" {
		t.Fatalf("expected Point to be synthesized, got %v", got)
	}
	if app.statusErr || !strings.Contains(app.status, "PointValue") {
		t.Fatalf("unexpected status %q", app.status)
	}
}

func TestEnterOnInvalidContractSkipsSynthesis(t *testing.T) {
	called := false
	app := NewApp(testContracts(), func(*contract.Contract) (string, error) {
		called = true
		return "", nil
	})
	app.list.Select(1)
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = runCommands(t, model, cmd)
	if called {
		t.Fatalf("invalid contract must not reach synthesis")
	}
	if !app.statusErr || !strings.Contains(app.status, "shapes.Counter") {
		t.Fatalf("unexpected status %q", app.status)
	}
}

func TestSynthesisFailureIsReported(t *testing.T) {
	app := NewApp(testContracts(), func(*contract.Contract) (string, error) {
		return "", errors.New("boom")
	})
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = runCommands(t, model, cmd)
	if !app.statusErr || !strings.Contains(app.status, "boom") {
		t.Fatalf("unexpected status %q", app.status)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
	} {
		app := NewApp(testContracts(), nil)
		_, cmd := app.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestViewShowsSelectedShape(t *testing.T) {
	app := NewApp(testContracts(), nil)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := model.View()
	for _, want := range []string{"Contracts", "shapes.Point", "Attributes (3)", "Extends: shapes.Named", "eligible for synthesis"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderShapeMarksWritableAttributes(t *testing.T) {
	out := RenderShape(testContracts()[1], 60)
	if !strings.Contains(out, "writable") || !strings.Contains(out, string(contract.KindMutableAttribute)) {
		t.Fatalf("unexpected render:\n%s", out)
	}
	if RenderShape(nil, 60) == "" {
		t.Fatalf("nil contract should render a placeholder")
	}
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}
