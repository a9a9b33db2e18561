// Package tui is a terminal inspector for compilation results: the
// BASIC source, the generated assembly and the symbol map side by side.
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fragarco/basc/codegen"
)

// Inspector represents the result browser
type Inspector struct {
	App        *tview.Application
	MainLayout *tview.Flex

	SourceView   *tview.TextView
	AssemblyView *tview.TextView
	SymbolView   *tview.TextView
	StatusBar    *tview.TextView

	focusOrder []tview.Primitive
	focusIndex int
}

// NewInspector creates an inspector over a compilation result
func NewInspector(filename, source string, result *codegen.Result) *Inspector {
	ins := &Inspector{
		App: tview.NewApplication(),
	}

	ins.initializeViews(filename, source, result)
	ins.buildLayout()
	ins.setupKeyBindings()

	return ins
}

func (ins *Inspector) initializeViews(filename, source string, result *codegen.Result) {
	ins.SourceView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(false)
	ins.SourceView.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", filename))
	ins.SourceView.SetText(source)

	ins.AssemblyView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(false)
	ins.AssemblyView.SetBorder(true).SetTitle(" Assembly ")
	ins.AssemblyView.SetText(result.Assembly)

	ins.SymbolView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(false)
	ins.SymbolView.SetBorder(true).SetTitle(" Symbols ")
	ins.SymbolView.SetText(result.Map)

	ins.StatusBar = tview.NewTextView().
		SetDynamicColors(false).
		SetWrap(false)
	ins.StatusBar.SetText(" Tab: switch panel   arrows: scroll   q/Esc: quit")
}

func (ins *Inspector) buildLayout() {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ins.AssemblyView, 0, 3, false).
		AddItem(ins.SymbolView, 0, 1, false)

	body := tview.NewFlex().
		AddItem(ins.SourceView, 0, 1, true).
		AddItem(right, 0, 2, false)

	ins.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(ins.StatusBar, 1, 0, false)

	ins.focusOrder = []tview.Primitive{ins.SourceView, ins.AssemblyView, ins.SymbolView}
}

func (ins *Inspector) setupKeyBindings() {
	ins.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape:
			ins.App.Stop()
			return nil
		case event.Key() == tcell.KeyTab:
			ins.focusIndex = (ins.focusIndex + 1) % len(ins.focusOrder)
			ins.App.SetFocus(ins.focusOrder[ins.focusIndex])
			return nil
		case event.Rune() == 'q':
			ins.App.Stop()
			return nil
		}
		return event
	})
}

// Run starts the inspector and blocks until the user quits
func (ins *Inspector) Run() error {
	return ins.App.SetRoot(ins.MainLayout, true).SetFocus(ins.SourceView).Run()
}

// Run opens the inspector for a compilation result
func Run(filename, source string, result *codegen.Result) error {
	return NewInspector(filename, source, result).Run()
}
