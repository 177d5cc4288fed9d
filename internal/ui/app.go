// Package ui is the terminal panel: a tview view of the latest snapshot with
// single-key controls for refresh, interval, language and the settings page.
package ui

import (
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/browser"
	"github.com/rivo/tview"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/cursorapi"
	"github.com/zsprackett/cursor-usage/internal/state"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

// Refresher triggers an out-of-band refresh cycle.
type Refresher interface {
	RequestRefresh()
}

type App struct {
	tapp   *tview.Application
	body   *tview.TextView
	footer *tview.TextView

	state     *state.State
	refresher Refresher
	logger    *slog.Logger

	// openURL is swapped in tests.
	openURL func(string) error
}

func NewApp(st *state.State, refresher Refresher, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		state:     st,
		refresher: refresher,
		logger:    logger,
		openURL:   browser.OpenURL,
	}

	a.tapp = tview.NewApplication()

	a.body = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.body.SetBackgroundColor(ColorBackground)
	a.body.SetTextColor(ColorText)
	a.body.SetBorder(true).SetBorderColor(ColorBorder)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(ColorBackgroundPanel)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.body, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.tapp.SetRoot(root, true).EnableMouse(false)
	a.tapp.SetInputCapture(a.handleKey)

	a.redraw()
	return a
}

// Run blocks until the user quits or Stop is called.
func (a *App) Run() error {
	return a.tapp.Run()
}

func (a *App) Stop() {
	a.tapp.Stop()
}

// Update is the poller's publish hook. It may be called from any goroutine.
func (a *App) Update(usage.Snapshot) {
	a.tapp.QueueUpdateDraw(a.redraw)
}

// SettingsChanged redraws after preferences change elsewhere, such as the
// status server.
func (a *App) SettingsChanged() {
	a.tapp.QueueUpdateDraw(a.redraw)
}

func (a *App) redraw() {
	lang := a.state.Language()
	a.body.SetText(render(view{
		Snapshot: a.state.Snapshot(),
		Language: lang,
		Interval: a.state.Interval(),
	}))
	a.footer.SetText(footer(lang))
}

// handleKey runs on the UI goroutine.
func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		a.tapp.Stop()
		return nil
	}
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch r := event.Rune(); r {
	case 'q':
		a.tapp.Stop()
	case 'r':
		a.refresher.RequestRefresh()
	case 'l':
		a.state.SetLanguage(a.state.Language().Toggle())
		a.redraw()
	case 'o':
		if err := a.openURL(cursorapi.SettingsURL); err != nil {
			a.logger.Warn("ui: open settings failed", "err", err)
		}
	case '1', '2', '3', '4', '5':
		intervals := config.Intervals()
		a.state.SetInterval(intervals[r-'1'])
		a.redraw()
	default:
		return event
	}
	return nil
}
