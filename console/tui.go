// Package console is the interactive local operator front-end named in
// SPEC_FULL.md's domain stack expansion: a terminal UI built on
// gdamore/tcell/v2 + rivo/tview, the same stack the teacher's
// debugger/tui.go uses, issuing the identical line-oriented commands
// the serial operator protocol accepts (§6) through a shared
// debug.Server. It is the "thin front-end to the core" the spec calls
// an external collaborator — nothing here drives VM execution
// directly.
package console

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/eduardojvieira/ZPLC-sub003/debug"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

// TUI is the operator console. It polls the scheduler's read-only
// snapshots on a timer and renders them alongside a command prompt
// wired to the shared debug.Server (§4.6, §6).
type TUI struct {
	sched *scheduler.Scheduler
	dbg   *debug.Server

	App     *tview.Application
	Layout  *tview.Flex
	Status  *tview.TextView
	Tasks   *tview.TextView
	Output  *tview.TextView
	Command *tview.InputField

	stopCh chan struct{}
}

// NewTUI builds a console bound to sched and answering commands
// through dbg.
func NewTUI(sched *scheduler.Scheduler, dbg *debug.Server) *TUI {
	return newTUI(sched, dbg, tview.NewApplication())
}

// NewTUIWithScreen builds a console against a pre-built
// tview.Application (typically one wired to a tcell.SimulationScreen
// via App.SetScreen), so tests can drive the console without a real
// terminal.
func NewTUIWithScreen(sched *scheduler.Scheduler, dbg *debug.Server, app *tview.Application) *TUI {
	return newTUI(sched, dbg, app)
}

func newTUI(sched *scheduler.Scheduler, dbg *debug.Server, app *tview.Application) *TUI {
	t := &TUI{
		sched:  sched,
		dbg:    dbg,
		App:    app,
		stopCh: make(chan struct{}),
	}
	t.initViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initViews() {
	t.Status = tview.NewTextView().SetDynamicColors(true)
	t.Status.SetBorder(true).SetTitle(" Status ")

	t.Tasks = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.Tasks.SetBorder(true).SetTitle(" Tasks ")

	t.Output = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.Output.SetBorder(true).SetTitle(" Output ")

	t.Command = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.Command.SetBorder(true).SetTitle(" Command ")
	t.Command.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.Status, 0, 1, false).
		AddItem(t.Tasks, 0, 2, false)

	t.Layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 9, 0, false).
		AddItem(t.Output, 0, 1, false).
		AddItem(t.Command, 3, 0, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.refresh()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.Command.GetText()
	if cmd == "" {
		return
	}
	t.Command.SetText("")
	resp := t.dbg.Handle(cmd)
	fmt.Fprintf(t.Output, "[gray]> %s[white]\n%s\n", cmd, resp)
	t.Output.ScrollToEnd()
	t.refresh()
}

func (t *TUI) refresh() {
	stats := debug.SnapshotStats(t.sched)
	t.Status.Clear()
	fmt.Fprintf(t.Status, "state: %s\nuptime: %dms\ncycles: %d\noverruns: %d\nactive: %d",
		stats.State, stats.UptimeMs, stats.TotalCycles, stats.TotalOverruns, stats.ActiveTasks)

	t.Tasks.Clear()
	for _, task := range t.sched.Tasks() {
		fmt.Fprintf(t.Tasks, "[%d] id=%d %s prio=%d pc=0x%04X sp=%d halted=%t error=%s\n",
			task.Slot, task.Def.ID, task.Def.Type, task.Def.Priority, task.PC, task.SP, task.Halted, task.Error)
	}
	t.App.Draw()
}

// Run starts the console's refresh ticker and blocks until the
// application exits (Ctrl-C or App.Stop).
func (t *TUI) Run() error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				t.App.QueueUpdateDraw(func() {})
				t.refresh()
			case <-t.stopCh:
				return
			}
		}
	}()

	err := t.App.SetRoot(t.Layout, true).SetFocus(t.Command).Run()
	close(t.stopCh)
	return err
}

// Stop terminates the console's application loop.
func (t *TUI) Stop() {
	t.App.Stop()
}
