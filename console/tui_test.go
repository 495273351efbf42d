package console

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/eduardojvieira/ZPLC-sub003/debug"
	"github.com/eduardojvieira/ZPLC-sub003/hal"
	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/memory"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

func newTestTUI(t *testing.T) *TUI {
	t.Helper()
	mem := memory.New()
	simhal := hal.NewSimHAL()
	sched := scheduler.New(mem, simhal, 8, 1000, nil)
	dbg := debug.NewServer(sched, simhal, loader.Options{AllowRaw: true}, true)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init simulation screen: %v", err)
	}
	t.Cleanup(screen.Fini)

	app := tview.NewApplication().SetScreen(screen)
	return NewTUIWithScreen(sched, dbg, app)
}

func TestHandleCommandUpdatesOutput(t *testing.T) {
	tui := newTestTUI(t)
	tui.Command.SetText("status")

	done := make(chan struct{})
	go func() {
		tui.handleCommand(tcell.KeyEnter)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleCommand blocked for more than 2 seconds")
	}

	if tui.Command.GetText() != "" {
		t.Error("expected command input to be cleared after submission")
	}
	if tui.Output.GetText(true) == "" {
		t.Error("expected the output view to contain the command's response")
	}
}

func TestRefreshRendersTaskRows(t *testing.T) {
	tui := newTestTUI(t)

	code := []byte{0x01} // HALT
	file := loader.Encode(code, []loader.TaskDef{
		{ID: 7, Type: loader.TaskCyclic, Priority: 0, IntervalUs: 1000, EntryPoint: 0, StackSize: 1},
	}, 0, loader.EncodeOptions{})
	if _, err := tui.sched.Load(file, loader.Options{AllowRaw: true}); err != nil {
		t.Fatalf("load: %v", err)
	}

	tui.refresh()

	text := tui.Tasks.GetText(true)
	if text == "" {
		t.Fatal("expected the tasks view to render a row for the registered task")
	}
}
