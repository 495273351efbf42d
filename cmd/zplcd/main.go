// Command zplcd runs the ZPLC core runtime: it loads a .zplc program,
// starts the scheduler, and optionally exposes the debug/operator
// surface over HTTP and/or an interactive console. Grounded on the
// teacher's main.go: flag-based CLI, a SimHAL backing the platform
// abstraction in the absence of real hardware, and signal-driven
// graceful shutdown with a bounded context.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/eduardojvieira/ZPLC-sub003/api"
	"github.com/eduardojvieira/ZPLC-sub003/config"
	"github.com/eduardojvieira/ZPLC-sub003/console"
	"github.com/eduardojvieira/ZPLC-sub003/debug"
	"github.com/eduardojvieira/ZPLC-sub003/hal"
	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/memory"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

// Version is overridable at build time: go build -ldflags "-X main.Version=v1.2.3".
var Version = "dev"

func main() {
	var (
		configPath = flag.String("config", "", "Path to a zplc.toml config file (default: platform config dir)")
		loadPath   = flag.String("load", "", "Path to a .zplc program to load at startup")
		apiAddr    = flag.String("api-addr", "", "Override the debug HTTP/WebSocket bind address")
		useConsole = flag.Bool("console", false, "Start the interactive operator console (tcell/tview)")
		jsonOut    = flag.Bool("json", false, "Prefer JSON for one-shot informational output")
		showVer    = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("zplcd %s\n", Version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zplcd: %v\n", err)
		os.Exit(1)
	}
	if *apiAddr != "" {
		cfg.Debug.APIAddr = *apiAddr
	}

	logger := log.New(os.Stderr, "zplcd: ", log.LstdFlags)

	simhal := hal.NewSimHAL()
	mem := memory.New()
	sched := scheduler.New(mem, simhal, cfg.Scheduler.MaxTasks, cfg.Execution.StepBudget, logger)

	loadOpts := loader.Options{
		RequireTasks: cfg.Scheduler.RequireTasks,
		MaxTasks:     cfg.Scheduler.MaxTasks,
		MaxCodeSize:  memory.CodeSize,
		IgnoreCRC:    cfg.Persistence.IgnoreCRC,
		AllowRaw:     true,
	}

	if err := bootstrap(sched, simhal, loadOpts, *loadPath, cfg, logger); err != nil {
		logger.Printf("startup: %v", err)
		os.Exit(1)
	}

	if err := sched.Start(); err != nil {
		logger.Printf("scheduler start: %v", err)
		os.Exit(1)
	}

	apiSrv := api.NewServer(sched, simhal, loadOpts, cfg.Debug.EnablePoke, cfg.Debug.APIAddr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Printf("api server: %v", err)
		}
	}()

	if *useConsole {
		dbg := debug.NewServer(sched, simhal, loadOpts, cfg.Debug.EnablePoke)
		tui := console.NewTUI(sched, dbg)
		if err := tui.Run(); err != nil {
			logger.Printf("console: %v", err)
		}
		stop()
	} else if *jsonOut {
		fmt.Println(debug.NewServer(sched, simhal, loadOpts, cfg.Debug.EnablePoke).Handle("status --json"))
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("api shutdown: %v", err)
	}
	if err := sched.Stop(); err != nil {
		logger.Printf("scheduler stop: %v", err)
	}
	wg.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// bootstrap replays any persisted program (if auto-restore is
// enabled), matching §4.4 "at boot the loader reads these and replays
// the load before any task becomes ready". An explicit -load file then
// replaces it: the restored tasks are unregistered before the file is
// loaded.
func bootstrap(sched *scheduler.Scheduler, store loader.Store, opts loader.Options, loadPath string, cfg *config.Config, logger *log.Logger) error {
	if cfg.Persistence.AutoRestore {
		prog, restored, err := loader.RestoreOnBoot(store, opts)
		if err != nil {
			logger.Printf("persistence restore: %v", err)
		} else if restored {
			if err := sched.Load(loader.Encode(prog.Code, prog.Tasks, prog.EntryPoint, loader.EncodeOptions{}), opts); err != nil {
				return fmt.Errorf("replay persisted program: %w", err)
			}
			logger.Printf("restored persisted program (%d bytes, %d tasks)", len(prog.Code), len(prog.Tasks))
		}
	}

	if loadPath == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Clean(loadPath))
	if err != nil {
		return fmt.Errorf("read %s: %w", loadPath, err)
	}
	for _, t := range sched.Tasks() {
		if err := sched.UnregisterTask(t.Slot); err != nil {
			return fmt.Errorf("replace restored program: %w", err)
		}
	}
	count, err := sched.Load(data, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", loadPath, err)
	}
	if err := loader.Persist(store, data); err != nil {
		logger.Printf("persist loaded program: %v", err)
	}
	logger.Printf("loaded %s: %d tasks", loadPath, count)
	return nil
}
