package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/zsprackett/cursor-usage/internal/applog"
	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/credstore"
	"github.com/zsprackett/cursor-usage/internal/cursorapi"
	"github.com/zsprackett/cursor-usage/internal/db"
	"github.com/zsprackett/cursor-usage/internal/notify"
	"github.com/zsprackett/cursor-usage/internal/state"
	"github.com/zsprackett/cursor-usage/internal/ui"
	"github.com/zsprackett/cursor-usage/internal/usage"
	"github.com/zsprackett/cursor-usage/internal/usagepoller"
	"github.com/zsprackett/cursor-usage/internal/webserver"
)

const usageText = `usage: cursor-usage [command]

With no command, shows the usage panel (or runs headless when stdout is not
a terminal).

commands:
  status   fetch once, print a summary line, exit non-zero on failure
  hashpw   prompt for a password and print its bcrypt hash
`

// refreshFunc adapts a func to webserver.Refresher and ui.Refresher.
type refreshFunc func()

func (f refreshFunc) RequestRefresh() { f() }

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "hashpw":
			os.Exit(runHashPW())
		case "status":
			os.Exit(runStatus())
		case "help", "-h", "--help":
			fmt.Print(usageText)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usageText)
			os.Exit(2)
		}
	}
	os.Exit(run())
}

func runHashPW() int {
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	hash, err := webserver.HashPassword(string(pw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func loadConfig() (config.Config, string) {
	path := config.DefaultPath()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}
	return cfg, path
}

func initLogging(cfg config.Config) (*slog.Logger, func()) {
	logger, closer, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		return applog.Fallback(cfg.LogLevel), func() {}
	}
	return logger, func() { closer.Close() }
}

// newAssembler wires the credential store and API client.
func newAssembler(cfg config.Config, logger *slog.Logger) *usage.Assembler {
	path := cfg.CredentialStore
	if path == "" {
		p, err := credstore.DefaultPath()
		if err != nil {
			logger.Warn("main: cannot locate Cursor credential store", "err", err)
		}
		path = p
	}
	logger.Info("main: credential store", "path", path)

	opts := []cursorapi.Option{cursorapi.WithLogger(logger)}
	if cfg.APIBaseURL != "" {
		opts = append(opts, cursorapi.WithBaseURL(cfg.APIBaseURL))
	}
	return usage.NewAssembler(credstore.NewReader(path), cursorapi.New(opts...), nil, logger)
}

func newState(cfg config.Config, path string, logger *slog.Logger) *state.State {
	save := func(lang config.Language, interval config.Interval) error {
		c := cfg
		c.Language = lang.String()
		c.RefreshInterval = interval.Seconds()
		return config.Save(path, c)
	}
	return state.New(cfg.Lang(), cfg.Interval(), save, logger)
}

// openHistory returns nil, nil when history is turned off.
func openHistory(cfg config.Config) (*db.DB, error) {
	if cfg.HistoryDays <= 0 {
		return nil, nil
	}
	store, err := db.Open(config.HistoryPath())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func runStatus() int {
	cfg, path := loadConfig()
	logger, closeLog := initLogging(cfg)
	defer closeLog()

	st := newState(cfg, path, logger)
	poller := usagepoller.New(newAssembler(cfg, logger), st, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	snap := poller.RunOnce(ctx)
	if snap.Failed() {
		fmt.Fprintf(os.Stderr, "error: %s\n", snap.Error)
		return 1
	}
	line := fmt.Sprintf("%d/%d requests (%.1f%%), %d remaining", snap.Used, snap.Total, snap.Percentage, snap.Remaining())
	if snap.Email != "" {
		line += " · " + snap.Email
	}
	fmt.Println(line)
	return 0
}

func run() int {
	cfg, path := loadConfig()
	logger, closeLog := initLogging(cfg)
	defer closeLog()

	st := newState(cfg, path, logger)

	var poller *usagepoller.Poller
	refresh := refreshFunc(func() { poller.RequestRefresh() })

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	var app *ui.App
	var webOpts []webserver.Option
	if interactive {
		app = ui.NewApp(st, refresh, logger)
		st.OnSettingsChanged(func(config.Language, config.Interval) { app.SettingsChanged() })
	}

	notifier := notify.New(cfg.Notifications, logger)
	observers := []func(usage.Snapshot){notifier.Observe}

	if history, err := openHistory(cfg); err != nil {
		logger.Warn("main: snapshot history disabled", "err", err)
	} else if history != nil {
		defer history.Close()
		rec := db.NewRecorder(history, time.Duration(cfg.HistoryDays)*24*time.Hour, logger)
		observers = append(observers, rec.Record)
		webOpts = append(webOpts, webserver.WithHistory(history))
	}

	web := webserver.New(st, refresh, cfg.Webserver, logger, webOpts...)

	pollOpts := []usagepoller.Option{
		usagepoller.WithBroadcaster(web),
		usagepoller.WithObserver(func(s usage.Snapshot) {
			for _, fn := range observers {
				fn(s)
			}
		}),
	}
	if app != nil {
		pollOpts = append(pollOpts, usagepoller.WithOnUpdate(app.Update))
	}
	poller = usagepoller.New(newAssembler(cfg, logger), st, logger, pollOpts...)

	if err := web.Start(); err != nil {
		logger.Error("main: status server not started", "err", err)
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	poller.Start()
	defer func() {
		poller.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := web.Shutdown(ctx); err != nil {
			logger.Warn("main: status server shutdown", "err", err)
		}
		logger.Info("main: stopped")
	}()

	if app != nil {
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("main: running headless", "interval", st.Interval().Duration())
	<-ctx.Done()
	return 0
}
