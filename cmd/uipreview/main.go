package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"uipreview/internal/core/config"
	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./uipreview.toml", "Path to config file")
	once       = flag.Bool("once", false, "Render once and exit")
	outPath    = flag.String("out", "", "Write the rendered markup to a file (with --once)")
	watch      = flag.Bool("watch", false, "Re-render when the document or its resources change")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	serve      = flag.Bool("serve", false, "Start the preview HTTP server")
	theme      = flag.String("theme", "", "Preview theme: light or dark")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("uipreview v%s\n", VERSION)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: uipreview [flags] <file.xaml>")
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./uipreview.toml" && stderrors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if *theme != "" {
		if *theme != "light" && *theme != "dark" {
			fmt.Fprintln(os.Stderr, "theme must be light or dark")
			os.Exit(1)
		}
	}

	ctx := context.Background()

	if cfg.Server.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Server.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	app.InitRenderers(ctx)

	if err := app.LoadDocument(flag.Arg(0)); err != nil {
		slog.Error("failed to load document", "error", err)
		os.Exit(1)
	}
	if *theme != "" {
		app.SetTheme(*theme)
	}

	res, err := app.RenderCurrent(ctx)
	if err != nil {
		slog.Error("initial render failed", "error", err)
		os.Exit(1)
	}

	if *once {
		if err := emitOnce(res, *outPath); err != nil {
			slog.Error("failed to write output", "error", err)
			os.Exit(1)
		}
		if !res.OK() {
			os.Exit(1)
		}
		return
	}

	serving := *serve || cfg.Server.Enabled
	watching := *watch || cfg.Watch.Enabled

	if !serving && !watching && !*ui {
		printResult(res)
		return
	}

	if serving {
		if err := app.StartServer(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}

	if watching {
		if err := app.StartWatcher(ctx); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}

		cfgWatcher := config.NewWatcher(*configPath, app.ApplyConfig, logger)
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		printResult(res)
		// Block forever
		select {}
	}
}

// emitOnce writes the rendered markup to the output path, or to stdout
// when none is given. Diagnostics go to stderr so piped output stays
// clean.
func emitOnce(res *render.Result, out string) error {
	if res.OK() && res.Kind == render.KindMarkup {
		if out != "" {
			if err := os.WriteFile(out, []byte(res.Payload), 0644); err != nil {
				return err
			}
		} else {
			fmt.Println(res.Payload)
		}
	}
	if res.Failure != nil {
		fmt.Fprintf(os.Stderr, "render failed [%s]: %s\n", res.Failure.Code, res.Failure.Message)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning [%s]: %s\n", w.Code, w.Message)
	}
	return nil
}

func printResult(res *render.Result) {
	if res.OK() {
		fmt.Printf("render ok: %d elements, %d warnings, %dms\n",
			len(res.Mappings), len(res.Warnings), res.ElapsedMs)
	} else {
		fmt.Printf("render failed [%s]: %s", res.Failure.Code, res.Failure.Message)
		if res.Failure.Line > 0 {
			fmt.Printf(" at %d:%d", res.Failure.Line, res.Failure.Column)
		}
		fmt.Println()
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning [%s]: %s\n", w.Code, w.Message)
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "uipreview", "uipreview.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "uipreview", "uipreview.log")
	}

	return "uipreview.log"
}
