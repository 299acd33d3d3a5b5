package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/caarlos0/env/v11"
	"github.com/valvemist/machinecompat/archive"
	"github.com/valvemist/machinecompat/collect"
	"github.com/valvemist/machinecompat/snapshot"
)

var logger *slog.Logger

type customHandler struct {
	level slog.Leveler
	out   io.Writer
}

// Enabled determines whether the customHandler should log messages at the given level.
func (h *customHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

// Handle processes a log record using the customHandler.
func (h *customHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Level, r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	// Include file and line number when debugging
	if h.level.Level() <= slog.LevelDebug {
		if src := r.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(h.out, b.String())
	return err
}

// WithAttrs returns a new handler with the given attributes.
func (h *customHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

// WithGroup returns a new handler with the given group name.
func (h *customHandler) WithGroup(_ string) slog.Handler { return h }

// envConfig holds settings that may come from the environment. Flags
// take precedence.
type envConfig struct {
	LogLevel string `env:"COMPATCHECK_LOG_LEVEL" envDefault:"INFO"`
	Tables   string `env:"COMPATCHECK_TABLES"`
	Archive  string `env:"COMPATCHECK_ARCHIVE"`
}

// CLI is the kong command-line grammar.
var CLI struct {
	Verbose bool `short:"v" help:"Verbose output (includes passing checks)."`

	Collect CollectCmd `cmd:"" help:"Dump machine types and device properties from an emulator binary."`
	Compare CompareCmd `cmd:"" help:"Compare two snapshots for machine-type compatibility."`
	Show    ShowCmd    `cmd:"" help:"List archived comparison runs."`
}

// CollectCmd launches an emulator and writes its snapshot.
type CollectCmd struct {
	QEMU     string        `name:"qemu" placeholder:"BIN" help:"Emulator binary (or COMPATCHECK_QEMU)."`
	Socket   string        `help:"QMP socket path (default: temporary)."`
	Timeout  time.Duration `help:"How long to wait for the QMP socket (or COMPATCHECK_QMP_TIMEOUT)."`
	Machines []string      `short:"M" name:"machine" help:"Machine types to dump (default: all)."`
	Devices  []string      `short:"D" name:"device" help:"Extra device types to dump."`
	Output   string        `short:"o" required:"" type:"path" help:"Snapshot file; a .xz suffix compresses it."`
}

// Run merges flags over the environment and collects a snapshot.
func (c *CollectCmd) Run(ctx context.Context) error {
	var cfg collect.Config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c.QEMU != "" {
		cfg.Binary = c.QEMU
	}
	if c.Socket != "" {
		cfg.SocketFile = c.Socket
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	cfg.Machines = c.Machines
	cfg.Devices = c.Devices
	if cfg.Binary == "" {
		return fmt.Errorf("no emulator binary: use --qemu or COMPATCHECK_QEMU")
	}
	return RunCollectWorkflow(ctx, cfg, c.Output)
}

// CompareCmd checks every common machine type of two snapshots.
type CompareCmd struct {
	Older    string   `arg:"" type:"existingfile" help:"Snapshot of the older build."`
	Newer    string   `arg:"" type:"existingfile" help:"Snapshot of the newer build."`
	Machines []string `short:"M" name:"machine" help:"Only check these machine types."`
	JSON     bool     `name:"json" help:"Print events as JSON lines on stdout."`
	Archive  string   `type:"path" help:"Record the run in this SQLite archive (or COMPATCHECK_ARCHIVE)."`
	Tables   string   `type:"existingfile" help:"Knowledge tables replacing the built-in ones (or COMPATCHECK_TABLES)."`
}

// Run compares the snapshots and fails if any ERROR event was reported.
func (c *CompareCmd) Run(ctx context.Context, cfg *envConfig) error {
	opts := compareOptions{
		Machines: c.Machines,
		JSON:     c.JSON,
		Verbose:  CLI.Verbose,
		Archive:  firstNonEmpty(c.Archive, cfg.Archive),
		Tables:   firstNonEmpty(c.Tables, cfg.Tables),
	}
	n, err := RunCompareWorkflow(ctx, c.Older, c.Newer, opts)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d compatibility error(s)", n)
	}
	return nil
}

// ShowCmd prints archived runs, or the events of one run.
type ShowCmd struct {
	DB    string `arg:"" type:"existingfile" help:"Archive database."`
	RunID string `name:"run" help:"Show the events of this run."`
	JSON  bool   `name:"json" help:"Print events as JSON lines."`
}

// Run prints the run list, or one run's events.
func (s *ShowCmd) Run(ctx context.Context) error {
	return RunShowWorkflow(ctx, os.Stdout, s.DB, s.RunID, s.JSON)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// main is the entry point for the compatcheck CLI tool.
func main() {
	level := new(slog.LevelVar)
	logger = slog.New(&customHandler{level: level, out: os.Stderr})
	collect.SetLogger(logger)
	snapshot.SetLogger(logger)
	archive.SetLogger(logger)

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("Invalid environment", "error", err)
		os.Exit(2)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Ignoring COMPATCHECK_LOG_LEVEL", "error", err)
	}

	kctx := kong.Parse(&CLI,
		kong.Name("compatcheck"),
		kong.Description("Machine-type compatibility checker for QEMU builds"),
		kong.UsageOnError(),
	)
	if CLI.Verbose {
		level.Set(slog.LevelDebug)
	}

	ctx, stop := signalContext()
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cfg)
	kctx.FatalIfErrorf(err)
}
