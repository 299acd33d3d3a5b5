// workflow.go contains CLI-specific orchestration for the collect, compare
// and show commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/digitalocean/go-qemu/qmp"
	"github.com/valvemist/machinecompat/archive"
	"github.com/valvemist/machinecompat/collect"
	"github.com/valvemist/machinecompat/compat"
	"github.com/valvemist/machinecompat/snapshot"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			logger.Info("Interrupt received", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}

// RunCollectWorkflow starts the emulator, dumps it over QMP and writes the
// snapshot to output.
func RunCollectWorkflow(ctx context.Context, cfg collect.Config, output string) error {
	logger.Info("Starting collection", "binary", cfg.Binary)
	if cfg.SocketFile == "" {
		if err := collect.GenerateSocketPath(&cfg); err != nil {
			return err
		}
		defer os.RemoveAll(filepath.Dir(cfg.SocketFile))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd, err := collect.Launch(ctx, cfg)
	if err != nil {
		return err
	}
	monitor, err := qmp.NewSocketMonitor("unix", cfg.SocketFile, cfg.Timeout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("failed to connect to QMP: %w", err)
	}
	if err := monitor.Connect(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("QMP handshake: %w", err)
	}

	var wg sync.WaitGroup
	defer func() {
		if _, err := collect.RunQMPAndLog(monitor, collect.BuildQuitJSON()); err != nil {
			logger.Debug("quit", "error", err)
		}
		cancel()
		wg.Wait()
		monitor.Disconnect()
		_ = cmd.Wait()
		logger.Debug("Emulator stopped")
	}()
	wg.Go(func() {
		collect.Events(ctx, monitor, collect.CancelOnShutdown(cancel))
	})

	records, err := collect.Collect(ctx, monitor, cfg)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if err := snapshot.Save(output, records); err != nil {
		return err
	}
	logger.Info("Snapshot written", "file", output, "records", len(records))
	return nil
}

type compareOptions struct {
	Machines []string
	JSON     bool
	Verbose  bool
	Archive  string
	Tables   string
}

// RunCompareWorkflow compares snapshot older against newer and returns the
// number of ERROR events.
func RunCompareWorkflow(ctx context.Context, older, newer string, opts compareOptions) (int, error) {
	a, err := snapshot.Load(older)
	if err != nil {
		return 0, err
	}
	b, err := snapshot.Load(newer)
	if err != nil {
		return 0, err
	}
	var tables *compat.Tables
	if opts.Tables != "" {
		if tables, err = compat.LoadTables(opts.Tables); err != nil {
			return 0, err
		}
	}

	counts := &compat.Collector{}
	reporters := compat.MultiReporter{counts}
	if opts.JSON {
		out := newJSONReporter(os.Stdout, opts.Verbose)
		reporters = append(reporters, out)
	} else {
		reporters = append(reporters, compat.SlogReporter{Logger: logger})
	}

	var run *archive.Run
	if opts.Archive != "" {
		db, err := archive.Open(opts.Archive)
		if err != nil {
			return 0, err
		}
		defer db.Close()
		if run, err = db.BeginRun(ctx, a, b); err != nil {
			return 0, err
		}
		reporters = append(reporters, run)
		logger.Info("Archiving run", "id", run.ID, "archive", opts.Archive)
	}

	chk := compat.NewChecker(a, b, tables, reporters)
	if len(opts.Machines) > 0 {
		chk.CheckMachines(opts.Machines)
	} else {
		chk.CheckAll()
	}

	if run != nil {
		if err := run.Finish(ctx); err != nil {
			return 0, err
		}
	}
	nerr := counts.Count(compat.LevelError)
	logger.Info("Comparison finished", "errors", nerr, "warnings", counts.Count(compat.LevelWarn))
	return nerr, nil
}

// jsonReporter prints one JSON object per event. DEBUG events are only
// printed when verbose.
type jsonReporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newJSONReporter(w io.Writer, verbose bool) *jsonReporter {
	return &jsonReporter{w: w, verbose: verbose}
}

func (j *jsonReporter) Report(e compat.Event) {
	if e.Level == compat.LevelDebug && !j.verbose {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintln(j.w, e.JSON())
}

// RunShowWorkflow lists archived runs, or the events of runID.
func RunShowWorkflow(ctx context.Context, w io.Writer, path, runID string, asJSON bool) error {
	db, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if runID != "" {
		events, err := db.Events(ctx, runID)
		if err != nil {
			return err
		}
		for _, e := range events {
			if asJSON {
				fmt.Fprintln(w, e.JSON())
			} else {
				fmt.Fprintf(w, "%s %s\n", e.Level, e)
			}
		}
		return nil
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tOLDER\tNEWER\tERRORS\tWARNINGS")
	for _, r := range runs {
		started := r.Started.Local().Format("2006-01-02 15:04:05")
		if r.Finished.IsZero() {
			started += " (unfinished)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n", r.ID, started, r.SnapshotA, r.SnapshotB, r.Errors, r.Warnings)
	}
	return tw.Flush()
}
