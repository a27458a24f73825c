package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/garnet"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/parser"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a project and re-analyze files as they change",
	Long:  "Indexes path, then watches it and re-analyzes changed Ruby files, printing their diagnostics. Stop with Ctrl-C.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 200*time.Millisecond, "quiet period before re-analyzing a batch of changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}
	s, err := openSession(targetDir)
	if err != nil {
		return outputError("watch", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := s.engine.IndexDirectory(ctx, targetDir, s.cfg.Exclude); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningColor.Sprint("Warning:"), err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s in %s, watching for changes\n", targetDir, elapsed(start))

	w := &watcher{
		engine:   s.engine,
		log:      s.log,
		root:     targetDir,
		excludes: s.cfg.Exclude,
		debounce: flagDebounce,
		onBatch: func(changed, _ []string) {
			printChanged(s.engine, changed)
		},
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return outputError("watch", err)
	}
	return nil
}

// printChanged writes the diagnostics of re-analyzed files.
func printChanged(e *garnet.Engine, changed []string) {
	q := e.Query()
	var out []CLIDiagnostic
	for _, id := range changed {
		diags, err := q.Diagnostics(id)
		if err != nil {
			continue
		}
		for _, d := range diags {
			out = append(out, diagnosticToCLI(d))
		}
	}
	if out == nil {
		out = []CLIDiagnostic{}
	}
	total := len(out)
	_ = outputResult(CLIResult{Command: "watch", Results: out, TotalCount: &total})
}

// watcher re-analyzes Ruby files below root as fsnotify reports changes.
// Events are collected until debounce passes without a new one, then the
// batch is analyzed at once so a unit and its requires settle together.
type watcher struct {
	engine   *garnet.Engine
	log      *zap.Logger
	root     string
	excludes []string
	debounce time.Duration
	onBatch  func(changed, removed []string)
}

// Run watches until ctx is done.
func (w *watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := map[string]fsnotify.Op{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.log.Warn("watch directory", zap.String("path", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if !parser.IsRuby(ev.Name) || w.excluded(ev.Name) {
				continue
			}
			pending[ev.Name] |= ev.Op
			timer.Reset(w.debounce)
		case <-timer.C:
			changed, removed := w.split(pending)
			pending = map[string]fsnotify.Op{}
			if err := w.apply(ctx, changed, removed); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Warn("re-analysis failed", zap.Error(err))
			}
			if w.onBatch != nil {
				w.onBatch(changed, removed)
			}
		}
	}
}

// split sorts a batch into files to analyze and files that are gone.
func (w *watcher) split(pending map[string]fsnotify.Op) (changed, removed []string) {
	for path := range pending {
		if _, err := os.Stat(path); err != nil {
			removed = append(removed, path)
			continue
		}
		changed = append(changed, path)
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

func (w *watcher) apply(ctx context.Context, changed, removed []string) error {
	for _, p := range removed {
		if err := w.engine.Remove(ctx, p); err != nil && !errors.Is(err, garnet.ErrUnknownUnit) {
			return err
		}
	}
	if len(changed) == 0 {
		return nil
	}
	w.log.Debug("re-analyzing", zap.Strings("files", changed))
	return w.engine.IndexFiles(ctx, changed)
}

// addTree watches dir and every directory below it that is not hidden or
// excluded.
func (w *watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (strings.HasPrefix(d.Name(), ".") || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return loader.Excluded(filepath.ToSlash(rel), w.excludes)
}
