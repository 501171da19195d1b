package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one run.
const DefaultDebounce = 150 * time.Millisecond

// Run is the outcome of one regeneration.
type Run struct {
	Files []File
	Err   error
}

// Watch generates once, then regenerates whenever a contract file under
// paths changes, until ctx is done. Every outcome is passed to report.
// Changes inside the output directory are ignored.
func (g *Generator) Watch(ctx context.Context, debounce time.Duration, report func(Run), paths ...string) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("codegen: start watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("codegen: watch %s: %w", dir, err)
		}
	}
	out, _ := filepath.Abs(g.Out)

	regenerate := func() {
		files, err := g.GeneratePaths(ctx, paths...)
		report(Run{Files: files, Err: err})
	}
	regenerate()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, out) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(Run{Err: fmt.Errorf("codegen: watcher: %w", err)})
		case <-fire:
			fire = nil
			regenerate()
		}
	}
}

func relevant(event fsnotify.Event, outDir string) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := strings.ToLower(event.Name)
	isContract := strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") ||
		(strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go"))
	if !isContract {
		return false
	}
	if outDir == "" {
		return true
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return true
	}
	return filepath.Dir(abs) != outDir
}

// watchDirs returns the directories to watch: directories as given, files
// through their parent.
func watchDirs(paths []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
