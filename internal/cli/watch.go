package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// tailLines is how much history the watcher prints before following.
const tailLines = 40

// WatchOptions carries the watch command's flag values.
type WatchOptions struct {
	File string
}

// RunWatch tails the Factorio server log until ctx ends, highlighting
// RCON traffic and errors so tool activity stands out while the bridge
// plays. Truncation and rotation reset the tail.
func RunWatch(ctx context.Context, opts WatchOptions) error {
	if opts.File == "" {
		return errors.New("log file path is required")
	}
	out := os.Stdout
	path := filepath.Clean(opts.File)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: rotation replaces the inode and
	// a file watch would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	fmt.Fprintf(out, "Watching: %s\n", path)
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	t := &logTailer{path: path, out: out}
	if err := t.open(); err != nil {
		fmt.Fprintln(out, yellow(fmt.Sprintf("Log file not found: %s (waiting for it to appear)", path)))
	}
	defer t.close()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopped.")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				// Rotation: a fresh log replaced the one we had open.
				t.close()
				_ = t.open()
			case event.Has(fsnotify.Write):
				if t.file == nil {
					_ = t.open()
					continue
				}
				t.drain()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				t.close()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(out, red(fmt.Sprintf("!!! watch error: %v", err)))
		}
	}
}

// logTailer follows one log file by byte offset. Partial lines stay in
// pending until their newline arrives.
type logTailer struct {
	path    string
	out     io.Writer
	file    *os.File
	offset  int64
	pending string
}

// open reads the whole file, prints the last tailLines lines and leaves
// the offset at the end so drain only sees appends.
func (t *logTailer) open() error {
	file, err := os.Open(t.path)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		_ = file.Close()
		return err
	}
	t.file = file
	t.offset = int64(len(data))
	t.pending = ""

	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	for _, line := range lines {
		fmt.Fprintln(t.out, highlightLogLine(strings.TrimRight(line, "\r")))
	}
	return nil
}

// drain prints everything appended since the last read.
func (t *logTailer) drain() {
	info, err := t.file.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		// Truncated in place: start over from the top.
		t.offset = 0
		t.pending = ""
	}
	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(t.file)
	if err != nil {
		return
	}
	t.offset += int64(len(data))
	t.pending += string(data)
	for {
		line, rest, found := strings.Cut(t.pending, "\n")
		if !found {
			return
		}
		t.pending = rest
		fmt.Fprintln(t.out, highlightLogLine(strings.TrimRight(line, "\r")))
	}
}

func (t *logTailer) close() {
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
}

func highlightLogLine(line string) string {
	switch {
	case strings.Contains(line, "RCON"):
		return yellow(fmt.Sprintf(">>> %s <<<", line))
	case strings.Contains(line, "Error"), strings.Contains(line, "error"):
		return red(fmt.Sprintf("!!! %s", line))
	}
	return line
}
