package gotest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Follow reads the events already in path and then every event appended to
// it until ctx is done. Partial lines are held back until their newline
// arrives. It returns nil when ctx is cancelled, or the first error from
// handle.
func Follow(ctx context.Context, path string, handle func(TestEvent) error, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	var partial []byte

	drain := func() error {
		for {
			chunk, err := reader.ReadBytes('\n')
			if len(chunk) > 0 {
				partial = append(partial, chunk...)
				if partial[len(partial)-1] == '\n' {
					line := partial
					partial = nil
					if err := handleLine(line, handle, logger); err != nil {
						return err
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}

	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return drain()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					return err
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				logger.Warn("followed file went away", zap.String("path", path))
				return drain()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func handleLine(line []byte, handle func(TestEvent) error, logger *zap.Logger) error {
	ev, err := ParseEvent(line)
	if errors.Is(err, ErrNotEvent) {
		logger.Debug("skipping non-event line", zap.ByteString("line", line))
		return nil
	}
	if err != nil {
		return err
	}
	return handle(ev)
}
