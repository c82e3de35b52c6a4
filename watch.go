package main

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watch on the Loader's directory, reloading on
// every *.toml write/create/remove/rename event, debounced to at most one
// reload per debounce interval. It returns once the watcher is established;
// the watch loop runs until ctx is done.
func (l *Loader) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return err
	}

	go l.watchLoop(ctx, watcher, debounce)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	defer watcher.Close()

	var pending bool
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(debounce)
			}
		case <-watcher.Errors:
			// fsnotify.Watcher.Errors is drained but not otherwise acted on:
			// a failed watch falls back to whatever reload already succeeded.
			continue
		case <-timer.C:
			pending = false
			l.reloadOnce()
		}
	}
}

// pollLoop is the fallback reload path for filesystems where fsnotify events
// are unreliable (network mounts, some container overlays): it reloads on a
// fixed interval regardless of whether any file changed.
func (l *Loader) pollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reloadOnce()
		}
	}
}

func (l *Loader) reloadOnce() {
	start := time.Now()
	_, err := l.Load(false)
	recordReload(err, float64(time.Since(start).Milliseconds()))
	if err != nil {
		l.logger.Error("reload failed, keeping previous rule table", "err", err)
		return
	}
	l.logger.Info("reloaded definitions")
}
