package main

import (
	"bytes"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
)

// configWatcher reports changes to a set of configuration files. It
// watches their directories so editors that replace files on save are
// still seen.
type configWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	changed chan string
	errors  chan error
}

func newConfigWatcher(paths []string) (*configWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &configWatcher{
		watcher: watcher,
		files:   map[string]bool{},
		changed: make(chan string, 1),
		errors:  make(chan error, 1),
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			dirs[dir] = true
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, err
			}
		}
	}
	go w.loop()
	return w, nil
}

func (w *configWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.changed <- event.Name:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *configWatcher) Close() error {
	return w.watcher.Close()
}

func (a *app) watchCmd() *cobra.Command {
	var (
		opts     renderOptions
		interval time.Duration
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <layout>",
		Short: "Re-render a layout whenever a config file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.ResolvePaths(a.configs)
			if err != nil {
				return err
			}
			w, err := newConfigWatcher(paths)
			if err != nil {
				return err
			}
			defer w.Close()

			// Stdin can only be read once; replay it on every render.
			var piped []byte
			if in := pipedInput(cmd); in != nil {
				if piped, err = io.ReadAll(in); err != nil {
					return err
				}
			}
			render := func() {
				if piped != nil {
					cmd.SetIn(bytes.NewReader(piped))
				}
				if err := a.renderLayout(cmd, args[0], &opts); err != nil {
					a.logger.Error("render failed", "layout", args[0], "error", err)
				}
			}
			render()

			var tick <-chan time.Time
			if interval > 0 {
				t := time.NewTicker(interval)
				defer t.Stop()
				tick = t.C
			}
			var settle <-chan time.Time
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case name := <-w.changed:
					a.logger.Debug("config changed", "file", name)
					settle = time.After(debounce)
				case <-settle:
					settle = nil
					render()
				case <-tick:
					render()
				case err := <-w.errors:
					a.logger.Warn("watch error", "error", err)
				}
			}
		},
	}
	opts.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 0, "Also re-render on this interval, for changing context providers")
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "Wait this long after a change before re-rendering")
	return cmd
}
