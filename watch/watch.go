// Package watch watches site trees for changes to rebuild
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rjeczalik/notify"
)

// Delay is how long the filesystem must be quiet before changes are sent
const Delay = 50 * time.Millisecond

// A Watcher receives notifications of changes
type Watcher interface {
	Changed(evs Events)
}

// WatcherFunc adapts a function to a Watcher
type WatcherFunc func(evs Events)

// Changed implements Watcher
func (f WatcherFunc) Changed(evs Events) { f(evs) }

// ErrStopped is returned by a Watch after Stop
var ErrStopped = errors.New("watch: stopped")

// Watch wraps file system watchers and batches up changes
type Watch struct {
	evs      chan notify.EventInfo
	watchers chan Watcher
	ignore   chan string
	done     chan struct{}
	stop     sync.Once
}

// New creates a new Watch that monitors the given paths. Directories are
// watched recursively.
func New(paths ...string) (*Watch, error) {
	w := &Watch{
		evs:      make(chan notify.EventInfo, 16),
		watchers: make(chan Watcher, 1),
		ignore:   make(chan string),
		done:     make(chan struct{}),
	}

	go w.run()

	err := w.Watch(paths...)
	if err != nil {
		w.Stop()
		return nil, err
	}

	return w, nil
}

// Watch adds additional paths to the watch
func (w *Watch) Watch(paths ...string) error {
	for _, path := range paths {
		watch := path

		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrapf(err, "failed to watch %q", path)
		}

		if info.IsDir() {
			watch = filepath.Join(path, "...")
		}

		err = notify.Watch(watch, w.evs, notify.All)
		if err != nil {
			return errors.Wrapf(err, "failed to watch %q", path)
		}
	}

	return nil
}

// Ignore drops all changes under dir, such as the directory that rebuilds
// are written to
func (w *Watch) Ignore(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to ignore %q", dir)
	}

	if w.stopped() {
		return ErrStopped
	}

	select {
	case w.ignore <- resolve(abs):
		return nil

	case <-w.done:
		return ErrStopped
	}
}

// Notify notifies the given Watcher of changes as they happen. After Stop,
// Watchers are dropped.
func (w *Watch) Notify(wr Watcher) {
	if wr == nil || w.stopped() {
		return
	}

	select {
	case w.watchers <- wr:
	case <-w.done:
	}
}

// Stop stops all further notifications and destroys all watches. It may be
// called more than once.
func (w *Watch) Stop() {
	w.stop.Do(func() {
		notify.Stop(w.evs)
		close(w.done)
	})
}

func (w *Watch) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Watch) run() {
	delay := time.NewTimer(time.Hour)
	delay.Stop()

	var evs Events
	var watchers []Watcher
	var ignored []string

	for {
		select {
		case <-w.done:
			delay.Stop()
			return

		case wr := <-w.watchers:
			watchers = append(watchers, wr)

		case dir := <-w.ignore:
			ignored = append(ignored, dir)

		case ev := <-w.evs:
			if isUnder(ev.Path(), ignored) {
				continue
			}

			evs = append(evs, ev)
			delay.Reset(Delay)

		case <-delay.C:
			for _, wr := range watchers {
				wr.Changed(evs)
			}

			evs = nil
		}
	}
}

func isUnder(path string, dirs []string) bool {
	for _, dir := range dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// resolve follows symlinks so that the path compares equal to event paths,
// which notify always reports resolved
func resolve(path string) string {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}

	return real
}

// Events is a collection of change events
type Events []notify.EventInfo

// HasExt checks if any event path has one of the given extensions
func (evs Events) HasExt(exts ...string) bool {
	return len(evs.Paths(exts...)) > 0
}

// Paths gets the unique, sorted paths that changed with any of the given
// extensions. With no extensions, every path is included.
func (evs Events) Paths(exts ...string) []string {
	seen := map[string]struct{}{}

	var paths []string
	for _, ev := range evs {
		path := ev.Path()

		if _, ok := seen[path]; ok || !matchExt(path, exts) {
			continue
		}

		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths
}

func matchExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}

	return false
}
