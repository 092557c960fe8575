// Package watch reports source file changes for minicc --watch.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op describes the kind of change.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes a filesystem change event.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// DefaultDebounce is used when New is given a non-positive delay.
const DefaultDebounce = 100 * time.Millisecond

// Watcher delivers change events for watched files and directories.
// Files are watched through their parent directory so editors that save
// by renaming a temporary file over the original are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	evC      chan Event
	erC      chan error
	done     chan struct{}
	debounce time.Duration

	mu    sync.Mutex
	files map[string]bool // watched files; events for other files in their directories are dropped
	dirs  map[string]bool // directories added directly; all their events pass

	closeOnce sync.Once
}

// New creates a watcher that coalesces events arriving within debounce.
func New(debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &Watcher{
		w:        w,
		evC:      make(chan Event, 128),
		erC:      make(chan error, 1),
		done:     make(chan struct{}),
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
	go fw.loop()
	return fw, nil
}

// Add starts watching path, a file or a directory.
func (fw *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if info.IsDir() {
		fw.dirs[abs] = true
		return fw.w.Add(abs)
	}

	fw.files[abs] = true
	return fw.w.Add(filepath.Dir(abs))
}

func (fw *Watcher) wanted(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	return fw.files[path] || fw.dirs[filepath.Dir(path)]
}

func (fw *Watcher) loop() {
	defer close(fw.evC)

	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			path := filepath.Clean(ev.Name)
			if !fw.wanted(path) {
				continue
			}

			var op Op
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}
			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}
			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}
			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}
			if ev.Op&fsnotify.Chmod != 0 {
				op |= OpChmod
			}

			select {
			case fw.evC <- Event{Path: path, Op: op, Time: time.Now()}:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default: // an undelivered error is already pending
			}
		case <-fw.done:
			return
		}
	}
}

// Run calls onChange once per burst of content changes to a watched path,
// after the path has been quiet for the debounce delay. It returns when ctx
// is done, the watcher is closed or the underlying watcher fails.
func (fw *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	fired := make(chan string, 16)
	stop := make(chan struct{})
	timers := make(map[string]*time.Timer)
	defer func() {
		close(stop)
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.evC:
			if !ok {
				return nil
			}
			if ev.Op&(OpCreate|OpWrite|OpRename) == 0 {
				continue
			}

			path := ev.Path
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(fw.debounce, func() {
				select {
				case fired <- path:
				case <-stop:
				}
			})
		case path := <-fired:
			delete(timers, path)
			onChange(path)
		case err := <-fw.erC:
			return err
		}
	}
}

// Close stops the watcher; Run returns nil afterwards.
func (fw *Watcher) Close() error {
	var err error
	fw.closeOnce.Do(func() {
		close(fw.done)
		err = fw.w.Close()
	})
	return err
}
