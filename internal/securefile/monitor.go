package securefile

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// TamperFunc is called when a tracked file changes while it is live.
type TamperFunc func(path string, op fsnotify.Op)

// Monitor watches the directories of sealed files and reports changes to
// tracked files. It observes only.
type Monitor struct {
	watcher  *fsnotify.Watcher
	onTamper TamperFunc
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	tracked map[string]struct{}
	dirs    map[string]int
}

func NewMonitor(onTamper TamperFunc) (*Monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	m := &Monitor{
		watcher:  w,
		onTamper: onTamper,
		stopChan: make(chan struct{}),
		tracked:  make(map[string]struct{}),
		dirs:     make(map[string]int),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

// Watch starts reporting on path.
func (m *Monitor) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracked[path]; ok {
		return nil
	}
	if m.dirs[dir] == 0 {
		if err := m.watcher.Add(dir); err != nil {
			return err
		}
	}
	m.dirs[dir]++
	m.tracked[path] = struct{}{}
	return nil
}

// Forget stops reporting on path. Call it before releasing the file.
func (m *Monitor) Forget(path string) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracked[path]; !ok {
		return
	}
	delete(m.tracked, path)
	m.dirs[dir]--
	if m.dirs[dir] == 0 {
		delete(m.dirs, dir)
		_ = m.watcher.Remove(dir)
	}
}

// Stop stops the watcher.
func (m *Monitor) Stop() error {
	close(m.stopChan)
	m.wg.Wait()
	return m.watcher.Close()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Monitor error: %v", err)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) handleEvent(event fsnotify.Event) {
	// Sealing finishes before Watch and Release starts after Forget, so any
	// change seen in between came from somewhere else.
	if event.Op&(fsnotify.Write|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := filepath.Clean(event.Name)

	m.mu.Lock()
	_, ok := m.tracked[path]
	m.mu.Unlock()
	if !ok {
		return
	}

	log.Error("Settings file %s was tampered with (%s)", path, event.Op)
	if m.onTamper != nil {
		m.onTamper(path, event.Op)
	}
}
