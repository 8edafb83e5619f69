package watcher

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"timerlist/internal/producer"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// Entry file extensions picked up from the inbox.
const (
	extJSON = ".json"
	extText = ".txt"
)

// Watcher turns files dropped into an inbox directory into timers. Each
// file is one submission; removing it afterwards is its clear signal.
type Watcher struct {
	dir      string
	producer *producer.Producer
	logger   *slog.Logger
	debounce time.Duration

	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
	stopOnce  sync.Once

	// remove deletes a submitted entry; os.Remove outside tests.
	remove func(string) error

	// scanMu serializes scans; skip remembers the mod time of files that
	// could not be read, decoded or removed so they are not submitted again
	// until changed.
	scanMu sync.Mutex
	skip   map[string]time.Time
}

// New creates an inbox watcher for dir.
func New(dir string, prod *producer.Producer, logger *slog.Logger) *Watcher {
	if prod == nil {
		panic("watcher: nil producer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		producer: prod,
		logger:   logger,
		debounce: debounceInterval,
		cancel:   make(chan struct{}),
		remove:   os.Remove,
		skip:     make(map[string]time.Time),
	}
}

// Start creates the inbox if needed, submits entries already present and
// watches for new ones.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsW.Add(w.dir); err != nil {
		fsW.Close()
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}
	w.fsWatcher = fsW

	w.Scan()
	go w.watchLoop()

	w.logger.Info("watching inbox", slog.String("dir", w.dir))
	return nil
}

// Shutdown stops watching. Safe to call more than once.
func (w *Watcher) Shutdown() {
	w.stopOnce.Do(func() {
		close(w.cancel)
		if w.fsWatcher != nil {
			w.fsWatcher.Close()
		}
	})
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop() {
	var timer *time.Timer

	for {
		select {
		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			// Debounce: reset timer on each event so half-written files
			// settle before they are read.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.Scan()
			})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", slog.String("error", err.Error()))
		}
	}
}

// Scan submits every entry file currently in the inbox, in file name
// order, and returns how many timers were added.
func (w *Watcher) Scan() int {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("read inbox", slog.String("dir", w.dir), slog.String("error", err.Error()))
		return 0
	}

	added := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHidden(name) || !isEntryFile(name) {
			continue
		}
		if w.submitFile(filepath.Join(w.dir, name)) {
			added++
		}
	}
	return added
}

func (w *Watcher) submitFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if modTime, seen := w.skip[path]; seen && modTime.Equal(info.ModTime()) {
		return false
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var fields map[string]string
		fields, err = ParseEntry(filepath.Base(path), data)
		if err == nil {
			delete(w.skip, path)
			w.producer.Submit(fields, producer.ClearFunc(func() {
				if rmErr := w.remove(path); rmErr != nil {
					w.skip[path] = info.ModTime()
					w.logger.Warn("remove inbox entry", slog.String("file", path), slog.String("error", rmErr.Error()))
				}
			}))
			w.logger.Debug("inbox entry submitted", slog.String("file", path))
			return true
		}
	}

	w.skip[path] = info.ModTime()
	w.logger.Warn("skipping inbox entry", slog.String("file", path), slog.String("error", err.Error()))
	return false
}

// ParseEntry decodes an inbox file into the producer's field map. JSON
// files hold an object with name and duration members; string values are
// used as is and other values by their JSON text. Text files hold the name
// on the first line and the duration on the second.
func ParseEntry(fileName string, data []byte) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case extJSON:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fileName, err)
		}
		fields := make(map[string]string, 2)
		for _, key := range []string{producer.FieldName, producer.FieldDuration} {
			v, ok := raw[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				fields[key] = s
			} else {
				fields[key] = string(bytes.TrimSpace(v))
			}
		}
		return fields, nil

	case extText:
		fields := make(map[string]string, 2)
		scanner := bufio.NewScanner(bytes.NewReader(data))
		keys := []string{producer.FieldName, producer.FieldDuration}
		for i := 0; i < len(keys) && scanner.Scan(); i++ {
			fields[keys[i]] = strings.TrimSuffix(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		return fields, nil
	}
	return nil, fmt.Errorf("unsupported entry file: %s", fileName)
}

func isEntryFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extJSON, extText:
		return true
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
