// Package watcher observes directories of flow documents and emits
// change events so callers can recompile PlanSpace output on save.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 256

	// defaultDebounce is used when the configured delay is zero.
	defaultDebounce = 500 * time.Millisecond
)

// Config configures flow document watching.
type Config struct {
	// DebounceDelay is how long to wait for more changes before
	// processing.
	DebounceDelay time.Duration

	// Extensions lists document file extensions to watch.
	Extensions []string

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: defaultDebounce,
		Extensions:    []string{".yaml", ".yml"},
		ExcludeDirs:   []string{".git", "node_modules", "vendor"},
	}
}

func (c *Config) debounce() time.Duration {
	if c.DebounceDelay <= 0 {
		return defaultDebounce
	}
	return c.DebounceDelay
}

// Operation indicates the type of file operation.
type Operation string

// Create, Modify, and Delete enumerate the watch operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Event represents a flow document change.
type Event struct {
	// Path is the file path relative to the watched root.
	Path string

	// AbsPath is the absolute file path.
	AbsPath string

	// Operation is the type of change.
	Operation Operation
}

// FlowWatcher watches flow document directories and emits debounced,
// content-hash-deduplicated change events.
type FlowWatcher struct {
	config  Config
	root    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	// Output channel
	events chan Event

	droppedEvents atomic.Int64
}

// New creates a watcher over the given root directory.
func New(config Config, root string, logger *slog.Logger) (*FlowWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if len(config.Extensions) == 0 {
		config.Extensions = defaults.Extensions
	}
	if len(config.ExcludeDirs) == 0 {
		config.ExcludeDirs = defaults.ExcludeDirs
	}

	extensions := make(map[string]bool)
	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool)
	for _, dir := range config.ExcludeDirs {
		excludes[dir] = true
	}

	return &FlowWatcher{
		config:     config,
		root:       root,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events.
func (w *FlowWatcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the root directory for changes.
func (w *FlowWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Flow watcher started",
		"root", w.root,
		"debounce", w.config.debounce(),
		"extensions", w.config.Extensions)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *FlowWatcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to channel
// overflow.
func (w *FlowWatcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *FlowWatcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		// Skip excluded and hidden directories
		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && base != ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *FlowWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.debounce())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *FlowWatcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	// Skip files in excluded directories
	relPath, _ := filepath.Rel(w.root, path)
	for excludeDir := range w.excludes {
		if strings.Contains(relPath, excludeDir+string(filepath.Separator)) {
			return
		}
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Flow document change detected",
		"path", relPath,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *FlowWatcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending processes accumulated changes.
func (w *FlowWatcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := make(map[string]fsnotify.Op)
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.root, path)
		event := Event{
			Path:    relPath,
			AbsPath: path,
		}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			event.Operation = OpDelete
			w.forgetHash(relPath)
			w.sendEvent(event)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			event.Operation = OpDelete
			w.forgetHash(relPath)
			w.sendEvent(event)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read flow document",
				"path", relPath,
				"error", err)
			continue
		}

		newHash := ContentHash(content)

		oldHash, hadHash := w.hash(relPath)
		if hadHash && oldHash == newHash {
			// Content unchanged, skip
			continue
		}
		w.setHash(relPath, newHash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Operation = OpCreate
		} else {
			event.Operation = OpModify
		}

		w.sendEvent(event)
	}
}

// sendEvent sends an event to the output channel.
func (w *FlowWatcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event",
			"path", event.Path,
			"op", event.Operation)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

func (w *FlowWatcher) hash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	h, ok := w.hashes[path]
	return h, ok
}

func (w *FlowWatcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *FlowWatcher) forgetHash(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}

// ContentHash returns a stable hash of document content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
