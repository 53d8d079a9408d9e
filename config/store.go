package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

// Store holds the current configuration and, when watching, reloads it after
// files in its directory change. A reload that fails to parse or validate
// keeps the previous value.
type Store[T any] struct {
	dir      string
	watch    bool
	debounce time.Duration
	logger   *slog.Logger

	current atomic.Pointer[T]

	mu          sync.Mutex
	subscribers []func(*T)
	watcher     *fsnotify.Watcher
	stopCh      chan struct{}
	stopped     chan struct{}
}

type StoreOption func(*storeConfig)

type storeConfig struct {
	watch    bool
	debounce time.Duration
	logger   *slog.Logger
}

func WithWatch(enabled bool) StoreOption {
	return func(cfg *storeConfig) {
		cfg.watch = enabled
	}
}

func WithDebounce(d time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		cfg.debounce = d
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// NewStore loads dir once. Watching starts with OnInit.
func NewStore[T any](dir string, opts ...StoreOption) (*Store[T], error) {
	cfg := &storeConfig{debounce: DefaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	initial, err := Load[T](dir)
	if err != nil {
		return nil, err
	}

	s := &Store[T]{
		dir:      dir,
		watch:    cfg.watch,
		debounce: cfg.debounce,
		logger:   cfg.logger.With("component", "config", "dir", dir),
	}
	s.current.Store(initial)
	return s, nil
}

func (s *Store[T]) Get() *T {
	return s.current.Load()
}

func (s *Store[T]) Dir() string {
	return s.dir
}

// OnChange registers fn to run after every successful reload.
func (s *Store[T]) OnChange(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store[T]) Reload() error {
	next, err := Load[T](s.dir)
	if err != nil {
		return err
	}
	s.current.Store(next)

	s.mu.Lock()
	subscribers := append(([]func(*T))(nil), s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(next)
	}
	return nil
}

func (s *Store[T]) OnInit(context.Context) error {
	if !s.watch {
		return nil
	}
	return s.Watch()
}

func (s *Store[T]) OnDestroy(context.Context) error {
	s.Stop()
	return nil
}

// Watch starts reloading on file changes. Calling it twice is a no-op.
func (s *Store[T]) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	s.watcher = w
	s.stopCh = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.loop(w, s.stopCh, s.stopped)

	s.logger.Info("configuration hot reload enabled")
	return nil
}

// Stop ends watching and waits for the watch loop to exit.
func (s *Store[T]) Stop() {
	s.mu.Lock()
	if s.watcher == nil {
		s.mu.Unlock()
		return
	}
	stopCh, stopped := s.stopCh, s.stopped
	s.watcher = nil
	s.mu.Unlock()

	close(stopCh)
	<-stopped
}

func (s *Store[T]) loop(w *fsnotify.Watcher, stopCh <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer func() { _ = w.Close() }()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			s.logger.Debug("configuration file changed", "file", event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(s.debounce, s.reloadLogged)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "error", err)

		case <-stopCh:
			return
		}
	}
}

func (s *Store[T]) reloadLogged() {
	if err := s.Reload(); err != nil {
		s.logger.Error("configuration reload failed, keeping previous values", "error", err)
		return
	}
	s.logger.Info("configuration reloaded")
}
