package badgerengine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/dgraph-io/badger/v3"

	"github.com/cedrickchee/bitcask/internal/kvserr"
)

// DefaultGCInterval is how often the background value-log GC pass runs when
// the caller doesn't supply one.
const DefaultGCInterval = 10 * time.Minute

// Option configures an Engine at Open time.
type Option func(*options)

type options struct {
	gcInterval time.Duration
	logger     *slog.Logger
}

// WithGCInterval overrides the background value-log GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(o *options) { o.gcInterval = d }
}

// WithLogger overrides the structured logger used for engine lifecycle and
// GC events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine wraps a *badger.DB and satisfies engine.Engine. It holds keys and
// values as plain strings: Set stores bytes verbatim, Get UTF-8-validates
// what comes back so a caller never sees value bytes it can't treat as text.
type Engine struct {
	db     *badger.DB
	logger *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (or creates) a Badger database rooted at dir.
func Open(dir string, opts ...Option) (*Engine, error) {
	o := options{gcInterval: DefaultGCInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	badgerOpts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{logger: o.logger})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, kvserr.Wrapf(kvserr.IoError, err, "badgerengine: open %s", dir)
	}

	e := &Engine{
		db:     db,
		logger: o.logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go e.gcLoop(o.gcInterval)

	o.logger.Info("badger engine started", "dir", dir, "gc_interval", o.gcInterval)
	return e, nil
}

// Get fetches the value bound to key. ok is false when the key is absent.
// A value that isn't valid UTF-8 is reported as a CorruptValue error rather
// than silently returned, since every value this engine ever wrote came
// from a UTF-8 string.
func (e *Engine) Get(key string) (string, bool, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", false, kvserr.Wrap(kvserr.IoError, err)
	}
	if value == nil {
		return "", false, nil
	}
	if !utf8.Valid(value) {
		return "", false, kvserr.New(kvserr.CorruptValue, fmt.Sprintf("value for key %q is not valid UTF-8", key))
	}
	return string(value), true, nil
}

// Set binds key to value.
func (e *Engine) Set(key, value string) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	return nil
}

// Remove deletes key, reporting KeyNotFound if it wasn't set, and flushes
// the delete to the value log so a subsequent Get never races a pending
// compaction.
func (e *Engine) Remove(key string) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return kvserr.New(kvserr.KeyNotFound, fmt.Sprintf("key %q not found", key))
			}
			return err
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		if kvserr.Is(err, kvserr.KeyNotFound) {
			return err
		}
		return kvserr.Wrap(kvserr.IoError, err)
	}
	return e.db.Sync()
}

// Close stops the background GC loop and closes the underlying database.
func (e *Engine) Close() error {
	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	return nil
}

// gcLoop periodically reclaims value-log space. Badger recommends running
// RunValueLogGC on a ticker rather than only on write pressure; each pass
// only compacts if it thinks there's enough garbage, so a no-op tick is
// cheap and expected.
func (e *Engine) gcLoop(interval time.Duration) {
	defer close(e.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				if err := e.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						e.logger.Warn("badgerengine: value log gc failed", "error", err)
					}
					break
				}
			}
		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts an *slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
