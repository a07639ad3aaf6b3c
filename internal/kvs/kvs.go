package kvs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cedrickchee/bitcask/internal/index"
	"github.com/cedrickchee/bitcask/internal/kvlog"
	"github.com/cedrickchee/bitcask/internal/kvserr"
	"github.com/cedrickchee/bitcask/internal/logfile"
)

// DefaultCompactionThreshold is the number of stale bytes accumulated in the
// log before a write triggers compaction.
const DefaultCompactionThreshold = 1024

// Option configures Open.
type Option func(*options)

type options struct {
	compactionThreshold int64
	logger              *slog.Logger
}

// WithCompactionThreshold overrides DefaultCompactionThreshold.
func WithCompactionThreshold(n int64) Option {
	return func(o *options) { o.compactionThreshold = n }
}

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// shared is the state every clone of a LogKv handle refers to: the index,
// the writer critical section, and the generation bookkeeping that only the
// writer lock may mutate.
type shared struct {
	dir    string
	idx    *index.Index
	logger *slog.Logger

	compactionThreshold int64

	writerMu     sync.Mutex
	writer       *logfile.Writer
	currentGen   uint64
	uncompacted  int64
	compactions  uint64

	safePoint atomic.Uint64

	refs   atomic.Int32
	closed atomic.Bool
}

// LogKv is a handle onto a log-structured engine rooted at a directory.
// Handles are cheap to Clone: each clone shares the writer and index but
// owns a private cache of reader file handles, so concurrent reads never
// contend on a lock. The intended usage is one handle per goroutine (for
// example, one per server connection).
type LogKv struct {
	sh      *shared
	readers map[uint64]*logfile.Reader
}

// Open loads (or creates) a LogKv engine rooted at dir.
//
// It creates dir if missing, discovers existing generation files, replays
// each in ascending order to rebuild the index and the uncompacted-bytes
// counter, and opens a fresh writer on the generation past the highest one
// found so new appends never re-enter an already-replayed file.
func Open(dir string, opts ...Option) (*LogKv, error) {
	o := options{compactionThreshold: DefaultCompactionThreshold, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := logfile.EnsureDir(dir); err != nil {
		return nil, kvserr.Wrap(kvserr.IoError, err)
	}

	gens, err := logfile.SortedGens(dir)
	if err != nil {
		return nil, kvserr.Wrap(kvserr.IoError, err)
	}

	idx := index.New()
	var uncompacted int64
	for _, gen := range gens {
		n, err := replayGen(dir, gen, idx)
		if err != nil {
			return nil, err
		}
		uncompacted += n
	}

	nextGen := logfile.NextGen(gens)
	w, err := logfile.CreateWriter(logfile.Path(dir, nextGen))
	if err != nil {
		return nil, kvserr.Wrap(kvserr.IoError, err)
	}

	sh := &shared{
		dir:                 dir,
		idx:                 idx,
		logger:              o.logger,
		compactionThreshold: o.compactionThreshold,
		writer:              w,
		currentGen:          nextGen,
		uncompacted:         uncompacted,
	}
	sh.refs.Store(1)

	return &LogKv{sh: sh, readers: make(map[uint64]*logfile.Reader)}, nil
}

// replayGen reads every record in generation gen's log file in order,
// folding Set/Remove commands into idx, and returns the bytes that became
// stale as a result (to seed the uncompacted counter).
func replayGen(dir string, gen uint64, idx *index.Index) (int64, error) {
	path := logfile.Path(dir, gen)
	r, err := logfile.OpenReader(path)
	if err != nil {
		return 0, kvserr.Wrap(kvserr.IoError, err)
	}
	defer r.Close()

	dec := kvlog.NewDecoder(r)
	var uncompacted int64
	for {
		start := r.Offset()
		cmd, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, kvlog.ErrTruncatedRecord) {
				break
			}
			return 0, kvserr.Wrapf(kvserr.CorruptLog, err, "replay %s at offset %d", path, start)
		}
		end := r.Offset()
		ptr := index.LogPointer{Gen: gen, Offset: start, Length: end - start}

		switch cmd.Op {
		case kvlog.OpSet:
			if old, existed := idx.Set(cmd.Key, ptr); existed {
				uncompacted += old.Length
			}
		case kvlog.OpRemove:
			if old, existed := idx.Remove(cmd.Key); existed {
				uncompacted += old.Length
			}
			uncompacted += ptr.Length
		}
	}
	return uncompacted, nil
}

// Clone returns a new handle sharing this engine's storage. The clone owns
// its own reader cache and is intended for use by a single goroutine at a
// time, mirroring the one-handle-per-connection pattern the server uses.
func (e *LogKv) Clone() *LogKv {
	e.sh.refs.Add(1)
	return &LogKv{sh: e.sh, readers: make(map[uint64]*logfile.Reader)}
}

// Get looks up key and returns its value, or ok=false if the key is not
// present.
func (e *LogKv) Get(key string) (string, bool, error) {
	if e.sh.closed.Load() {
		return "", false, kvserr.New(kvserr.IoError, "engine closed")
	}

	e.closeStaleHandles()

	ptr, ok := e.sh.idx.Get(key)
	if !ok {
		return "", false, nil
	}

	cmd, err := e.readCommand(ptr)
	if err != nil {
		return "", false, err
	}
	if cmd.Op != kvlog.OpSet {
		return "", false, kvserr.New(kvserr.CorruptLog, fmt.Sprintf("expected set record at %+v, found %s", ptr, cmd.Op))
	}
	return cmd.Value, true, nil
}

// readCommand fetches and decodes the record at ptr using (and lazily
// populating) this handle's private reader cache.
func (e *LogKv) readCommand(ptr index.LogPointer) (kvlog.Command, error) {
	r, err := e.readerFor(ptr.Gen)
	if err != nil {
		return kvlog.Command{}, err
	}

	buf := make([]byte, ptr.Length)
	if err := r.ReadFull(ptr.Offset, buf); err != nil {
		return kvlog.Command{}, kvserr.Wrap(kvserr.IoError, err)
	}

	dec := kvlog.NewDecoder(&sliceReader{b: buf})
	cmd, err := dec.Next()
	if err != nil {
		return kvlog.Command{}, kvserr.Wrap(kvserr.CorruptLog, err)
	}
	return cmd, nil
}

func (e *LogKv) readerFor(gen uint64) (*logfile.Reader, error) {
	if r, ok := e.readers[gen]; ok {
		return r, nil
	}
	r, err := logfile.OpenReader(logfile.Path(e.sh.dir, gen))
	if err != nil {
		return nil, kvserr.Wrap(kvserr.IoError, err)
	}
	e.readers[gen] = r
	return r, nil
}

// closeStaleHandles drops cached reader handles for generations that have
// fallen below the published safe point, as spec requires: the safe-point
// load happens before any handle lookup on the read path.
func (e *LogKv) closeStaleHandles() {
	sp := e.sh.safePoint.Load()
	for gen, r := range e.readers {
		if gen < sp {
			r.Close()
			delete(e.readers, gen)
		}
	}
}

// Set binds key to value, appending a Set record and triggering compaction
// if the resulting stale-byte count crosses the configured threshold.
func (e *LogKv) Set(key, value string) error {
	if e.sh.closed.Load() {
		return kvserr.New(kvserr.IoError, "engine closed")
	}

	e.sh.writerMu.Lock()
	defer e.sh.writerMu.Unlock()

	start := e.sh.writer.Offset()
	if err := kvlog.Encode(e.sh.writer, kvlog.NewSet(key, value)); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	if err := e.sh.writer.Flush(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	end := e.sh.writer.Offset()

	ptr := index.LogPointer{Gen: e.sh.currentGen, Offset: start, Length: end - start}
	if old, existed := e.sh.idx.Set(key, ptr); existed {
		e.sh.uncompacted += old.Length
	}

	if e.sh.uncompacted > e.sh.compactionThreshold {
		if err := e.compactLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes key, failing with kvserr.KeyNotFound if it is absent.
func (e *LogKv) Remove(key string) error {
	if e.sh.closed.Load() {
		return kvserr.New(kvserr.IoError, "engine closed")
	}

	e.sh.writerMu.Lock()
	defer e.sh.writerMu.Unlock()

	if _, ok := e.sh.idx.Get(key); !ok {
		return kvserr.New(kvserr.KeyNotFound, key)
	}

	start := e.sh.writer.Offset()
	if err := kvlog.Encode(e.sh.writer, kvlog.NewRemove(key)); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	if err := e.sh.writer.Flush(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	end := e.sh.writer.Offset()

	old, existed := e.sh.idx.Remove(key)
	if existed {
		e.sh.uncompacted += old.Length
	}
	e.sh.uncompacted += end - start

	if e.sh.uncompacted > e.sh.compactionThreshold {
		if err := e.compactLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports the engine's current generation and stale-byte count, both
// consistent only as of the moment of the call.
type Stats struct {
	CurrentGen  uint64
	Uncompacted int64
	Keys        int
	Compactions uint64
}

// Stats returns a snapshot of engine bookkeeping.
func (e *LogKv) Stats() Stats {
	e.sh.writerMu.Lock()
	defer e.sh.writerMu.Unlock()
	return Stats{
		CurrentGen:  e.sh.currentGen,
		Uncompacted: e.sh.uncompacted,
		Keys:        e.sh.idx.Len(),
		Compactions: e.sh.compactions,
	}
}

// SetCompactionThreshold changes the stale-byte threshold that triggers
// compaction, taking effect from the next Set or Remove. It's the one
// engine setting safe to change on a running server, so config hot-reload
// calls this rather than requiring a restart.
func (e *LogKv) SetCompactionThreshold(n int64) {
	e.sh.writerMu.Lock()
	defer e.sh.writerMu.Unlock()
	e.sh.compactionThreshold = n
}

// Close releases this handle's private reader cache. The underlying
// storage (writer, index) is closed once the last outstanding handle
// closes.
func (e *LogKv) Close() error {
	for gen, r := range e.readers {
		r.Close()
		delete(e.readers, gen)
	}

	if e.sh.refs.Add(-1) > 0 {
		return nil
	}

	e.sh.closed.Store(true)
	e.sh.writerMu.Lock()
	defer e.sh.writerMu.Unlock()
	if err := e.sh.writer.Close(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	return nil
}

// sliceReader is a trivial io.Reader over an in-memory buffer, used to
// decode a single already-fetched record without re-touching the file.
type sliceReader struct {
	b   []byte
	pos int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.pos:])
	s.pos += n
	return n, nil
}
