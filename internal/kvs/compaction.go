package kvs

import (
	"os"

	"github.com/cedrickchee/bitcask/internal/index"
	"github.com/cedrickchee/bitcask/internal/kvserr"
	"github.com/cedrickchee/bitcask/internal/logfile"
)

// compactLocked rewrites every live record forward into a fresh generation
// and retires the generations it replaces. Callers must hold sh.writerMu.
//
// Steps, matching the design this engine follows:
//  1. Allocate compactionGen = currentGen+1 and nextWriteGen = currentGen+2;
//     switch the writer to nextWriteGen so new appends land there.
//  2. Walk the index in key order, copying each live record's bytes
//     verbatim into the compaction file and repointing the index entry at
//     its new location.
//  3. Flush the compaction file.
//  4. Publish the safe point so reader handles know which cached
//     generations are now retired.
//  5. Delete every generation below the compaction generation, best-effort.
//  6. Reset the uncompacted counter.
func (e *LogKv) compactLocked() error {
	sh := e.sh

	compactionGen := sh.currentGen + 1
	nextWriteGen := sh.currentGen + 2

	compactionWriter, err := logfile.CreateWriter(logfile.Path(sh.dir, compactionGen))
	if err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	nextWriter, err := logfile.CreateWriter(logfile.Path(sh.dir, nextWriteGen))
	if err != nil {
		compactionWriter.Close()
		return kvserr.Wrap(kvserr.IoError, err)
	}

	// Generations on disk at this point include the two just created; the
	// deletion pass below filters those back out by gen < compactionGen.
	existingGens, err := logfile.SortedGens(sh.dir)
	if err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	if err := sh.writer.Close(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	sh.writer = nextWriter
	sh.currentGen = nextWriteGen

	readers := make(map[uint64]*logfile.Reader)
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	entries := sh.idx.Iter()
	for _, entry := range entries {
		r, ok := readers[entry.Ptr.Gen]
		if !ok {
			r, err = logfile.OpenReader(logfile.Path(sh.dir, entry.Ptr.Gen))
			if err != nil {
				return kvserr.Wrap(kvserr.IoError, err)
			}
			readers[entry.Ptr.Gen] = r
		}

		buf := make([]byte, entry.Ptr.Length)
		if err := r.ReadFull(entry.Ptr.Offset, buf); err != nil {
			return kvserr.Wrap(kvserr.IoError, err)
		}

		newOffset := compactionWriter.Offset()
		if _, err := compactionWriter.Write(buf); err != nil {
			return kvserr.Wrap(kvserr.IoError, err)
		}

		newPtr := index.LogPointer{Gen: compactionGen, Offset: newOffset, Length: entry.Ptr.Length}
		sh.idx.CompareAndSet(entry.Key, entry.Ptr, newPtr)
	}

	if err := compactionWriter.Flush(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	if err := compactionWriter.Close(); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	sh.safePoint.Store(compactionGen)

	for _, gen := range existingGens {
		if gen >= compactionGen {
			continue
		}
		if err := os.Remove(logfile.Path(sh.dir, gen)); err != nil && !os.IsNotExist(err) {
			sh.logger.Warn("compaction: failed to remove stale log file, will retry next compaction",
				"gen", gen, "error", err)
		}
	}

	sh.uncompacted = 0
	sh.compactions++
	return nil
}
