// Package index provides the in-memory key directory mapping live keys to
// their location in the log: a concurrent map for the hot Get/Set/Remove
// path, plus a sorted snapshot for compaction, which must walk keys in a
// deterministic order while the map keeps serving reads.
package index

import (
	"sort"

	"github.com/cedrickchee/bitcask/pkg/cmap"
)

// LogPointer locates a command record on disk: the generation file it lives
// in, its byte offset within that file, and its encoded length.
type LogPointer struct {
	Gen    uint64
	Offset int64
	Length int64
}

// Index is the concurrent key directory. It is safe for use by multiple
// goroutines; the single-writer discipline is enforced by the engine above
// it, not by Index itself.
type Index struct {
	m *cmap.Map[string, LogPointer]
}

// New creates an empty Index.
func New() *Index {
	return &Index{m: cmap.New[string, LogPointer]()}
}

// Get returns the pointer for key, if it is live.
func (idx *Index) Get(key string) (LogPointer, bool) {
	return idx.m.Get(key)
}

// Set records key as live at ptr, returning the pointer it replaced, if any.
// The caller uses the replaced pointer's Length to grow the uncompacted
// counter.
func (idx *Index) Set(key string, ptr LogPointer) (old LogPointer, existed bool) {
	idx.m.Upsert(key, ptr, func(existing LogPointer, exists bool) LogPointer {
		if exists {
			old, existed = existing, true
		}
		return ptr
	})
	return old, existed
}

// Remove deletes key from the index, returning the pointer it held, if any.
func (idx *Index) Remove(key string) (LogPointer, bool) {
	return idx.m.Pop(key)
}

// Len returns the number of live keys.
func (idx *Index) Len() int {
	return idx.m.Count()
}

// Entry pairs a key with its current pointer, as produced by Iter.
type Entry struct {
	Key string
	Ptr LogPointer
}

// Iter returns a snapshot of all live entries sorted by key. Compaction
// walks this snapshot to decide, in a stable and reproducible order, which
// records to carry forward; readers and writers may continue to observe and
// mutate the live index concurrently with that walk.
func (idx *Index) Iter() []Entry {
	items := idx.m.Items()
	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = Entry{Key: it.Key, Ptr: it.Value}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// CompareAndSet updates key to newPtr only if its current pointer is still
// oldPtr, reporting whether the swap took place. Compaction uses this to
// install a record's compacted location without clobbering a concurrent
// write to the same key.
func (idx *Index) CompareAndSet(key string, oldPtr, newPtr LogPointer) bool {
	return cmap.CompareAndSwapEqual(idx.m, key, oldPtr, newPtr)
}
