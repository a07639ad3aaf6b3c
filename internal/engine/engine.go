// Package engine defines the interface both storage backends satisfy and
// the on-disk marker file that pins a data directory to the engine it was
// first opened with.
package engine

// Engine is satisfied by both the log-structured kvs.LogKv and the
// Badger-backed badgerengine.Engine, so the server can select a backend at
// startup without the rest of the code knowing which one it got.
type Engine interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Name identifies which concrete Engine implementation a data directory was
// initialized with.
type Name string

const (
	// KVS is the log-structured LogKv engine.
	KVS Name = "kvs"
	// Sled is the Badger-backed tree engine, named for the original's
	// embedded tree store whose role it fills.
	Sled Name = "sled"
)

// Valid reports whether n is a recognized engine name.
func (n Name) Valid() bool {
	switch n {
	case KVS, Sled:
		return true
	default:
		return false
	}
}
