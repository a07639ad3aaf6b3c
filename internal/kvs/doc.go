// Package kvs implements LogKv, a log-structured key-value engine: an
// append-only sequence of generation-numbered log files, an in-memory index
// from key to log position, crash-consistent recovery by replaying the log,
// and online compaction that rewrites live records forward and retires
// stale generations.
package kvs
