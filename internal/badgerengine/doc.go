// Package badgerengine adapts a Badger LSM-tree database to the engine.Engine
// interface, giving the server an alternative to the log-structured kvs
// engine without changing anything above the engine boundary.
package badgerengine
