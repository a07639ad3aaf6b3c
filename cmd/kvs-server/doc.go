// Package main provides the entry point for kvs-server.
//
// kvs-server opens a data directory with the selected engine, binds a TCP
// listener, and serves get/set/remove requests from any number of
// concurrent clients.
//
// Usage:
//
//	kvs-server --dir /var/lib/kvs --addr 127.0.0.1:4000
//	kvs-server --dir /var/lib/kvs --config /etc/kvs/server.yaml
package main
