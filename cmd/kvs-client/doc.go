// Package main provides the entry point for kvs-client.
//
// kvs-client is the command-line tool for talking to a kvs-server: get,
// set, and rm subcommands each open one connection, issue one request, and
// exit.
//
// Usage:
//
//	kvs-client --addr 127.0.0.1:4000 set foo bar
//	kvs-client --addr 127.0.0.1:4000 get foo
//	kvs-client --addr 127.0.0.1:4000 rm foo
package main
