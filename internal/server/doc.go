// Package server implements the TCP front end: an accept loop that hands
// each connection to a thread pool, and a per-connection decode/dispatch/
// encode loop running the request/response protocol against an engine.
package server
