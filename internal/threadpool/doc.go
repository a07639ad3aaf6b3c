// Package threadpool provides worker pools (one bounded, one unbounded) for dispatching
// connection-handling tasks off the accept loop.
package threadpool
