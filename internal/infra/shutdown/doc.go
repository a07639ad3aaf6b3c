// Package shutdown provides graceful process shutdown for the kvs-server
// binary.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - A timeout-bounded context passed to every hook
//   - Cleanup hook registration, run in reverse registration order
//   - Shutdown coordination via Handler.Wait
package shutdown
