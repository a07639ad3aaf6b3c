// Package config loads kvs-server's configuration from CLI flags, an
// optional YAML file, and environment variables, and watches the file for
// changes to the one setting safe to change without a restart: the
// compaction threshold.
package config
