// Package shell connects the pure core to the outside: it maps domain events to journal entries
// and back, retries journal appends on concurrency conflicts, builds the process logger, and
// observes command handlers.
package shell
