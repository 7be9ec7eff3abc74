// Package telemetry records action executions and group navigations to an
// append-only JSON-Lines log while maintaining live in-memory aggregates.
//
// Record calls update the aggregates synchronously under one mutex and
// enqueue the durable append, which a single background worker performs off
// the interactive path. Because the queue is appended to under the same
// mutex as the aggregates, on-disk line order always matches the order the
// aggregates observed the events in, and a startup replay of the log file
// reconstructs identical aggregate state.
//
// The log file is opened once in append mode and each record is one JSON
// value followed by a newline, so a crash mid-write can at worst truncate
// the final line.
package telemetry
