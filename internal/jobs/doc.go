// Package jobs defines the background job model and its SQLite-backed store.
//
// A job is created Queued by a submission, claimed and advanced by exactly one
// workflow worker, and becomes immutable once it reaches a terminal state
// (Done, Failed, or Cancelled). The store is the single shared record between
// the running worker and status polls: every read returns a complete snapshot,
// and writers serialize through SQLite's WAL with busy retries.
package jobs
