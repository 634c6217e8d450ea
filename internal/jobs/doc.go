// Package jobs runs fire-and-forget background work on a bounded queue
// served by a fixed pool of workers.
//
// Submitting never blocks: when the queue is full the caller gets
// ErrQueueFull and can report it. Each job runs with panic isolation, so one
// misbehaving job cannot take a worker down, and failures are reported
// through an error handler instead of being lost.
package jobs
