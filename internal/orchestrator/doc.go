// Package orchestrator runs externally-facing actions as tracked tasks.
//
// A Tracker wraps any unit of work in a task that moves from pending through
// running to completed or failed. An Orchestrator builds on it to walk a set
// of target channels, skipping targets already completed for the same owner
// and content, pacing every attempt and isolating per-target failures. Work
// is handed to a bounded job runner so triggering requests never wait for it.
//
// All task and completion-record access goes through the dispatch bus.
package orchestrator
