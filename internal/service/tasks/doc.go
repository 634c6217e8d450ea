// Package tasks is the only writer of Task rows. Every change is persisted
// first and then announced through an events.EventEmitter; announcement
// failures are logged and never undo the persisted change.
//
// The package also binds its operations to the dispatch bus (Register) and
// runs the optional Reaper that fails tasks stuck in the running state.
package tasks
