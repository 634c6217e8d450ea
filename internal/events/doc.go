// Package events carries task change notifications from the task service to
// whoever needs to react to them, such as the live-update broadcaster,
// without the service depending on those consumers.
package events
