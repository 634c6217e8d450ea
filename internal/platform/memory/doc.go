// Package memory provides in-process implementations of the store interfaces.
// They back the "memory" database driver for local runs and are the default
// collaborators in service tests. Transactions are not supported: WithTx
// returns the receiver, so a failed scrape batch keeps the rows it saved.
package memory
