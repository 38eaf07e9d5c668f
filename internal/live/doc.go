// Package live composes store reads into queries that re-evaluate when the
// tables they read change.
//
// The store publishes a Change to a Feed after every committed mutation.
// A Query names the tables it depends on; Watch subscribes to those tables
// and re-runs the query on each (coalesced) wakeup, suppressing consecutive
// equal results. Map, Combine2 and Combine3 build derived queries in
// memory, and State keeps the latest value of a watched query for callers
// that poll rather than stream.
//
// There is one writer (the store) and any number of watchers. Publishing
// never blocks on a slow watcher: pending changes are buffered per
// subscription and wakeups are coalesced through a channel of capacity one.
package live
