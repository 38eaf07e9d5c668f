// Package store provides SQLite-backed storage for graphs and everything
// that hangs off them.
//
// Tables and cascade rules:
//   - graphs: deleting a graph deletes its nodes and cliques
//   - nodes: deleting a node deletes its connectors and clique memberships,
//     and clears graphs.starting_node_id where it pointed at the node
//   - connectors: deleting a connector deletes the edges touching it
//   - edges, cliques, clique_nodes
//
// Every committed mutation is published to the store's live.Feed as one
// live.Change per affected table, including tables reached through
// cascades. Live queries subscribe to that feed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout: configurable, 5000 ms by default
//   - foreign_keys=ON: Cascades depend on it
//
// Reads return empty slices, never nil. Lists are ordered by id except
// cliques, which are ordered by name then id.
package store
