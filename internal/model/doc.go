// Package model defines the GraphWalker entities and the small set of rules
// that apply to them independent of storage.
//
// Entities mirror the relational schema one to one: Graph, Node, Connector,
// Edge, Clique and the clique membership cross reference. View types
// (FullGraph, CliqueWithNodes, NodeWithCliques, ConnectorEdge,
// UnconnectedConnector) are assembled in memory by the repository from
// several live queries rather than by relational joins.
//
// Rules enforced here:
//   - Names are NFC normalized and trimmed; graph, node and clique names must be non-blank
//   - Tags form an ordered set: no blanks, no duplicates
//   - Edge weights default to 1.0
//   - Graph flags decide how requested edges are normalized (see Graph.NormalizeEdge)
//
// model imports nothing internal except errors; every other package imports model.
package model
