// Package dag holds the dependency graph that execution plans are computed
// from. Nodes are plain string identifiers (solid names or step keys) and
// every ordering the graph exposes is derived from insertion order, so two
// graphs built from the same definition always yield the same plan.
package dag
