package dag

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
)

// node is a single vertex. seq records insertion order, which is the
// tie-break for every ordering the graph hands out.
type node struct {
	id         string
	seq        int
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed acyclic graph of string identifiers. An edge from A to B
// means B depends on A.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	n := &node{
		id:         id,
		seq:        len(g.order),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	g.order = append(g.order, n)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]string, 0, len(g.order))
	for _, n := range g.order {
		ids = append(ids, n.id)
	}
	return ids
}

// Dependencies returns the IDs the given node depends on, in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the IDs that depend on the given node, in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.dependents), nil
}

func sortedIDs(m map[string]*node) []string {
	nodes := make([]*node, 0, len(m))
	for _, n := range m {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.id)
	}
	return ids
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, id := range sortedIDs(n.dependents) {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	// Walking in insertion order keeps the reported node stable.
	for _, n := range g.order {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}

// TopologicalOrder returns every node ID such that dependencies precede their
// dependents. Among nodes that are ready at the same time, the one inserted
// first wins, so the result is stable for a given construction sequence.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indeg := make(map[string]int, len(g.order))
	ready := &seqHeap{}
	for _, n := range g.order {
		indeg[n.id] = len(n.deps)
		if len(n.deps) == 0 {
			heap.Push(ready, n)
		}
	}

	out := make([]string, 0, len(g.order))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*node)
		out = append(out, n.id)
		for _, dependent := range n.dependents {
			indeg[dependent.id]--
			if indeg[dependent.id] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(out) != len(g.order) {
		if err := g.detectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("graph is not acyclic")
	}
	return out, nil
}

// Ancestors returns every node reachable by following dependencies from the
// given roots, up to depth levels (depth < 0 means unbounded). The roots
// themselves are not included unless reachable from another root.
func (g *Graph) Ancestors(depth int, roots ...string) []string {
	return g.walk(depth, roots, func(n *node) map[string]*node { return n.deps })
}

// Descendants is the mirror of Ancestors, following dependents.
func (g *Graph) Descendants(depth int, roots ...string) []string {
	return g.walk(depth, roots, func(n *node) map[string]*node { return n.dependents })
}

func (g *Graph) walk(depth int, roots []string, next func(*node) map[string]*node) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]bool)
	frontier := make([]*node, 0, len(roots))
	for _, id := range roots {
		if n, ok := g.nodes[id]; ok {
			frontier = append(frontier, n)
		}
	}

	for level := 0; len(frontier) > 0 && (depth < 0 || level < depth); level++ {
		var nextFrontier []*node
		for _, n := range frontier {
			for _, id := range sortedIDs(next(n)) {
				if seen[id] {
					continue
				}
				seen[id] = true
				nextFrontier = append(nextFrontier, g.nodes[id])
			}
		}
		frontier = nextFrontier
	}

	var out []string
	for _, n := range g.order {
		if seen[n.id] {
			out = append(out, n.id)
		}
	}
	return out
}

// Subgraph returns a new graph holding only the given IDs and the edges
// between them. Insertion order of the original graph is preserved.
func (g *Graph) Subgraph(ids []string) *Graph {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	sub := New()
	for _, n := range g.order {
		if keep[n.id] {
			sub.AddNode(n.id)
		}
	}
	for _, n := range g.order {
		if !keep[n.id] {
			continue
		}
		for _, depID := range sortedIDs(n.deps) {
			if keep[depID] {
				// Both endpoints exist and differ, so this cannot fail.
				_ = sub.AddEdge(depID, n.id)
			}
		}
	}
	return sub
}

// seqHeap orders ready nodes by insertion sequence.
type seqHeap []*node

func (h seqHeap) Len() int           { return len(h) }
func (h seqHeap) Less(i, j int) bool { return h[i].seq < h[j].seq }
func (h seqHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *seqHeap) Push(x any)        { *h = append(*h, x.(*node)) }
func (h *seqHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
