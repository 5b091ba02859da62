package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Equal(t, 0, g.Len())
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.Equal(t, 0, nodeA.seq)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
	assert.True(t, g.Has("b"))
	assert.False(t, g.Has("c"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")

		_, err = g.Dependencies("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDependencies_InsertionOrder(t *testing.T) {
	g := New()
	for _, id := range []string{"z", "m", "a", "sink"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "sink"))
	require.NoError(t, g.AddEdge("z", "sink"))
	require.NoError(t, g.AddEdge("m", "sink"))

	deps, err := g.Dependencies("sink")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "m", "a"}, deps, "never alphabetical, always declaration order")
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New()
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		g.AddNode("d")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // Transitive edge
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))
		err := g.DetectCycles()
		assert.ErrorContains(t, err, "cycle detected involving node 'a'")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y"))

		err := g.DetectCycles()
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("dependency declared after dependent", func(t *testing.T) {
		g := New()
		g.AddNode("do_input")
		g.AddNode("do_something")
		require.NoError(t, g.AddEdge("do_something", "do_input"))

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"do_something", "do_input"}, order)
	})

	t.Run("ties break by insertion order", func(t *testing.T) {
		g := New()
		for _, id := range []string{"c", "b", "a", "join"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "join"))
		require.NoError(t, g.AddEdge("c", "join"))

		for range 20 {
			order, err := g.TopologicalOrder()
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "b", "a", "join"}, order)
		}
	})

	t.Run("diamond", func(t *testing.T) {
		g := New()
		for _, id := range []string{"root", "left", "right", "sink"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("root", "left"))
		require.NoError(t, g.AddEdge("root", "right"))
		require.NoError(t, g.AddEdge("left", "sink"))
		require.NoError(t, g.AddEdge("right", "sink"))

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "left", "right", "sink"}, order)
	})

	t.Run("cycle is reported", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		_, err := g.TopologicalOrder()
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id)
	}
	// a -> b -> c -> d
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "d"))

	assert.Equal(t, []string{"a", "b", "c"}, g.Ancestors(-1, "d"))
	assert.Equal(t, []string{"c"}, g.Ancestors(1, "d"))
	assert.Equal(t, []string{"b", "c"}, g.Ancestors(2, "d"))
	assert.Empty(t, g.Ancestors(-1, "a"))
	assert.Equal(t, []string{"c", "d"}, g.Descendants(-1, "b"))
	assert.Equal(t, []string{"b"}, g.Descendants(1, "a"))
	assert.Empty(t, g.Descendants(-1, "unknown"))
}

func TestSubgraph(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	sub := g.Subgraph([]string{"c", "b"})
	assert.Equal(t, []string{"b", "c"}, sub.Nodes())

	deps, err := sub.Dependencies("b")
	require.NoError(t, err)
	assert.Empty(t, deps, "edge to a node outside the subgraph is dropped")

	deps, err = sub.Dependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, deps)
}
