package graph

import (
	"github.com/minio/highwayhash"
)

// seenKey keys the dedup hash; HighwayHash requires exactly 32 bytes.
var seenKey = []byte("semmap.graph.dedup.seen-set.key!")

// Graph is an insertion-ordered set of triples. Adding a triple whose
// canonical form was already added is a no-op, so output order is the order
// of first appearance.
type Graph struct {
	triples []Triple
	seen    map[[highwayhash.Size128]byte]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		seen: make(map[[highwayhash.Size128]byte]struct{}),
	}
}

// Add appends t unless an identical triple is already present. It reports
// whether the triple was added.
func (g *Graph) Add(t Triple) bool {
	key := highwayhash.Sum128([]byte(t.Key()), seenKey)
	if _, dup := g.seen[key]; dup {
		return false
	}
	g.seen[key] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

// Contains reports whether an identical triple was added.
func (g *Graph) Contains(t Triple) bool {
	_, ok := g.seen[highwayhash.Sum128([]byte(t.Key()), seenKey)]
	return ok
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int { return len(g.triples) }

// Triples returns the triples in insertion order. The slice must not be
// modified.
func (g *Graph) Triples() []Triple { return g.triples }
