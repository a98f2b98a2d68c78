// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ancestry finds the closest common ancestor of a set of nodes
// in a single-parent inheritance forest.
//
// A node's [Chain] lists the node itself followed by its parent, its
// parent's parent, and so on up to a root. The common ancestor of a union
// is the first node of any member's chain that appears in every other
// member's chain. In a forest those shared nodes form a suffix of each
// chain, so the result does not depend on the order of the members.
package ancestry

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth is the chain length limit used when a Builder has none.
const DefaultMaxDepth = 256

var (
	// ErrCyclicInheritance reports a parent chain longer than the depth limit.
	// The parent relation is expected to be acyclic; exceeding the limit
	// means it is not.
	ErrCyclicInheritance = errors.New("cyclic inheritance")

	// ErrEmptyUnion reports a common ancestor request with no members.
	ErrEmptyUnion = errors.New("empty union")
)

// A ParentFunc returns the parent of a node, and false if the node is a root.
type ParentFunc[N comparable] func(N) (N, bool)

// A Chain is the ordered list of a node's ancestors, starting with the node itself.
type Chain[N comparable] struct {
	nodes []N
	index map[N]int
}

// Nodes returns the chain, most derived first. The caller must not modify it.
func (c Chain[N]) Nodes() []N { return c.nodes }

// Len returns the number of nodes in the chain.
func (c Chain[N]) Len() int { return len(c.nodes) }

// Index returns the position of n in the chain.
func (c Chain[N]) Index(n N) (int, bool) {
	i, ok := c.index[n]
	return i, ok
}

// Contains reports whether n is in the chain.
func (c Chain[N]) Contains(n N) bool {
	_, ok := c.index[n]
	return ok
}

// A Decision is the outcome of resolving a union: either a common ancestor
// or none.
type Decision[N comparable] struct {
	node  N
	found bool
}

// Common returns the decision that n is the common ancestor.
func Common[N comparable](n N) Decision[N] { return Decision[N]{node: n, found: true} }

// None returns the decision that the members share no ancestor.
func None[N comparable]() Decision[N] { return Decision[N]{} }

// Ancestor returns the common ancestor, if there is one.
func (d Decision[N]) Ancestor() (N, bool) { return d.node, d.found }

// Found reports whether d holds a common ancestor.
func (d Decision[N]) Found() bool { return d.found }

func (d Decision[N]) String() string {
	if !d.found {
		return "no common ancestor"
	}
	return fmt.Sprintf("common ancestor %v", d.node)
}

// A Builder computes ancestor chains and common ancestors.
// The zero MaxDepth means DefaultMaxDepth.
//
// A Builder holds no state between calls and may be used concurrently,
// provided Parent is safe for concurrent use.
type Builder[N comparable] struct {
	Parent   ParentFunc[N]
	MaxDepth int
}

func (b Builder[N]) maxDepth() int {
	if b.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return b.MaxDepth
}

// Chain returns the ancestor chain of n.
// It fails with ErrCyclicInheritance if the chain would hold more than
// MaxDepth nodes.
func (b Builder[N]) Chain(n N) (Chain[N], error) {
	limit := b.maxDepth()
	c := Chain[N]{index: make(map[N]int)}
	for cur, ok := n, true; ok; cur, ok = b.Parent(cur) {
		if len(c.nodes) == limit {
			return Chain[N]{}, fmt.Errorf("%w: ancestors of %v exceed depth %d", ErrCyclicInheritance, n, limit)
		}
		if _, seen := c.index[cur]; !seen {
			c.index[cur] = len(c.nodes)
		}
		c.nodes = append(c.nodes, cur)
	}
	return c, nil
}

// CommonAncestor returns the most derived node shared by the chains of all members.
// A single member is its own common ancestor.
func (b Builder[N]) CommonAncestor(members []N) (Decision[N], error) {
	switch len(members) {
	case 0:
		return None[N](), ErrEmptyUnion
	case 1:
		return Common(members[0]), nil
	}
	chains := make([]Chain[N], len(members))
	for i, m := range members {
		c, err := b.Chain(m)
		if err != nil {
			return None[N](), err
		}
		chains[i] = c
	}
	first, rest := chains[0], chains[1:]
outer:
	for _, n := range first.nodes {
		for _, c := range rest {
			if !c.Contains(n) {
				continue outer
			}
		}
		return Common(n), nil
	}
	return None[N](), nil
}
