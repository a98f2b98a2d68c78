// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonschema

import "github.com/dacolabs/uniontype/ancestry"

// Parent returns the inheritance parent of s after dereferencing it.
func (r *Resolved) Parent(s *Schema) (*Schema, bool) {
	p, ok := r.parents[r.Deref(s)]
	return p, ok
}

// Ancestors returns the inheritance chain of s: s itself, then its parent,
// and so on. A maxDepth of zero selects [ancestry.DefaultMaxDepth].
func (r *Resolved) Ancestors(s *Schema, maxDepth int) (ancestry.Chain[*Schema], error) {
	return r.builder(maxDepth).Chain(r.Deref(s))
}

// CommonAncestor returns the closest schema that every member inherits
// from, or is. Members are dereferenced first, so the branches of a oneOf
// can be passed as they appear.
func (r *Resolved) CommonAncestor(members []*Schema, maxDepth int) (ancestry.Decision[*Schema], error) {
	targets := make([]*Schema, len(members))
	for i, m := range members {
		targets[i] = r.Deref(m)
	}
	return r.builder(maxDepth).CommonAncestor(targets)
}

func (r *Resolved) builder(maxDepth int) ancestry.Builder[*Schema] {
	return ancestry.Builder[*Schema]{Parent: r.Parent, MaxDepth: maxDepth}
}
