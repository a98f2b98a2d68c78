// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonschema

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedRef is returned for a $ref that is not a local JSON pointer.
	ErrUnsupportedRef = errors.New("unsupported $ref")
	// ErrUnresolvedRef is returned for a $ref whose target does not exist.
	ErrUnresolvedRef = errors.New("unresolved $ref")
	// ErrRefCycle is returned when following $refs never reaches a schema without one.
	ErrRefCycle = errors.New("$ref cycle")
)

// maxRefHops bounds how many $refs Deref follows from a single schema.
const maxRefHops = 64

// ResolveOptions are options for [Schema.Resolve].
type ResolveOptions struct {
	// Logger receives diagnostics found during resolution.
	// If nil, diagnostics are discarded.
	Logger *slog.Logger
}

// A Resolved is a schema whose local references have been dereferenced and
// whose inheritance links have been computed.
// It must not be modified, and is safe for concurrent use.
type Resolved struct {
	root    *Schema
	refs    map[*Schema]*Schema // schema with $ref -> its immediate target
	names   map[*Schema]string  // root definition -> its name
	parents map[*Schema]*Schema
	multi   []*Schema
}

// Resolve dereferences every $ref in root and links each schema to its
// inheritance parent.
//
// The parent of a schema is the first allOf entry that is a $ref to an
// object schema. A schema with more than one such entry is reported by
// [Resolved.MultipleInheritance] and logged; only the first entry is used.
func (root *Schema) Resolve(opts *ResolveOptions) (*Resolved, error) {
	if opts == nil {
		opts = &ResolveOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := root.basicChecks(); err != nil {
		return nil, err
	}
	r := &Resolved{
		root:    root,
		refs:    map[*Schema]*Schema{},
		names:   map[*Schema]string{},
		parents: map[*Schema]*Schema{},
	}
	for _, defs := range []map[string]*Schema{root.Defs, root.Definitions} {
		for name, d := range defs {
			if d != nil {
				r.names[d] = name
			}
		}
	}
	for s := range root.all() {
		if s.Ref == "" {
			continue
		}
		t, err := r.lookup(s.Ref)
		if err != nil {
			return nil, err
		}
		r.refs[s] = t
	}
	for s := range root.all() {
		if _, err := r.deref(s); err != nil {
			return nil, err
		}
	}
	for s := range root.all() {
		r.link(s, logger)
	}
	return r, nil
}

// Root returns the schema that was resolved.
func (r *Resolved) Root() *Schema { return r.root }

// Name returns the name under which s, after dereferencing, is declared
// in the root's $defs or definitions.
func (r *Resolved) Name(s *Schema) (string, bool) {
	name, ok := r.names[r.Deref(s)]
	return name, ok
}

// Definitions returns the root's named definitions, sorted by name.
func (r *Resolved) Definitions() iter.Seq2[string, *Schema] {
	return func(yield func(string, *Schema) bool) {
		byName := make(map[string]*Schema, len(r.names))
		for s, name := range r.names {
			byName[name] = s
		}
		for _, name := range slices.Sorted(maps.Keys(byName)) {
			if !yield(name, byName[name]) {
				return
			}
		}
	}
}

// Deref follows the $refs of s and returns the first schema without one.
// A schema that does not belong to the resolved tree is returned unchanged.
func (r *Resolved) Deref(s *Schema) *Schema {
	t, err := r.deref(s)
	if err != nil {
		// Resolve rejected every cycle reachable from the root.
		return s
	}
	return t
}

func (r *Resolved) deref(s *Schema) (*Schema, error) {
	start := s
	for range maxRefHops {
		t, ok := r.refs[s]
		if !ok {
			return s, nil
		}
		s = t
	}
	return nil, fmt.Errorf("%w starting at %s", ErrRefCycle, start)
}

// MultipleInheritance returns the schemas whose allOf references more than
// one object schema, in the order they were found.
func (r *Resolved) MultipleInheritance() []*Schema {
	return slices.Clone(r.multi)
}

func (r *Resolved) link(s *Schema, logger *slog.Logger) {
	var parents []*Schema
	for _, e := range s.AllOf {
		if e == nil || e.Ref == "" {
			continue
		}
		if t := r.Deref(e); t.IsObject() {
			parents = append(parents, t)
		}
	}
	if len(parents) == 0 {
		return
	}
	r.parents[s] = parents[0]
	if len(parents) > 1 {
		r.multi = append(r.multi, s)
		logger.Warn("schema composes more than one object schema; using the first as its parent",
			"schema", r.describe(s), "parent", r.describe(parents[0]), "count", len(parents))
	}
}

// describe names s for diagnostics.
func (r *Resolved) describe(s *Schema) string {
	if name, ok := r.names[s]; ok {
		return name
	}
	return s.String()
}

var tokenReplacer = strings.NewReplacer("~1", "/", "~0", "~")

// lookup returns the schema that a local ref points to.
func (r *Resolved) lookup(ref string) (*Schema, error) {
	frag, ok := strings.CutPrefix(ref, "#")
	if !ok {
		return nil, fmt.Errorf("%w %q: only references within the document are supported", ErrUnsupportedRef, ref)
	}
	frag, err := url.PathUnescape(frag)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnsupportedRef, ref, err)
	}
	if frag == "" {
		return r.root, nil
	}
	if frag[0] != '/' {
		return nil, fmt.Errorf("%w %q: anchors are not supported", ErrUnsupportedRef, ref)
	}
	s := r.root
	tokens := strings.Split(frag[1:], "/")
	for i := 0; i < len(tokens); i++ {
		tok := tokenReplacer.Replace(tokens[i])
		sf, ok := schemaFieldMap[tok]
		if !ok {
			return nil, fmt.Errorf("%w %q: %q is not a schema keyword", ErrUnresolvedRef, ref, tok)
		}
		fv := reflect.ValueOf(s).Elem().FieldByIndex(sf.Index)
		var next *Schema
		switch sf.Type {
		case schemaType:
			next = fv.Interface().(*Schema)

		case schemaSliceType, schemaMapType:
			i++
			if i == len(tokens) {
				return nil, fmt.Errorf("%w %q: %q needs a key", ErrUnresolvedRef, ref, tok)
			}
			key := tokenReplacer.Replace(tokens[i])
			if sf.Type == schemaMapType {
				next = fv.Interface().(map[string]*Schema)[key]
				break
			}
			slice := fv.Interface().([]*Schema)
			n, err := strconv.Atoi(key)
			if err != nil || n < 0 || n >= len(slice) {
				return nil, fmt.Errorf("%w %q: bad index %q for %q", ErrUnresolvedRef, ref, key, tok)
			}
			next = slice[n]
		}
		if next == nil {
			return nil, fmt.Errorf("%w %q", ErrUnresolvedRef, ref)
		}
		s = next
	}
	return s, nil
}
