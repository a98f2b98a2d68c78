// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package typemap decides the generated type of union ("oneOf") properties.
//
// A union whose branches all inherit, through allOf references, from a
// common object schema is typed as the closest such schema. Any other union
// is typed as the generic object type.
package typemap

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dacolabs/uniontype/ancestry"
	"github.com/dacolabs/uniontype/jsonschema"
)

// DefaultObjectType is the type name used when a union has no common class.
const DefaultObjectType = "object"

// Options configure a [Mapper]. The zero value is ready to use.
type Options struct {
	// Logger receives diagnostics. If nil, they are discarded.
	Logger *slog.Logger
	// MaxDepth limits inheritance chains; zero means ancestry.DefaultMaxDepth.
	MaxDepth int
	// ObjectType names the generic type. Empty means DefaultObjectType.
	ObjectType string
}

// A Type is the decision for one property.
type Type struct {
	Name string
	// Schema is the class the type refers to, or nil for the generic object type.
	Schema   *jsonschema.Schema
	Nullable bool
}

func (t Type) String() string {
	if t.Nullable {
		return t.Name + "?"
	}
	return t.Name
}

// A Field is a union-typed property of a class.
type Field struct {
	Name        string // exported name, e.g. "Polymorphism"
	Property    string // name in the schema, e.g. "polymorphism"
	Type        Type
	Description string
}

// A Class is an object schema that declares union-typed properties.
type Class struct {
	Name   string
	Schema *jsonschema.Schema
	Fields []Field
}

// A Mapper types the union properties of a resolved schema.
// It is safe for concurrent use.
type Mapper struct {
	r          *jsonschema.Resolved
	logger     *slog.Logger
	maxDepth   int
	objectType string
}

// New returns a Mapper for r. A nil opts is the same as the zero Options.
func New(r *jsonschema.Resolved, opts *Options) *Mapper {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mapper{
		r:          r,
		logger:     logger,
		maxDepth:   opts.MaxDepth,
		objectType: cmp.Or(opts.ObjectType, DefaultObjectType),
	}
}

// UnionType returns the type of a property declared with oneOf.
//
// Branches that only accept null make the type nullable and take no other
// part in the decision. If any remaining branch is not an object schema, or
// the branches share no named ancestor, the generic object type is used.
// An inheritance cycle is logged and also yields the generic type.
// A property without branches fails with ancestry.ErrEmptyUnion; nil
// branches do not count.
func (m *Mapper) UnionType(prop *jsonschema.Schema) (Type, error) {
	prop = m.r.Deref(prop)
	var members []*jsonschema.Schema
	nullable := false
	for _, b := range prop.OneOf {
		s := m.r.Deref(b)
		if s == nil {
			// A JSON null branch, skipped like any other absent subschema.
			continue
		}
		if s.IsNull() {
			nullable = true
			continue
		}
		members = append(members, s)
	}
	if nullable && len(members) == 0 {
		return m.object(true), nil
	}
	if slices.ContainsFunc(members, func(s *jsonschema.Schema) bool { return !s.IsObject() }) {
		return m.object(nullable), nil
	}
	d, err := m.r.CommonAncestor(members, m.maxDepth)
	if errors.Is(err, ancestry.ErrCyclicInheritance) {
		m.logger.Warn("union branches have cyclic inheritance; using the generic object type",
			"property", prop.String(), "error", err)
		return m.object(nullable), nil
	}
	if err != nil {
		return Type{}, err
	}
	s, ok := d.Ancestor()
	if !ok {
		return m.object(nullable), nil
	}
	name, ok := m.ClassName(s)
	if !ok {
		// An inline schema has no class of its own.
		return m.object(nullable), nil
	}
	return Type{Name: name, Schema: s, Nullable: nullable}, nil
}

func (m *Mapper) object(nullable bool) Type {
	return Type{Name: m.objectType, Nullable: nullable}
}

// ClassName returns the generated class name of a definition or of the root.
// The root is named by its title, or "Root" if the title yields no name.
// A definition whose name has no letters or digits has no class name.
//
// Names are not made unique: "typeA" and "TypeA" both become "TypeA".
func (m *Mapper) ClassName(s *jsonschema.Schema) (string, bool) {
	s = m.r.Deref(s)
	if name, ok := m.r.Name(s); ok {
		name = exportName(name)
		return name, name != ""
	}
	if s == m.r.Root() {
		return cmp.Or(exportName(s.Title), "Root"), true
	}
	return "", false
}

// Fields returns the union-typed properties of s, sorted by property name.
// A property with an empty oneOf is an error.
func (m *Mapper) Fields(s *jsonschema.Schema) ([]Field, error) {
	s = m.r.Deref(s)
	var fields []Field
	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		prop := m.r.Deref(s.Properties[name])
		if prop == nil || prop.OneOf == nil {
			continue
		}
		t, err := m.UnionType(prop)
		if err != nil {
			return nil, fmt.Errorf("property %q of %s: %w", name, s, err)
		}
		fields = append(fields, Field{
			Name:        exportName(name),
			Property:    name,
			Type:        t,
			Description: prop.Description,
		})
	}
	return fields, nil
}

// Classes returns the root, if it is an object, followed by every object
// definition in name order. Definitions that are only a $ref are skipped,
// since they name a class declared elsewhere, as are definitions without
// a class name.
func (m *Mapper) Classes() ([]Class, error) {
	var classes []Class
	add := func(s *jsonschema.Schema) error {
		name, ok := m.ClassName(s)
		if !ok {
			return nil
		}
		fields, err := m.Fields(s)
		if err != nil {
			return err
		}
		classes = append(classes, Class{Name: name, Schema: s, Fields: fields})
		return nil
	}
	if root := m.r.Root(); root.Ref == "" && root.IsObject() {
		if err := add(root); err != nil {
			return nil, err
		}
	}
	for _, d := range m.r.Definitions() {
		if d.Ref != "" || !d.IsObject() {
			continue
		}
		if err := add(d); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

// exportName turns a schema name into an exported identifier:
// "typeBase" becomes "TypeBase" and "my root" becomes "MyRoot".
func exportName(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}
