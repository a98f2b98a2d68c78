// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dacolabs/uniontype/ancestry"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func loadResolved(t *testing.T, file string) *Resolved {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "oneof", file))
	if err != nil {
		t.Fatal(err)
	}
	var s Schema
	if strings.HasSuffix(file, ".yaml") {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		t.Fatal(err)
	}
	r, err := s.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolveRefs(t *testing.T) {
	a := &Schema{Type: "object", Title: "a"}
	b := &Schema{Type: "string", Title: "b"}
	root := &Schema{
		Defs: map[string]*Schema{
			"a":     a,
			"odd/~": {Title: "escaped"},
			"alias": {Ref: "#/$defs/a"},
		},
		Properties: map[string]*Schema{
			"p": {OneOf: []*Schema{b}},
		},
	}
	r, err := root.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		ref  string
		want string // title of the target
	}{
		{"#/$defs/a", "a"},
		{"#/$defs/odd~1~0", "escaped"},
		{"#/$defs/odd~1%7E0", "escaped"},
		{"#/$defs/alias", "a"},
		{"#/properties/p/oneOf/0", "b"},
	} {
		target, err := r.lookup(tt.ref)
		if err != nil {
			t.Fatalf("%s: %v", tt.ref, err)
		}
		if got := r.Deref(target); got.Title != tt.want {
			t.Errorf("%s: got %s, want title %q", tt.ref, got, tt.want)
		}
	}
	foreign := &Schema{Ref: "#/$defs/a"}
	if got := r.Deref(foreign); got != foreign {
		t.Errorf("Deref of a schema outside the tree = %s, want it unchanged", got)
	}
	if got, _ := r.lookup("#"); got != root {
		t.Errorf("# did not resolve to the root")
	}
	if got := r.Deref(root.Defs["alias"]); got != a {
		t.Errorf("Deref(alias) = %s, want a", got)
	}
	if name, ok := r.Name(root.Defs["alias"]); !ok || name != "a" {
		t.Errorf("Name(alias) = %q, %t; want a, true", name, ok)
	}
	if _, ok := r.Name(b); ok {
		t.Error("Name of an inline schema reported a definition")
	}
	var names []string
	for name := range r.Definitions() {
		names = append(names, name)
	}
	if diff := cmp.Diff([]string{"a", "alias", "odd/~"}, names); diff != "" {
		t.Errorf("Definitions mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		s    *Schema
		want error
	}{
		{"remote", &Schema{Ref: "other.json#/definitions/a"}, ErrUnsupportedRef},
		{"anchor", &Schema{Ref: "#foo"}, ErrUnsupportedRef},
		{"missing def", &Schema{Ref: "#/definitions/nope"}, ErrUnresolvedRef},
		{"not a keyword", &Schema{Ref: "#/type"}, ErrUnresolvedRef},
		{"missing key", &Schema{Ref: "#/allOf", AllOf: []*Schema{{}}}, ErrUnresolvedRef},
		{"bad index", &Schema{Ref: "#/allOf/1", AllOf: []*Schema{{}}}, ErrUnresolvedRef},
		{"nil child", &Schema{Ref: "#/not"}, ErrUnresolvedRef},
		{"self", &Schema{Ref: "#"}, ErrRefCycle},
		{"loop", &Schema{Defs: map[string]*Schema{
			"a": {Ref: "#/$defs/b"},
			"b": {Ref: "#/$defs/a"},
		}}, ErrRefCycle},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.s.Resolve(nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := (&Schema{Defs: map[string]*Schema{}, Definitions: map[string]*Schema{}}).Resolve(nil); err == nil {
		t.Error("got nil, want error for both $defs and definitions")
	}
}

func TestParent(t *testing.T) {
	r := loadResolved(t, "closest_base.json")
	defs := r.Root().Definitions
	for _, tt := range []struct {
		child, parent string // empty parent for none
	}{
		{"typeOneA", "typeShared"},
		{"typeOneB", "typeOneA"},
		{"typeTwoC", "typeTwoB"},
		{"typeShared", ""},
	} {
		p, ok := r.Parent(defs[tt.child])
		if tt.parent == "" {
			if ok {
				t.Errorf("%s: unexpected parent %s", tt.child, p)
			}
			continue
		}
		if !ok || p != defs[tt.parent] {
			t.Errorf("%s: got parent %v, want %s", tt.child, p, tt.parent)
		}
	}
	// A oneOf branch is a $ref; its parent is the parent of its target.
	branch := r.Root().Properties["polymorphism"].OneOf[1]
	if p, ok := r.Parent(branch); !ok || p != defs["typeOneA"] {
		t.Errorf("Parent(oneOf[1]) = %v, want typeOneA", p)
	}
}

func TestParentIgnoresNonObjects(t *testing.T) {
	root := &Schema{
		Definitions: map[string]*Schema{
			"text": {Type: "string"},
			"base": {Type: "object"},
			"child": {AllOf: []*Schema{
				{Ref: "#/definitions/text"},
				{Properties: map[string]*Schema{"inline": {}}},
				{Ref: "#/definitions/base"},
			}},
		},
	}
	r, err := root.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := r.Parent(root.Definitions["child"]); !ok || p != root.Definitions["base"] {
		t.Errorf("got %v, want base", p)
	}
	if got := r.MultipleInheritance(); len(got) != 0 {
		t.Errorf("MultipleInheritance() = %v, want none", got)
	}
}

func TestMultipleInheritance(t *testing.T) {
	root := &Schema{
		Definitions: map[string]*Schema{
			"first":  {Type: "object"},
			"second": {Type: "object"},
			"child": {AllOf: []*Schema{
				{Ref: "#/definitions/first"},
				{Ref: "#/definitions/second"},
			}},
		},
	}
	var buf bytes.Buffer
	r, err := root.Resolve(&ResolveOptions{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	if err != nil {
		t.Fatal(err)
	}
	child := root.Definitions["child"]
	if p, _ := r.Parent(child); p != root.Definitions["first"] {
		t.Errorf("got parent %v, want first", p)
	}
	if diff := cmp.Diff([]*Schema{child}, r.MultipleInheritance()); diff != "" {
		t.Errorf("MultipleInheritance mismatch (-want +got):\n%s", diff)
	}
	if log := buf.String(); !strings.Contains(log, "level=WARN") || !strings.Contains(log, "schema=child") {
		t.Errorf("missing warning in log:\n%s", log)
	}
}

func TestAncestors(t *testing.T) {
	r := loadResolved(t, "closest_base.json")
	defs := r.Root().Definitions
	c, err := r.Ancestors(r.Root().Properties["polymorphism"].OneOf[3], 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, s := range c.Nodes() {
		name, _ := r.Name(s)
		got = append(got, name)
	}
	want := []string{"typeTwoC", "typeTwoB", "typeTwoA", "typeShared"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Ancestors(defs["typeTwoC"], 3); !errors.Is(err, ancestry.ErrCyclicInheritance) {
		t.Errorf("depth 3: got %v, want ErrCyclicInheritance", err)
	}
}

func TestCommonAncestor(t *testing.T) {
	for _, tt := range []struct {
		file string
		want string // empty for none
	}{
		{"no_shared_base.json", ""},
		{"shared_base.json", "typeBase"},
		{"shared_base.yaml", "typeBase"},
		{"closest_base.json", "typeShared"},
	} {
		t.Run(tt.file, func(t *testing.T) {
			r := loadResolved(t, tt.file)
			d, err := r.CommonAncestor(r.Root().Properties["polymorphism"].OneOf, 0)
			if err != nil {
				t.Fatal(err)
			}
			s, ok := d.Ancestor()
			if tt.want == "" {
				if ok {
					t.Errorf("got %v, want none", s)
				}
				return
			}
			if name, _ := r.Name(s); !ok || name != tt.want {
				t.Errorf("got %q, want %q", name, tt.want)
			}
		})
	}
}

func TestCommonAncestorCycle(t *testing.T) {
	root := &Schema{
		Definitions: map[string]*Schema{
			"a": {Type: "object", AllOf: []*Schema{{Ref: "#/definitions/b"}}},
			"b": {Type: "object", AllOf: []*Schema{{Ref: "#/definitions/a"}}},
			"c": {Type: "object"},
		},
	}
	r, err := root.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	members := []*Schema{root.Definitions["a"], root.Definitions["c"]}
	if _, err := r.CommonAncestor(members, 8); !errors.Is(err, ancestry.ErrCyclicInheritance) {
		t.Errorf("got %v, want ErrCyclicInheritance", err)
	}
}
