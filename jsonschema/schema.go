// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonschema

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// A Schema is a JSON schema object, limited to the keywords that matter
// when generating types from draft-07 or 2020-12 documents.
//
// Since this struct is a Go representation of a JSON value, it inherits JSON's
// distinction between nil and empty. Nil slices and maps are considered absent.
type Schema struct {
	// core
	ID          string             `json:"$id,omitempty" yaml:"$id,omitempty"`
	Schema      string             `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Ref         string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Comment     string             `json:"$comment,omitempty" yaml:"$comment,omitempty"`
	Defs        map[string]*Schema `json:"$defs,omitempty" yaml:"$defs,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty" yaml:"definitions,omitempty"`

	// metadata
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// validation
	// Use Type for a single type, or Types for multiple types; never both.
	Type   string   `json:"-" yaml:"-"`
	Types  []string `json:"-" yaml:"-"`
	Enum   []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Format string   `json:"format,omitempty" yaml:"format,omitempty"`

	// arrays
	Items *Schema `json:"items,omitempty" yaml:"items,omitempty"`

	// objects
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`

	// logic
	AllOf []*Schema `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	Not   *Schema   `json:"not,omitempty" yaml:"not,omitempty"`
}

// falseSchema returns a new Schema tree that fails to validate any value.
func falseSchema() *Schema {
	return &Schema{Not: &Schema{}}
}

// String returns a short description of the schema.
func (s *Schema) String() string {
	if s.ID != "" {
		return s.ID
	}
	if s.Ref != "" {
		return fmt.Sprintf("ref %s", s.Ref)
	}
	if s.Title != "" {
		return fmt.Sprintf("%q", s.Title)
	}
	return "<anonymous schema>"
}

// HasType reports whether t is among the declared types of s.
func (s *Schema) HasType(t string) bool {
	return s.Type == t || slices.Contains(s.Types, t)
}

// IsObject reports whether s describes an object, either by declaring the
// "object" type or, when no type is declared at all, by carrying object
// or composition keywords.
func (s *Schema) IsObject() bool {
	if s.HasType("object") {
		return true
	}
	if s.Type != "" || s.Types != nil {
		return false
	}
	return s.Properties != nil || s.AdditionalProperties != nil || s.AllOf != nil
}

// IsNull reports whether s accepts only null.
func (s *Schema) IsNull() bool {
	if s.Type == "null" {
		return true
	}
	return len(s.Types) > 0 && !slices.ContainsFunc(s.Types, func(t string) bool { return t != "null" })
}

func (s *Schema) basicChecks() error {
	if s.Type != "" && s.Types != nil {
		return errors.New("both Type and Types are set; at most one should be")
	}
	if s.Defs != nil && s.Definitions != nil {
		return errors.New("both Defs and Definitions are set; at most one should be")
	}
	return nil
}

type schemaWithoutMethods Schema // doesn't implement json.{Unm,M}arshaler

func (s Schema) MarshalJSON() ([]byte, error) {
	// NOTE: Use a value receiver here to avoid the encoding/json bugs
	// described in golang/go#22967, golang/go#33993, and golang/go#55890.
	if err := s.basicChecks(); err != nil {
		return nil, err
	}
	// Marshal either Type or Types as "type".
	var typ any
	switch {
	case s.Type != "":
		typ = s.Type
	case s.Types != nil:
		typ = s.Types
	}
	ms := struct {
		Type any `json:"type,omitempty"`
		*schemaWithoutMethods
	}{
		Type:                 typ,
		schemaWithoutMethods: (*schemaWithoutMethods)(&s),
	}
	bs, err := json.Marshal(&ms)
	if err != nil {
		return nil, err
	}
	// Marshal {} as true and {"not": {}} as false.
	switch {
	case bytes.Equal(bs, []byte(`{}`)):
		bs = []byte("true")
	case bytes.Equal(bs, []byte(`{"not":true}`)):
		bs = []byte("false")
	}
	return bs, nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	// A JSON boolean is a valid schema.
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			// true is the empty schema, which validates everything.
			*s = Schema{}
		} else {
			// false is the schema that validates nothing.
			*s = *falseSchema()
		}
		return nil
	}

	ms := struct {
		Type json.RawMessage `json:"type,omitempty"`
		*schemaWithoutMethods
	}{
		schemaWithoutMethods: (*schemaWithoutMethods)(s),
	}
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	// Unmarshal "type" as either Type or Types.
	if len(ms.Type) > 0 {
		switch ms.Type[0] {
		case '"':
			return json.Unmarshal(ms.Type, &s.Type)
		case '[':
			return json.Unmarshal(ms.Type, &s.Types)
		default:
			return fmt.Errorf(`invalid value for "type": %q`, ms.Type)
		}
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
// It mirrors the behavior of UnmarshalJSON: booleans are schemas, and
// "type" is either a string or a sequence of strings.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	// Handle boolean schemas
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!bool" {
			switch node.Value {
			case "true":
				*s = Schema{}
				return nil
			case "false":
				*s = *falseSchema()
				return nil
			}
		}
		return fmt.Errorf("expected mapping or boolean, got scalar: %s", node.Value)
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping or boolean, got kind %v", node.Kind)
	}

	// Decoding through a named copy of the struct avoids recursing into
	// this method while still using UnmarshalYAML for every subschema.
	var raw schemaWithoutMethods
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = Schema(raw)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		if keyNode.Value != "type" {
			continue
		}
		switch valueNode.Kind {
		case yaml.ScalarNode:
			// Must be a string scalar, not a number or bool
			if valueNode.Tag != "!!str" {
				return fmt.Errorf("type must be string or array, got %s", valueNode.Value)
			}
			s.Type = valueNode.Value
		case yaml.SequenceNode:
			var types []string
			if err := valueNode.Decode(&types); err != nil {
				return fmt.Errorf("decoding type array: %w", err)
			}
			s.Types = types
		default:
			return fmt.Errorf("type must be string or array, got kind %v", valueNode.Kind)
		}
	}
	return nil
}

// every applies f preorder to every schema under s including s.
// It stops when f returns false.
func (s *Schema) every(f func(*Schema) bool) bool {
	return f(s) && s.everyChild(func(s *Schema) bool { return s.every(f) })
}

// everyChild reports whether f is true for every immediate child schema of s.
func (s *Schema) everyChild(f func(*Schema) bool) bool {
	v := reflect.ValueOf(s)
	for _, info := range schemaFieldInfos {
		fv := v.Elem().FieldByIndex(info.sf.Index)
		switch info.sf.Type {
		case schemaType:
			// A field that contains an individual schema. A nil is valid: it just means the field isn't present.
			c := fv.Interface().(*Schema)
			if c != nil && !f(c) {
				return false
			}

		case schemaSliceType:
			slice := fv.Interface().([]*Schema)
			for _, c := range slice {
				if c != nil && !f(c) {
					return false
				}
			}

		case schemaMapType:
			// Sort keys for determinism.
			m := fv.Interface().(map[string]*Schema)
			for _, k := range slices.Sorted(maps.Keys(m)) {
				if m[k] != nil && !f(m[k]) {
					return false
				}
			}
		}
	}
	return true
}

// all wraps every in an iterator.
func (s *Schema) all() iter.Seq[*Schema] {
	return func(yield func(*Schema) bool) { s.every(yield) }
}

var (
	schemaType      = reflect.TypeFor[*Schema]()
	schemaSliceType = reflect.TypeFor[[]*Schema]()
	schemaMapType   = reflect.TypeFor[map[string]*Schema]()
)

type structFieldInfo struct {
	sf       reflect.StructField
	jsonName string
}

var (
	// the schema-valued fields of Schema, sorted by JSON name
	schemaFieldInfos []structFieldInfo
	// map from JSON name to schema-valued field
	schemaFieldMap = map[string]reflect.StructField{}
)

func init() {
	for _, sf := range reflect.VisibleFields(reflect.TypeFor[Schema]()) {
		switch sf.Type {
		case schemaType, schemaSliceType, schemaMapType:
		default:
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		schemaFieldInfos = append(schemaFieldInfos, structFieldInfo{sf, name})
	}
	slices.SortFunc(schemaFieldInfos, func(i1, i2 structFieldInfo) int {
		return cmp.Compare(i1.jsonName, i2.jsonName)
	})
	for _, info := range schemaFieldInfos {
		schemaFieldMap[info.jsonName] = info.sf
	}
}
