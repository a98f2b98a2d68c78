// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package jsonschema models the parts of a JSON Schema document that type
generation needs, and resolves them into a read-only graph.

Decode a document with encoding/json or gopkg.in/yaml.v3, then call
[Schema.Resolve]:

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil { ... }
	r, err := s.Resolve(nil)

Resolution follows every local $ref and records inheritance: a schema whose
allOf references an object schema inherits from it. [Resolved.CommonAncestor]
uses those links to find the closest schema shared by the branches of a oneOf.
*/
package jsonschema
