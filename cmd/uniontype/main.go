// Copyright 2025 The JSON Schema Go Project Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command uniontype prints the generated type of every oneOf property in a
// JSON Schema document.
//
//	uniontype [-format json|yaml] [-object T] [-max-depth N] schema-file
//
// Each line has the form "Class.Property: Type". A trailing "?" marks a
// nullable type.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dacolabs/uniontype/jsonschema"
	"github.com/dacolabs/uniontype/typemap"
	"gopkg.in/yaml.v3"
)

func main() {
	os.Exit(runWithArgs(os.Args[1:], os.Stdout, os.Stderr))
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("uniontype", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "", "schema format, json or yaml (default: from the file extension)")
	objectType := fs.String("object", typemap.DefaultObjectType, "type name for unions without a common class")
	maxDepth := fs.Int("max-depth", 0, "maximum inheritance depth (0 for the default)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: uniontype [options] <schema-file>\n\n")
		fmt.Fprintln(stderr, "Prints the type chosen for each oneOf property.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "error: exactly one schema file argument is required")
		fs.Usage()
		return 2
	}
	if *maxDepth < 0 {
		fmt.Fprintln(stderr, "error: -max-depth must not be negative")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))
	path := fs.Arg(0)
	s, err := load(path, *format)
	if err != nil {
		logger.Error("loading schema", "path", path, "error", err)
		return 1
	}
	r, err := s.Resolve(&jsonschema.ResolveOptions{Logger: logger})
	if err != nil {
		logger.Error("resolving schema", "path", path, "error", err)
		return 1
	}
	m := typemap.New(r, &typemap.Options{
		Logger:     logger,
		MaxDepth:   *maxDepth,
		ObjectType: *objectType,
	})
	classes, err := m.Classes()
	if err != nil {
		logger.Error("typing unions", "path", path, "error", err)
		return 1
	}
	for _, c := range classes {
		for _, f := range c.Fields {
			if _, err := fmt.Fprintf(stdout, "%s.%s: %s\n", c.Name, f.Name, f.Type); err != nil {
				return 1
			}
		}
	}
	return 0
}

var errUnknownFormat = errors.New("unknown schema format")

func load(path, format string) (*jsonschema.Schema, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	switch format {
	case "json":
		err = json.Unmarshal(data, &s)
	case "yaml":
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("%w %q", errUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}
	return &s, nil
}
