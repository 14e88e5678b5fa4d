// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema validates inbound request bodies against embedded
// JSON Schema documents via an embedFS-backed jsonschema.Compile
// loader.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind identifies which embedded schema a request body is checked
// against.
type Kind int

const (
	ArtifactIngest Kind = iota + 1
	ArtifactUpdate
	QueryList
	RegexQuery
)

//go:embed schemas/*
var schemaFiles embed.FS

func load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = load
}

// Validate decodes r as JSON and checks it against the schema for k.
func Validate(k Kind, r io.Reader) error {
	var s *jsonschema.Schema
	var err error

	switch k {
	case ArtifactIngest:
		s, err = jsonschema.Compile("embedFS://schemas/artifact-ingest.schema.json")
	case ArtifactUpdate:
		s, err = jsonschema.Compile("embedFS://schemas/artifact-update.schema.json")
	case QueryList:
		s, err = jsonschema.Compile("embedFS://schemas/query-list.schema.json")
	case RegexQuery:
		s, err = jsonschema.Compile("embedFS://schemas/regex-query.schema.json")
	default:
		return fmt.Errorf("schema: unknown kind %d", k)
	}
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return fmt.Errorf("schema: decode: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
