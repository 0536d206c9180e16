//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evalset

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schema/evalset.schema.json
	currentSchemaJSON string
	//go:embed schema/legacy.schema.json
	legacySchemaJSON string
)

var (
	schemaOnce    sync.Once
	currentSchema *gojsonschema.Schema
	legacySchema  *gojsonschema.Schema
	schemaErr     error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		currentSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(currentSchemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile eval set schema: %w", schemaErr)
			return
		}
		legacySchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(legacySchemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile legacy eval set schema: %w", schemaErr)
		}
	})
	return schemaErr
}

// ValidateCurrent checks data against the current eval set schema.
func ValidateCurrent(data []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	return validate(currentSchema, data)
}

// ValidateLegacy checks data against the legacy array format.
func ValidateLegacy(data []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	return validate(legacySchema, data)
}

func validate(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
	}
	return nil
}
