package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed doppel.schema.json
var schemaBytes []byte

// compileSchema compiles the embedded configuration schema.
func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("doppel.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to register schema: %w", err)
	}
	schema, err := compiler.Compile("doppel.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// validateDocument checks an arbitrary JSON document against the schema.
func validateDocument(doc []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("failed to parse config document: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Validate checks the effective configuration values against the
// embedded schema. Flag overrides should be applied before calling.
func (c *Config) Validate() error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return validateDocument(doc)
}

// ValidateFile checks a config file against the embedded schema. Unlike
// Validate, this catches unknown keys in the file itself.
func ValidateFile(path string) error {
	k, err := loadRaw(path)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return validateDocument(doc)
}
