// Package schema validates serialized MetaAST documents against the embedded
// JSON Schema before they are decoded.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaFile is the embedded schema file name.
const SchemaFile = "metaast-schema.json"

//go:embed metaast-schema.json
var schemaJSON []byte

// ErrSchema is returned when the embedded schema cannot be compiled.
var ErrSchema = errors.New("metaast schema")

// Problem is one schema violation.
type Problem struct {
	Field       string
	Description string
}

func (problem Problem) String() string {
	return problem.Field + ": " + problem.Description
}

// Result lists the problems of one document; it is valid when empty.
type Result struct {
	Problems []Problem
}

// Valid reports whether the document matched the schema.
func (result Result) Valid() bool {
	return len(result.Problems) == 0
}

// Bytes returns the embedded schema.
func Bytes() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)

	return out
}

//nolint:gochecknoglobals // Compiled once on first use.
var compiled = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Validate checks a decoded document (maps, slices, and scalars).
func Validate(document any) (Result, error) {
	compiledSchema, err := compiled()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	outcome, err := compiledSchema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return Result{}, fmt.Errorf("validate document: %w", err)
	}

	var result Result

	for _, resultErr := range outcome.Errors() {
		result.Problems = append(result.Problems, Problem{
			Field:       resultErr.Field(),
			Description: resultErr.Description(),
		})
	}

	return result, nil
}

// ValidateJSON checks raw JSON bytes.
func ValidateJSON(data []byte) (Result, error) {
	var document any

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	err := decoder.Decode(&document)
	if err != nil {
		return Result{}, fmt.Errorf("decode document: %w", err)
	}

	return Validate(document)
}
