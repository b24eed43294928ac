package validation

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"emberchain/core"
)

// Schema names a payload kind with an embedded JSON schema.
type Schema string

const (
	GenesisSchema     Schema = "genesis"
	TransactionSchema Schema = "transaction"
)

var ErrSchemaViolation = fmt.Errorf("%w: payload failed schema validation", core.ErrInputValidation)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[Schema]*gojsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	compiled = make(map[Schema]*gojsonschema.Schema)
	for _, kind := range []Schema{GenesisSchema, TransactionSchema} {
		raw, err := schemaFS.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			compileErr = err
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
			return
		}
		compiled[kind] = s
	}
}

// ValidatePayload checks a raw JSON document against the schema for kind.
// Violations are aggregated into one error wrapping ErrSchemaViolation.
func ValidatePayload(kind Schema, payload []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	schema, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown schema %q", kind)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		AuditValidationError(kind, "malformed JSON")
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		reason := strings.Join(msgs, "; ")
		AuditValidationError(kind, reason)
		return fmt.Errorf("%w: %s", ErrSchemaViolation, reason)
	}
	return nil
}

func ValidateGenesis(payload []byte) error {
	return ValidatePayload(GenesisSchema, payload)
}

func ValidateTransaction(payload []byte) error {
	return ValidatePayload(TransactionSchema, payload)
}
