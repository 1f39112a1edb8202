package storehttp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchema guards a document against malformed writes. Validation
// happens before the store is touched, so a rejected payload never
// clobbers the previous snapshot.
type compiledSchema struct {
	name   string
	schema *jsonschema.Schema
}

func mustCompile(name, raw string) *compiledSchema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return &compiledSchema{name: name, schema: schema}
}

func (cs *compiledSchema) validate(payload json.RawMessage) error {
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%s payload is not valid JSON: %w", cs.name, err)
	}
	if err := cs.schema.Validate(doc); err != nil {
		return fmt.Errorf("%s payload invalid: %v", cs.name, err)
	}
	return nil
}

var ordersSchema = mustCompile("orders", `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["symbol"],
		"properties": {
			"symbol": {"type": "string", "minLength": 1},
			"active": {
				"type": "object",
				"properties": {
					"orders": {"$ref": "#/$defs/entries"},
					"positions": {"$ref": "#/$defs/entries"}
				}
			},
			"closed": {"$ref": "#/$defs/entries"}
		}
	},
	"$defs": {
		"entries": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "symbol", "exchange", "side", "type"],
				"properties": {
					"id": {"type": "integer", "minimum": 1},
					"symbol": {"type": "string", "minLength": 1},
					"exchange": {"type": "string", "minLength": 1},
					"side": {"enum": ["long", "short"]},
					"type": {"enum": ["market", "limit"]},
					"leverage": {"type": "number"},
					"price": {"type": "number"},
					"amount": {"type": "number"},
					"created_at": {"type": "string"},
					"closed_at": {"type": "string"}
				}
			}
		}
	}
}`)

var catalogSchema = mustCompile("catalog", `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "use"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"use": {"type": "boolean"}
		}
	}
}`)
