package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	helloSchema   = mustSchema("hello.schema.json")
	commandSchema = mustSchema("command.schema.json")
)

func mustSchema(name string) *jsonschema.Schema {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(b))
}

// ValidateHello checks a raw HELLO frame before it is decoded.
func ValidateHello(raw []byte) error { return validate(helloSchema, raw) }

// ValidateCommand checks a raw CMD frame before it is decoded.
func ValidateCommand(raw []byte) error { return validate(commandSchema, raw) }

func validate(s *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return s.Validate(v)
}
