package notebook

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/nbbadge/internal/apperr"
)

// Version is the major nbformat version this package reads and writes.
const Version = 4

//go:embed schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("notebook.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("notebook.schema.json")
})

// Decode parses data as a notebook and checks that its major format version
// is asVersion. All failures wrap apperr.ErrMalformedDocument.
func Decode(data []byte, asVersion int) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", apperr.ErrMalformedDocument, err)
	}
	if obj, ok := generic.(map[string]any); ok {
		if n, ok := obj["nbformat"].(json.Number); ok {
			if v, err := n.Int64(); err == nil && int(v) != asVersion {
				return nil, unsupportedVersion(int(v), asVersion)
			}
		}
	}
	if err := validate(generic); err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedDocument, err)
	}
	var cells []map[string]json.RawMessage
	if err := json.Unmarshal(top["cells"], &cells); err != nil {
		return nil, fmt.Errorf("%w: cells: %v", apperr.ErrMalformedDocument, err)
	}
	delete(top, "cells")

	doc := &Document{extra: top, Cells: make([]Cell, len(cells))}
	if err := json.Unmarshal(top["nbformat"], &doc.NBFormat); err != nil {
		return nil, fmt.Errorf("%w: nbformat: %v", apperr.ErrMalformedDocument, err)
	}
	if err := json.Unmarshal(top["nbformat_minor"], &doc.NBFormatMinor); err != nil {
		return nil, fmt.Errorf("%w: nbformat_minor: %v", apperr.ErrMalformedDocument, err)
	}
	if doc.NBFormat != asVersion {
		return nil, unsupportedVersion(doc.NBFormat, asVersion)
	}
	for i, fields := range cells {
		doc.Cells[i] = Cell{fields: fields}
	}
	return doc, nil
}

// unsupportedVersion rejects other major versions; no conversion is attempted.
func unsupportedVersion(got, want int) error {
	return fmt.Errorf("%w: nbformat %d not supported (want %d); convert with `jupyter nbconvert --to notebook --nbformat %d`",
		apperr.ErrMalformedDocument, got, want, want)
}

// Encode serialises doc the way Jupyter does: sorted keys, one-space
// indentation, no HTML escaping and a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	out := make(map[string]any, len(doc.extra)+1)
	for k, v := range doc.extra {
		out[k] = v
	}
	cells := make([]map[string]json.RawMessage, len(doc.Cells))
	for i, c := range doc.Cells {
		cells[i] = c.fields
	}
	out["cells"] = cells

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("notebook: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// marshal encodes v without HTML escaping so badge markup stays readable.
func marshal(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func validate(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("notebook: compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", apperr.ErrMalformedDocument, strings.Join(issues(ve), "; "))
		}
		return fmt.Errorf("%w: %v", apperr.ErrMalformedDocument, err)
	}
	return nil
}

// issues flattens a validation error tree into "location: message" leaves.
func issues(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			loc := node.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
