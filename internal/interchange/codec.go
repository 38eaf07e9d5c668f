package interchange

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// Formats lists every format Decode understands.
var Formats = []Format{FormatJSON, FormatYAML, FormatCUE, FormatHCL}

// ParseFormat maps a name or file extension ("yml", ".json") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	case "hcl":
		return FormatHCL, nil
	}
	return "", errors.Invalidf("unknown document format %q", s)
}

// FormatFromPath picks the format of a file by its extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// CanEncode reports whether Encode supports f.
func (f Format) CanEncode() bool {
	return f == FormatJSON || f == FormatYAML
}

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("schema.json", schemaJSON)
	})
	return compiledSchema, schemaErr
}

// Decode reads a document in format f and validates it.
func Decode(data []byte, f Format) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch f {
	case FormatJSON:
		doc, err = decodeJSON(data)
	case FormatYAML:
		doc, err = decodeYAML(data)
	case FormatCUE:
		doc, err = decodeCUE(data)
	case FormatHCL:
		doc, err = decodeHCL(data)
	default:
		return nil, errors.Invalidf("unknown document format %q", f)
	}
	if err != nil {
		return nil, err
	}
	doc.normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeReader is Decode over an io.Reader.
func DecodeReader(r io.Reader, f Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	return Decode(data, f)
}

// Encode writes doc in format f. Only JSON and YAML can be written.
func Encode(w io.Writer, doc *Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return errors.Wrap(enc.Encode(doc), "encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "encode yaml")
	}
	return errors.Invalidf("cannot encode format %q", f)
}

func decodeJSON(data []byte) (*Document, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	// Keys missing from the input keep their defaults.
	doc := Document{Flags: model.DefaultFlags()}
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.Invalidf("%v", err), "decode json")
	}
	return &doc, nil
}

// decodeYAML converts YAML to JSON first so both go through one schema.
func decodeYAML(data []byte) (*Document, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(errors.Invalidf("%v", err), "decode yaml")
	}
	asJSON, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.Invalidf("%v", err), "convert yaml")
	}
	return decodeJSON(asJSON)
}

func validateSchema(data []byte) error {
	sch, err := documentSchema()
	if err != nil {
		return errors.Wrap(err, "compile document schema")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return errors.Invalidf("document is not valid JSON: %v", err)
	}
	if err := sch.Validate(v); err != nil {
		return errors.Invalidf("document does not match schema: %v", err)
	}
	return nil
}
