package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// Format of a manifest document
type Format string

// Supported formats. FormatAuto detects JSON by a leading '{'.
const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const maxManifestSize = 4 << 20

// schema is the JSON schema every manifest must satisfy after decoding
const schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["types"],
	"additionalProperties": false,
	"properties": {
		"version": {"type": "string"},
		"types": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type", "ports"],
				"additionalProperties": false,
				"properties": {
					"type": {"type": "string", "minLength": 1},
					"ports": {
						"type": "array",
						"items": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(schema)

// Entry lists the ports of one component type in declaration order
type Entry struct {
	Type  string   `json:"type" yaml:"type"`
	Ports []string `json:"ports" yaml:"ports"`
}

// Manifest is a port name table for several component types
type Manifest struct {
	Version string  `json:"version,omitempty" yaml:"version,omitempty"`
	Types   []Entry `json:"types" yaml:"types"`
}

// Parse decodes and validates a manifest document.
func Parse(data []byte, format Format) (*Manifest, error) {
	if format == FormatAuto {
		format = detectFormat(data)
	}

	doc, err := toJSON(data, format)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			"Manifest", "Parse", "decode "+string(format))
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidManifest, err),
			"Manifest", "Parse", "schema validation")
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidManifest, strings.Join(msgs, "; ")),
			"Manifest", "Parse", "schema validation")
	}

	var m Manifest
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			"Manifest", "Parse", "decode manifest")
	}

	seen := make(map[string]bool, len(m.Types))
	for _, entry := range m.Types {
		if seen[entry.Type] {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: type %s listed twice", errors.ErrInvalidManifest, entry.Type),
				"Manifest", "Parse", "duplicate check")
		}
		seen[entry.Type] = true
	}
	return &m, nil
}

// Load reads a manifest file. The format follows the file extension
// (.json, .yaml or .yml); other extensions are auto-detected.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
				"Manifest", "Load", "stat")
		}
		return nil, errors.WrapTransient(err, "Manifest", "Load", "stat")
	}
	if info.Size() > maxManifestSize {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s is %d bytes", errors.ErrInvalidManifest, path, info.Size()),
			"Manifest", "Load", "size check")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "Manifest", "Load", "read")
	}

	m, err := Parse(data, formatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Register adds every entry to reg and returns the number of entries.
func (m *Manifest) Register(reg *registry.Registry) (int, error) {
	if reg == nil {
		return 0, errors.WrapFatal(errors.ErrNilRegistry, "Manifest", "Register", "registry check")
	}
	for _, entry := range m.Types {
		reg.RegisterPortNames(entry.Type, entry.Ports)
	}
	return len(m.Types), nil
}

// Add appends an entry, replacing an existing one for the same type.
func (m *Manifest) Add(typeName string, ports []string) {
	entry := Entry{Type: registry.StripTypeArguments(typeName), Ports: append([]string{}, ports...)}
	for i := range m.Types {
		if m.Types[i].Type == entry.Type {
			m.Types[i] = entry
			return
		}
	}
	m.Types = append(m.Types, entry)
}

// Marshal encodes the manifest. FormatAuto encodes YAML.
func (m *Manifest) Marshal(format Format) ([]byte, error) {
	out := *m
	if out.Types == nil {
		out.Types = []Entry{}
	}
	if format == FormatJSON {
		return json.MarshalIndent(&out, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return nil, errors.Wrap(err, "Manifest", "Marshal", "yaml encode")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "Manifest", "Marshal", "yaml encode")
	}
	return buf.Bytes(), nil
}

func detectFormat(data []byte) Format {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// toJSON returns the document as JSON so that both formats go through the
// same schema validation.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("malformed JSON")
		}
		return data, nil
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return json.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}
}
