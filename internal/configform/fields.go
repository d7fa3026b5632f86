package configform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the explicit input type of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindList    Kind = "list"
	KindJSON    Kind = "json"
)

// Field is one generated form input.
type Field struct {
	Key         string
	Path        []string
	Kind        Kind
	ItemKind    Kind
	Label       string
	Description string
	Section     string
	Value       string
	Checked     bool
	Min         *float64
	Max         *float64
	Options     []string
	// Present is true when the loaded document contained the key.
	Present bool
}

// KeySeparator joins path segments into a field key.
const KeySeparator = "."

// Generate walks schema and returns one field per leaf property, reading
// current values from doc. Nested objects with properties are flattened
// into dotted keys; everything else is a leaf.
func Generate(doc Document, schema *Schema) []Field {
	if schema == nil {
		schema = InferSchema(doc)
	}
	var fields []Field
	generate(doc, schema, nil, "", &fields)
	return fields
}

func generate(doc Document, s *Schema, path []string, section string, out *[]Field) {
	for _, name := range s.propertyNames() {
		prop := s.Properties[name]
		if prop == nil {
			prop = &Schema{}
		}
		p := append(append([]string(nil), path...), name)

		sec := section
		if len(path) == 0 {
			sec = prop.Title
			if sec == "" {
				sec = name
			}
		}

		if prop.Type == "object" && len(prop.Properties) > 0 {
			generate(doc, prop, p, sec, out)
			continue
		}

		value, present := lookup(doc, p)
		if !present {
			value = prop.Default
		}
		*out = append(*out, newField(prop, p, sec, value, present))
	}
}

func newField(s *Schema, path []string, section string, value any, present bool) Field {
	f := Field{
		Key:         strings.Join(path, KeySeparator),
		Path:        path,
		Kind:        kindFor(s, value),
		Label:       s.Title,
		Description: s.Description,
		Section:     section,
		Min:         s.Minimum,
		Max:         s.Maximum,
		Present:     present,
	}
	if f.Label == "" {
		f.Label = path[len(path)-1]
	}
	for _, opt := range s.Enum {
		f.Options = append(f.Options, formatScalar(opt))
	}

	switch f.Kind {
	case KindBoolean:
		f.Checked, _ = value.(bool)
	case KindList:
		f.ItemKind = KindString
		if s.Items != nil && (s.Items.Type == "number" || s.Items.Type == "integer") {
			f.ItemKind = Kind(s.Items.Type)
		}
		items, _ := value.([]any)
		lines := make([]string, 0, len(items))
		for _, it := range items {
			lines = append(lines, formatScalar(it))
		}
		f.Value = strings.Join(lines, "\n")
	case KindJSON:
		if value != nil || present {
			b, err := json.MarshalIndent(value, "", "  ")
			if err == nil {
				f.Value = string(b)
			}
		}
	default:
		if value != nil {
			f.Value = formatScalar(value)
		}
	}
	return f
}

// kindFor picks the input kind from the schema type, falling back to the
// value's shape when the schema is silent or cannot represent the value.
func kindFor(s *Schema, value any) Kind {
	switch s.Type {
	case "boolean":
		return KindBoolean
	case "number":
		return KindNumber
	case "integer":
		return KindInteger
	case "string":
		if isComposite(value) {
			return KindJSON
		}
		return KindString
	case "array":
		if s.Items != nil && (s.Items.Type == "object" || s.Items.Type == "array") {
			return KindJSON
		}
		if items, ok := value.([]any); ok {
			for _, it := range items {
				if isComposite(it) {
					return KindJSON
				}
			}
		} else if value != nil {
			return KindJSON
		}
		return KindList
	case "object":
		return KindJSON
	}

	switch value.(type) {
	case bool:
		return KindBoolean
	case float64:
		return KindNumber
	case string:
		return KindString
	}
	return KindJSON
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
