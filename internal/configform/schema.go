// Package configform maps the nested configuration document to a flat list
// of typed form fields and back.
package configform

import (
	"encoding/json"
	"sort"
)

// Document is a decoded configuration document.
type Document = map[string]any

// Schema is the JSON-Schema subset served by GET /api/config/schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
}

// ParseSchema decodes a schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// propertyNames returns the property names in a stable order.
func (s *Schema) propertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InferSchema derives a schema from the shape of doc. It is used when the
// backend does not serve one.
func InferSchema(doc Document) *Schema {
	return inferValue(doc)
}

func inferValue(v any) *Schema {
	switch x := v.(type) {
	case map[string]any:
		s := &Schema{Type: "object", Properties: make(map[string]*Schema, len(x))}
		for k, child := range x {
			s.Properties[k] = inferValue(child)
		}
		return s
	case []any:
		s := &Schema{Type: "array"}
		if len(x) > 0 {
			s.Items = inferValue(x[0])
		}
		return s
	case bool:
		return &Schema{Type: "boolean"}
	case float64:
		return &Schema{Type: "number"}
	case string:
		return &Schema{Type: "string"}
	}
	return &Schema{}
}
