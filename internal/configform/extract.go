package configform

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
)

// FieldError describes a submitted value that could not be applied. The
// field keeps its previous value.
type FieldError struct {
	Key string
	Err error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

// Extract reads submitted form values back into a document merged over a
// deep copy of base. Checkboxes that are absent are false. A field whose
// submitted text equals the text it was rendered with is left untouched,
// so saving without edits reproduces base exactly. Values that fail to
// parse keep their previous value and are reported.
func Extract(fields []Field, form url.Values, base Document) (Document, []FieldError) {
	doc := DeepCopy(base)
	var errs []FieldError

	for _, f := range fields {
		if f.Kind == KindBoolean {
			checked := form.Has(f.Key) && form.Get(f.Key) != "false"
			if checked != f.Checked {
				set(doc, f.Path, checked)
			}
			continue
		}

		if !form.Has(f.Key) {
			continue
		}
		raw := strings.ReplaceAll(form.Get(f.Key), "\r\n", "\n")
		if raw == f.Value {
			continue
		}

		value, err := parseValue(f, raw)
		if err != nil {
			log.Printf("[Config] field %s not applied: %v", f.Key, err)
			errs = append(errs, FieldError{Key: f.Key, Err: err})
			if f.Kind == KindJSON && !f.Present {
				set(doc, f.Path, raw)
			}
			continue
		}
		set(doc, f.Path, value)
	}
	return doc, errs
}

func parseValue(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindNumber, KindInteger:
		return parseNumber(f, strings.TrimSpace(raw))
	case KindList:
		return parseList(f, raw)
	case KindJSON:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return v, nil
	}
	return raw, nil
}

func parseNumber(f Field, s string) (any, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	if f.Kind == KindInteger && n != float64(int64(n)) {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	if f.Min != nil && n < *f.Min {
		return nil, fmt.Errorf("%v is below minimum %v", n, *f.Min)
	}
	if f.Max != nil && n > *f.Max {
		return nil, fmt.Errorf("%v is above maximum %v", n, *f.Max)
	}
	return n, nil
}

func parseList(f Field, raw string) (any, error) {
	items := make([]any, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if f.ItemKind == KindNumber || f.ItemKind == KindInteger {
			n, err := strconv.ParseFloat(line, 64)
			if err != nil {
				return nil, fmt.Errorf("list item %q is not a number", line)
			}
			items = append(items, n)
			continue
		}
		items = append(items, line)
	}
	return items, nil
}
