package configform

import (
	"net/url"
	"sync"
)

// Binder keeps the loaded configuration document together with the fields
// generated for it.
type Binder struct {
	mu     sync.RWMutex
	doc    Document
	schema *Schema
	fields []Field
}

// NewBinder creates an empty binder.
func NewBinder() *Binder {
	return &Binder{doc: Document{}}
}

// Load replaces the document and regenerates the fields. A nil schema is
// inferred from the document.
func (b *Binder) Load(doc Document, schema *Schema) {
	doc = DeepCopy(doc)
	if schema == nil {
		schema = InferSchema(doc)
	}
	fields := Generate(doc, schema)

	b.mu.Lock()
	b.doc = doc
	b.schema = schema
	b.fields = fields
	b.mu.Unlock()
}

// Loaded reports whether a document has been loaded.
func (b *Binder) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema != nil
}

// Fields returns the generated fields.
func (b *Binder) Fields() []Field {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Field, len(b.fields))
	copy(out, b.fields)
	return out
}

// Document returns a copy of the loaded document.
func (b *Binder) Document() Document {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return DeepCopy(b.doc)
}

// Extract builds the document to save from submitted form values. The
// binder itself is unchanged until Commit.
func (b *Binder) Extract(form url.Values) (Document, []FieldError) {
	b.mu.RLock()
	fields, doc := b.fields, b.doc
	b.mu.RUnlock()
	return Extract(fields, form, doc)
}

// Commit reloads the binder with a document the backend accepted.
func (b *Binder) Commit(doc Document) {
	b.mu.RLock()
	schema := b.schema
	b.mu.RUnlock()
	b.Load(doc, schema)
}

// FormValues returns the values a browser would submit for the current
// fields without edits.
func (b *Binder) FormValues() url.Values {
	return FormValues(b.Fields())
}

// FormValues renders fields the way an unedited form submits them:
// unchecked checkboxes are omitted.
func FormValues(fields []Field) url.Values {
	v := url.Values{}
	for _, f := range fields {
		if f.Kind == KindBoolean {
			if f.Checked {
				v.Set(f.Key, "on")
			}
			continue
		}
		v.Set(f.Key, f.Value)
	}
	return v
}
