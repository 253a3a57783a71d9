package encryption

import (
	"fmt"
	"sync"

	"assura/internal/gdpr/models"
	dErrors "assura/pkg/domain-errors"
)

// Kind names a classified entity type, e.g. "insured_person".
type Kind string

// PersonField describes how one field of an entity is handled as personal data.
// If CreatesSearchHash is set the entity carries a companion hash field.
type PersonField struct {
	FieldName         string
	IsEncrypted       bool
	CreatesSearchHash bool
	Category          models.Category
	IsRequired        bool
	Purpose           string
}

// Binding couples a PersonField to the accessors of a concrete struct.
// Text is required for encrypted fields, Hash for hashed fields. Value
// exposes the plaintext for export; when nil the Text value is used.
type Binding[T any] struct {
	Field PersonField
	Text  func(*T) *string
	Hash  func(*T) *string
	Value func(*T) any
}

func (b Binding[T]) value(e *T) any {
	if b.Value != nil {
		return b.Value(e)
	}
	if b.Text != nil {
		return *b.Text(e)
	}
	return nil
}

// Schema is the typed classification table for one entity kind.
type Schema[T any] struct {
	kind     Kind
	bindings []Binding[T]
	byName   map[string]int
}

// NewSchema validates the bindings once so the hot path never has to.
func NewSchema[T any](kind Kind, bindings ...Binding[T]) (*Schema[T], error) {
	if kind == "" {
		return nil, fmt.Errorf("schema kind is required")
	}
	s := &Schema[T]{kind: kind, bindings: bindings, byName: make(map[string]int, len(bindings))}
	for i, b := range bindings {
		f := b.Field
		if f.FieldName == "" {
			return nil, fmt.Errorf("%s: binding %d has no field name", kind, i)
		}
		if _, dup := s.byName[f.FieldName]; dup {
			return nil, fmt.Errorf("%s.%s: declared twice", kind, f.FieldName)
		}
		if !f.Category.IsValid() {
			return nil, fmt.Errorf("%s.%s: invalid category %q", kind, f.FieldName, f.Category)
		}
		if f.IsEncrypted && b.Text == nil {
			return nil, fmt.Errorf("%s.%s: encrypted field needs a text accessor", kind, f.FieldName)
		}
		if f.CreatesSearchHash && (b.Hash == nil || !f.IsEncrypted) {
			return nil, fmt.Errorf("%s.%s: search hash needs an encrypted field with a hash accessor", kind, f.FieldName)
		}
		if !f.IsEncrypted && b.Text == nil && b.Value == nil {
			return nil, fmt.Errorf("%s.%s: field needs a text or value accessor", kind, f.FieldName)
		}
		s.byName[f.FieldName] = i
	}
	return s, nil
}

// MustSchema is NewSchema for package-level tables; it panics on error.
func MustSchema[T any](kind Kind, bindings ...Binding[T]) *Schema[T] {
	s, err := NewSchema(kind, bindings...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema[T]) Kind() Kind { return s.kind }

// Fields returns the descriptors in declaration order.
func (s *Schema[T]) Fields() []PersonField {
	out := make([]PersonField, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = b.Field
	}
	return out
}

// Values returns each classified field's current value, in declaration order.
func (s *Schema[T]) Values(e *T) []any {
	out := make([]any, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = b.value(e)
	}
	return out
}

// Value returns the current value of the named field.
func (s *Schema[T]) Value(e *T, name string) (any, bool) {
	b, ok := s.binding(name)
	if !ok {
		return nil, false
	}
	return b.value(e), true
}

// SearchHash returns the lookup hash a hashed field stores for value.
func (s *Schema[T]) SearchHash(field, value string) (string, error) {
	b, ok := s.binding(field)
	if !ok || !b.Field.CreatesSearchHash {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("%s.%s is not a searchable field", s.kind, field))
	}
	return CreateHash(value), nil
}

func (s *Schema[T]) binding(name string) (Binding[T], bool) {
	i, ok := s.byName[name]
	if !ok {
		return Binding[T]{}, false
	}
	return s.bindings[i], true
}

// Registry holds the classification tables of every entity kind.
// It is populated at startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind][]PersonField
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Kind][]PersonField)}
}

// Register records the fields of kind. Registering a kind twice is an error.
func (r *Registry) Register(kind Kind, fields []PersonField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("classification for %s already registered", kind)
	}
	r.kinds[kind] = append([]PersonField(nil), fields...)
	return nil
}

// RegisterSchema registers a typed schema's descriptors.
func RegisterSchema[T any](r *Registry, s *Schema[T]) error {
	return r.Register(s.Kind(), s.Fields())
}

// Fields returns a copy of kind's descriptors.
func (r *Registry) Fields(kind Kind) ([]PersonField, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields, ok := r.kinds[kind]
	if !ok {
		return nil, false
	}
	return append([]PersonField(nil), fields...), true
}

// Field looks up a single descriptor by name.
func (r *Registry) Field(kind Kind, name string) (PersonField, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.kinds[kind] {
		if f.FieldName == name {
			return f, true
		}
	}
	return PersonField{}, false
}

// EncryptedFields lists the names of kind's encrypted fields.
func (r *Registry) EncryptedFields(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, f := range r.kinds[kind] {
		if f.IsEncrypted {
			names = append(names, f.FieldName)
		}
	}
	return names
}
