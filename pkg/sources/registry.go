// Package sources answers "is person P in state S on date D" from external
// records (absences, medical leave, ...) without per-kind resolution code.
//
// Every record kind registers an Adapter that exposes its attributes by field
// name. A source mapping names the kind and the three fields to read; it is
// compiled into a Binding once and then evaluated against records either
// fetched per call (FindStateForDate) or pre-fetched for a whole month
// (Prefetch + FindStatesForDate).
package sources

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Record is one row of an external record kind. Only its adapter knows the concrete type.
type Record any

// Adapter exposes the attributes of one record kind by field name.
type Adapter interface {
	// Kind is the name mappings use to refer to this record kind.
	Kind() string

	// Column maps a field name to its storage column, false when the kind has no such field.
	Column(field string) (string, bool)

	// ID identifies the record; it becomes the provenance reference of a match.
	ID(rec Record) string

	// Date returns a stored calendar date, written at UTC midnight. The zone
	// the driver reads it back in does not matter.
	Date(rec Record, field string) (time.Time, bool)
	Person(rec Record, field string) (uint, bool)

	// Value renders any exposed field as a string for extra-filter equality checks.
	Value(rec Record, field string) (string, bool)
}

// Query asks a RecordStore for records of one kind that overlap [From, To]
// for the given people.
type Query struct {
	Kind         string
	PersonColumn string
	StartColumn  string
	EndColumn    string
	PersonIDs    []uint
	From         time.Time
	To           time.Time
}

// RecordStore is the generic record store, queried by kind name.
type RecordStore interface {
	Records(ctx context.Context, q Query) ([]Record, error)
}

// Registry is the kind name -> adapter lookup table.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its kind
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Kind()] = a
}

// Adapter looks up the adapter for a kind
func (r *Registry) Adapter(kind string) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds lists the registered kind names in alphabetical order
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Bind compiles a mapping against its adapter. Unknown kinds and fields come
// back as *models.ConfigurationError.
func (r *Registry) Bind(m models.SourceMapping) (*Binding, error) {
	a, ok := r.adapters[m.Kind]
	if !ok {
		return nil, &models.ConfigurationError{MappingID: m.ID, Kind: m.Kind, Err: models.ErrUnknownKind}
	}

	b := &Binding{Mapping: m, adapter: a}
	fields := []string{m.StartField, m.EndField, m.PersonField}
	for field := range m.ExtraFilter {
		fields = append(fields, field)
	}
	for _, field := range fields {
		if _, ok := a.Column(field); !ok {
			return nil, &models.ConfigurationError{
				MappingID: m.ID,
				Kind:      m.Kind,
				Err:       fmt.Errorf("%w: %q", models.ErrUnknownField, field),
			}
		}
	}
	b.personColumn, _ = a.Column(m.PersonField)
	b.startColumn, _ = a.Column(m.StartField)
	b.endColumn, _ = a.Column(m.EndField)
	return b, nil
}

// BindAll compiles every mapping, returning the usable bindings in input
// order and one error per skipped mapping.
func (r *Registry) BindAll(mappings []models.SourceMapping) ([]*Binding, []error) {
	bindings := make([]*Binding, 0, len(mappings))
	var errs []error
	for _, m := range mappings {
		b, err := r.Bind(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bindings = append(bindings, b)
	}
	return bindings, errs
}
