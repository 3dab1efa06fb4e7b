package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Binding is a source mapping compiled against the adapter of its kind.
type Binding struct {
	Mapping models.SourceMapping

	adapter      Adapter
	personColumn string
	startColumn  string
	endColumn    string
}

// Kind is the record kind the binding reads
func (b *Binding) Kind() string { return b.Mapping.Kind }

// Start reads the configured start-date field
func (b *Binding) Start(rec Record) (time.Time, bool) {
	return b.adapter.Date(rec, b.Mapping.StartField)
}

// End reads the configured end-date field
func (b *Binding) End(rec Record) (time.Time, bool) {
	return b.adapter.Date(rec, b.Mapping.EndField)
}

// Person reads the configured person-reference field
func (b *Binding) Person(rec Record) (uint, bool) {
	return b.adapter.Person(rec, b.Mapping.PersonField)
}

// MatchesExtraFilters checks every field=value constraint of the mapping
func (b *Binding) MatchesExtraFilters(rec Record) bool {
	for field, want := range b.Mapping.ExtraFilter {
		got, ok := b.adapter.Value(rec, field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Matches reports whether rec places the person in the mapped state on day
func (b *Binding) Matches(rec Record, personID uint, day time.Time) bool {
	person, ok := b.Person(rec)
	if !ok || person != personID {
		return false
	}
	start, ok := b.Start(rec)
	if !ok || day.Before(models.StoredDate(start)) {
		return false
	}
	end, ok := b.End(rec)
	if !ok || day.After(models.StoredDate(end)) {
		return false
	}
	return b.MatchesExtraFilters(rec)
}

// Query builds the store query fetching this binding's records for people over [from, to]
func (b *Binding) Query(personIDs []uint, from, to time.Time) Query {
	return Query{
		Kind:         b.Mapping.Kind,
		PersonColumn: b.personColumn,
		StartColumn:  b.startColumn,
		EndColumn:    b.endColumn,
		PersonIDs:    personIDs,
		From:         from,
		To:           to,
	}
}

// Find returns the bound state for the first matching record. Later matches
// under the same mapping are not distinguished.
func (b *Binding) Find(records []Record, personID uint, day time.Time) (models.ResolvedState, bool) {
	if !b.Mapping.State.Active {
		return models.ResolvedState{}, false
	}
	for _, rec := range records {
		if b.Matches(rec, personID, day) {
			return models.ResolvedState{
				State:  b.Mapping.State,
				Source: models.SourceExternal,
				Ref:    b.Mapping.Kind + ":" + b.adapter.ID(rec),
			}, true
		}
	}
	return models.ResolvedState{}, false
}

// FindStateForDate is the generic, non-batch lookup: it fetches the person's
// records for that one day from the store and evaluates the binding.
func FindStateForDate(ctx context.Context, store RecordStore, b *Binding, personID uint, day time.Time) (models.ResolvedState, bool, error) {
	if !b.Mapping.State.Active {
		return models.ResolvedState{}, false, nil
	}
	day = models.DateOf(day)
	records, err := store.Records(ctx, b.Query([]uint{personID}, day, day))
	if err != nil {
		return models.ResolvedState{}, false, fmt.Errorf("fetching %s records: %w", b.Kind(), err)
	}
	rs, ok := b.Find(records, personID, day)
	return rs, ok, nil
}
