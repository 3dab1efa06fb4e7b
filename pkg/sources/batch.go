package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Records holds one person's pre-fetched records keyed by kind name.
type Records map[string][]Record

// Prefetched holds pre-fetched records per person ID.
type Prefetched map[uint]Records

// For returns the records of one person, never nil
func (p Prefetched) For(personID uint) Records {
	if r, ok := p[personID]; ok {
		return r
	}
	return Records{}
}

// Prefetch issues one store query per distinct (kind, columns) combination
// among the bindings and groups the results per person. A failing query is
// reported as a *models.ConfigurationError for each binding it served and
// does not stop the others.
func Prefetch(ctx context.Context, store RecordStore, bindings []*Binding, personIDs []uint, from, to time.Time) (Prefetched, []error) {
	out := make(Prefetched, len(personIDs))
	if len(personIDs) == 0 {
		return out, nil
	}

	type queryKey struct{ kind, person, start, end string }
	type recordKey struct {
		kind   string
		person uint
		id     string
	}
	seen := make(map[queryKey]bool)
	failed := make(map[queryKey]error)
	stored := make(map[recordKey]bool)
	var errs []error

	for _, b := range bindings {
		q := b.Query(personIDs, from, to)
		key := queryKey{q.Kind, q.PersonColumn, q.StartColumn, q.EndColumn}
		if seen[key] {
			if err := failed[key]; err != nil {
				errs = append(errs, fetchError(b, err))
			}
			continue
		}
		seen[key] = true

		records, err := store.Records(ctx, q)
		if err != nil {
			failed[key] = err
			errs = append(errs, fetchError(b, err))
			continue
		}

		for _, rec := range records {
			person, ok := b.Person(rec)
			if !ok {
				continue
			}
			rk := recordKey{q.Kind, person, b.adapter.ID(rec)}
			if stored[rk] {
				continue
			}
			stored[rk] = true
			if out[person] == nil {
				out[person] = Records{}
			}
			out[person][q.Kind] = append(out[person][q.Kind], rec)
		}
	}
	return out, errs
}

func fetchError(b *Binding, err error) error {
	return &models.ConfigurationError{
		MappingID: b.Mapping.ID,
		Kind:      b.Kind(),
		Err:       fmt.Errorf("fetching records: %w", err),
	}
}

// FindStatesForDate is the batch variant: it evaluates every binding against
// already fetched records and returns one fact per mapping that fires, in
// binding order.
func FindStatesForDate(bindings []*Binding, records Records, personID uint, day time.Time) []models.ResolvedState {
	var facts []models.ResolvedState
	for _, b := range bindings {
		if rs, ok := b.Find(records[b.Kind()], personID, day); ok {
			facts = append(facts, rs)
		}
	}
	return facts
}
