package scheduler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
)

var (
	stDia        = models.State{ID: 1, Name: "Día", ShortName: "D", Priority: 10, Active: true}
	stDescanso   = models.State{ID: 2, Name: "Descanso", ShortName: "X", Priority: 8, Active: true}
	stNoche      = models.State{ID: 3, Name: "Noche", ShortName: "N", Priority: 10, Active: true}
	stVacaciones = models.State{ID: 4, Name: "Vacaciones", ShortName: "V", Priority: 12, Active: true}
	stPermiso    = models.State{ID: 5, Name: "Permiso", ShortName: "P", Priority: 15, Blocking: true, Active: true}
	stLicencia   = models.State{ID: 6, Name: "Licencia", ShortName: "L", Priority: 20, Blocking: true, Active: true}
	stDisponible = models.State{ID: 7, Name: "Disponible", Priority: 5, Default: true, Active: true}
	stPermisoA   = models.State{ID: 8, Name: "Permiso A", Priority: 15, Active: true}
	stPermisoB   = models.State{ID: 9, Name: "Permiso B", Priority: 15, Active: true}
)

func day(y int, m time.Month, d int) time.Time { return models.Date(y, m, d) }

func datePtr(t time.Time) *time.Time { return &t }

func shift7x7() models.Shift {
	return models.Shift{
		ID: 1, Name: "7x7", Active: true,
		Blocks: []models.Block{
			{ID: 11, ShiftID: 1, Position: 1, DurationDays: 7, State: stDia},
			{ID: 12, ShiftID: 1, Position: 2, DurationDays: 7, State: stDescanso},
		},
	}
}

func shift7x7x7x7() models.Shift {
	return models.Shift{
		ID: 2, Name: "7x7x7x7", Active: true,
		Blocks: []models.Block{
			// deliberately out of order; the calculator sorts by position
			{ID: 23, ShiftID: 2, Position: 3, DurationDays: 7, State: stNoche},
			{ID: 21, ShiftID: 2, Position: 1, DurationDays: 7, State: stDia},
			{ID: 24, ShiftID: 2, Position: 4, DurationDays: 7, State: stDescanso},
			{ID: 22, ShiftID: 2, Position: 2, DurationDays: 7, State: stDescanso},
		},
	}
}

// leaveRecord is a minimal external record used through leaveAdapter
type leaveRecord struct {
	ID       uint
	PersonID uint
	From     time.Time
	To       time.Time
	Type     string
}

type leaveAdapter struct{ kind string }

func (a leaveAdapter) Kind() string { return a.kind }

func (a leaveAdapter) Column(field string) (string, bool) {
	switch field {
	case "person", "from", "to", "type":
		return field, true
	}
	return "", false
}

func (a leaveAdapter) ID(rec sources.Record) string {
	return strconv.FormatUint(uint64(rec.(leaveRecord).ID), 10)
}

func (a leaveAdapter) Date(rec sources.Record, field string) (time.Time, bool) {
	r := rec.(leaveRecord)
	switch field {
	case "from":
		return r.From, true
	case "to":
		return r.To, true
	}
	return time.Time{}, false
}

func (a leaveAdapter) Person(rec sources.Record, field string) (uint, bool) {
	if field != "person" {
		return 0, false
	}
	return rec.(leaveRecord).PersonID, true
}

func (a leaveAdapter) Value(rec sources.Record, field string) (string, bool) {
	if field == "type" {
		return rec.(leaveRecord).Type, true
	}
	return "", false
}

func leaveMapping(id uint, kind string, st models.State, extra map[string]string) models.SourceMapping {
	return models.SourceMapping{
		ID: id, State: st, Kind: kind,
		StartField: "from", EndField: "to", PersonField: "person",
		ExtraFilter: extra,
	}
}

type fakeLoader struct {
	states      []models.State
	mappings    []models.SourceMapping
	overrides   []models.ManualOverride
	assignments []models.CycleAssignment
	records     map[string][]leaveRecord
	failKinds   map[string]bool

	recordQueries int
}

func (f *fakeLoader) States(context.Context) ([]models.State, error) { return f.states, nil }

func (f *fakeLoader) SourceMappings(context.Context) ([]models.SourceMapping, error) {
	return f.mappings, nil
}

func (f *fakeLoader) ManualOverrides(_ context.Context, ids []uint, from, to time.Time) ([]models.ManualOverride, error) {
	var out []models.ManualOverride
	for _, o := range f.overrides {
		if containsID(ids, o.PersonID) && !o.StartDate.After(to) && !o.EndDate.Before(from) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeLoader) CycleAssignments(_ context.Context, ids []uint, from, to time.Time) ([]models.CycleAssignment, error) {
	var out []models.CycleAssignment
	for _, a := range f.assignments {
		if a.Active && containsID(ids, a.PersonID) && Overlap(a.StartDate, a.EndDate, from, &to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLoader) ActiveAssignmentsFor(_ context.Context, personID uint) ([]models.CycleAssignment, error) {
	var out []models.CycleAssignment
	for _, a := range f.assignments {
		if a.Active && a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLoader) Records(_ context.Context, q sources.Query) ([]sources.Record, error) {
	f.recordQueries++
	if f.failKinds[q.Kind] {
		return nil, errors.New("table missing")
	}
	var out []sources.Record
	for _, r := range f.records[q.Kind] {
		if containsID(q.PersonIDs, r.PersonID) && !r.From.After(q.To) && !r.To.Before(q.From) {
			out = append(out, r)
		}
	}
	return out, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func stateNames(res models.ResolvedDay) []string {
	names := make([]string, len(res.States))
	for i, s := range res.States {
		names[i] = s.State.Name
	}
	return names
}
