package database

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := InitDB(config.Config{DataPath: filepath.Join(t.TempDir(), "calendar.db")})
	require.NoError(t, err)
	return NewStore(db)
}

type fixture struct {
	person     models.Person
	site       models.Site
	dia        models.State
	descanso   models.State
	permiso    models.State
	licencia   models.State
	vacaciones models.State
	shift      models.Shift
}

func seedFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture

	f.person = models.Person{RUT: "12345678", FirstName: "KEVIN", LastName: "MORALES", Email: "kevin@example.com", Active: true}
	require.NoError(t, s.CreatePerson(ctx, &f.person))
	f.site = models.Site{Name: "Faena Norte", Active: true}
	require.NoError(t, s.CreateSite(ctx, &f.site))

	for _, st := range []*models.State{
		{Name: "Día", ShortName: "D", Color: "#000000", BackgroundColor: "#FFD966", Priority: 10, Active: true},
		{Name: "Descanso", ShortName: "X", Color: "#000000", BackgroundColor: "#D9D9D9", Priority: 8, Active: true},
		{Name: "Permiso", ShortName: "P", Color: "#FFFFFF", BackgroundColor: "#E06666", Priority: 15, Blocking: true, Active: true},
		{Name: "Licencia", ShortName: "L", Color: "#FFFFFF", BackgroundColor: "#CC0000", Priority: 20, Blocking: true, Active: true},
		{Name: "Vacaciones", ShortName: "V", Color: "#000000", BackgroundColor: "#93C47D", Priority: 12, Active: true},
	} {
		require.NoError(t, s.SaveState(ctx, st))
		switch st.Name {
		case "Día":
			f.dia = *st
		case "Descanso":
			f.descanso = *st
		case "Permiso":
			f.permiso = *st
		case "Licencia":
			f.licencia = *st
		case "Vacaciones":
			f.vacaciones = *st
		}
	}

	f.shift = models.Shift{Name: "7x7", Active: true, Blocks: []models.Block{
		{Position: 1, DurationDays: 7, State: f.dia},
		{Position: 2, DurationDays: 7, State: f.descanso},
	}}
	require.NoError(t, s.CreateShift(ctx, &f.shift))
	return f
}

func TestStore_ResolveMonthEndToEnd(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	shift, err := s.Shift(ctx, f.shift.ID)
	require.NoError(t, err)
	require.Len(t, shift.Blocks, 2)
	require.Equal(t, "Día", shift.Blocks[0].State.Name)

	a := models.CycleAssignment{
		PersonID: f.person.ID, SiteID: f.site.ID, Shift: shift, StartBlock: shift.Blocks[0],
		StartDate: models.Date(2025, time.January, 1), Active: true,
	}
	require.NoError(t, s.SaveAssignment(ctx, &a))

	o := models.ManualOverride{
		PersonID: f.person.ID, State: f.vacaciones,
		StartDate: models.Date(2025, time.February, 1), EndDate: models.Date(2025, time.February, 10), Active: true,
	}
	require.NoError(t, s.SaveOverride(ctx, &o))

	admin, err := s.AbsenceTypeNamed(ctx, "Permiso administrativo")
	require.NoError(t, err)
	other, err := s.AbsenceTypeNamed(ctx, "Otro")
	require.NoError(t, err)
	again, err := s.AbsenceTypeNamed(ctx, "Otro")
	require.NoError(t, err)
	require.Equal(t, other.ID, again.ID)

	permit := Absence{AbsenceTypeID: admin.ID, PersonID: f.person.ID,
		StartDate: models.Date(2025, time.February, 20), EndDate: models.Date(2025, time.February, 21)}
	require.NoError(t, s.CreateAbsence(ctx, &permit))
	require.NoError(t, s.CreateAbsence(ctx, &Absence{AbsenceTypeID: other.ID, PersonID: f.person.ID,
		StartDate: models.Date(2025, time.February, 24), EndDate: models.Date(2025, time.February, 24)}))

	leaveType, err := s.MedicalLeaveTypeNamed(ctx, "Enfermedad común")
	require.NoError(t, err)
	require.NoError(t, s.CreateMedicalLeave(ctx, &MedicalLeave{PersonID: f.person.ID, LeaveTypeID: leaveType.ID,
		IssuedOn: models.Date(2025, time.February, 26), EndsOn: models.Date(2025, time.February, 27)}))

	require.NoError(t, s.CreateSourceMapping(ctx, &models.SourceMapping{
		State: f.permiso, Kind: KindAbsence,
		StartField: "start_date", EndField: "end_date", PersonField: "person_id",
		ExtraFilter: map[string]string{"type": "Permiso administrativo"},
	}))
	require.NoError(t, s.CreateSourceMapping(ctx, &models.SourceMapping{
		State: f.licencia, Kind: KindMedicalLeave,
		StartField: "issued_on", EndField: "ends_on", PersonField: "person_id",
	}))

	mappings, err := s.SourceMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	require.Equal(t, "Permiso administrativo", mappings[0].ExtraFilter["type"])

	people, err := s.People(ctx, true)
	require.NoError(t, err)

	sched := scheduler.NewScheduler(s, NewRegistry())
	cal, err := sched.ResolveMonth(ctx, people, 2025, time.February)
	require.NoError(t, err)

	name := func(day int) string {
		cell := cal.Cell(f.person.ID, day)
		require.NotNil(t, cell, "day %d", day)
		return cell.States[0].State.Name
	}
	require.Equal(t, "Vacaciones", name(5))
	require.Equal(t, "Día", name(12))
	require.Equal(t, "Permiso", name(20))
	require.Equal(t, "absence:"+strconv.FormatUint(uint64(permit.ID), 10), cal.Cell(f.person.ID, 20).States[0].Ref)
	require.Equal(t, "Descanso", name(24), "absence of another type must not match the filter")
	require.Equal(t, "Licencia", name(26))

	single, err := sched.ResolveDay(ctx, f.person.ID, models.Date(2025, time.February, 21))
	require.NoError(t, err)
	require.Equal(t, "Permiso", single.States[0].State.Name)
}

func TestStore_SetDefaultState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	require.NoError(t, s.SetDefaultState(ctx, f.dia.ID))
	require.NoError(t, s.SetDefaultState(ctx, f.descanso.ID))

	states, err := s.States(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, st := range states {
		if st.Default {
			defaults++
			require.Equal(t, "Descanso", st.Name)
		}
	}
	require.Equal(t, 1, defaults)

	// a plain save of a second default is refused by validation
	candidate := f.permiso
	candidate.Default = true
	require.ErrorIs(t, scheduler.ValidateState(candidate, states), models.ErrSecondDefault)

	require.ErrorIs(t, s.SetDefaultState(ctx, 999), models.ErrNotFound)
}

func TestStore_Constraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	dup := models.State{Name: "Día", Color: "#000000", BackgroundColor: "#FFFFFF", Priority: 1, Active: true}
	require.ErrorIs(t, s.SaveState(ctx, &dup), gorm.ErrDuplicatedKey)

	m := models.SourceMapping{State: f.permiso, Kind: KindAbsence, StartField: "start_date", EndField: "end_date", PersonField: "person_id"}
	require.NoError(t, s.CreateSourceMapping(ctx, &m))
	m2 := m
	m2.ID = 0
	require.ErrorIs(t, s.CreateSourceMapping(ctx, &m2), gorm.ErrDuplicatedKey)

	bad := models.Shift{Name: "dup", Active: true, Blocks: []models.Block{
		{Position: 1, DurationDays: 5, State: f.dia},
		{Position: 1, DurationDays: 2, State: f.descanso},
	}}
	require.Error(t, s.CreateShift(ctx, &bad))
	shifts, err := s.Shifts(ctx)
	require.NoError(t, err)
	require.Len(t, shifts, 1, "failed shift creation must roll back")

	require.ErrorIs(t, s.CreateAbsence(ctx, &Absence{PersonID: f.person.ID,
		StartDate: models.Date(2025, time.March, 2), EndDate: models.Date(2025, time.March, 1)}), models.ErrInvalidRange)

	_, err = s.Person(ctx, 404)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_AssignmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)
	sched := scheduler.NewScheduler(s, NewRegistry())

	shift, err := s.Shift(ctx, f.shift.ID)
	require.NoError(t, err)
	first := models.CycleAssignment{
		PersonID: f.person.ID, SiteID: f.site.ID, Shift: shift, StartBlock: shift.Blocks[0],
		StartDate: models.Date(2025, time.January, 1), EndDate: ptr(models.Date(2025, time.February, 28)), Active: true,
	}
	require.NoError(t, sched.ValidateAssignment(ctx, first))
	require.NoError(t, s.SaveAssignment(ctx, &first))

	second := first
	second.ID = 0
	second.StartDate = models.Date(2025, time.March, 1)
	second.EndDate = nil
	require.NoError(t, sched.ValidateAssignment(ctx, second))
	require.NoError(t, s.SaveAssignment(ctx, &second))

	// stretching the first into the second is refused
	first.EndDate = ptr(models.Date(2025, time.March, 31))
	require.ErrorIs(t, sched.ValidateAssignment(ctx, first), models.ErrAssignmentOverlap)

	// disabling the second frees the range
	require.NoError(t, s.DisableAssignment(ctx, second.ID))
	require.NoError(t, sched.ValidateAssignment(ctx, first))
	require.NoError(t, s.SaveAssignment(ctx, &first))

	loaded, err := s.Assignment(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.Date(2025, time.March, 31), *loaded.EndDate)
	require.Equal(t, "7x7", loaded.Shift.Name)
	require.Equal(t, shift.Blocks[0].ID, loaded.StartBlock.ID)

	active, err := s.ActiveAssignmentsFor(ctx, f.person.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.ErrorIs(t, s.DisableAssignment(ctx, 999), models.ErrNotFound)
}

func TestStore_RecordsWhitelist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	from, to := models.Date(2025, time.January, 1), models.Date(2025, time.January, 31)

	_, err := s.Records(ctx, sources.Query{Kind: "payroll", PersonColumn: "person_id", StartColumn: "a", EndColumn: "b", PersonIDs: []uint{1}, From: from, To: to})
	require.ErrorIs(t, err, models.ErrUnknownKind)

	_, err = s.Records(ctx, sources.Query{Kind: KindAbsence, PersonColumn: "person_id", StartColumn: "type", EndColumn: "end_date", PersonIDs: []uint{1}, From: from, To: to})
	require.ErrorIs(t, err, models.ErrUnknownField)

	recs, err := s.Records(ctx, sources.Query{Kind: KindAbsence, PersonColumn: "person_id", StartColumn: "start_date", EndColumn: "end_date", PersonIDs: []uint{1}, From: from, To: to})
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestStore_RecordUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := APIKey{Key: "ops.abc", Name: "ops"}
	require.NoError(t, s.DB.Create(&key).Error)

	require.NoError(t, s.RecordUsage(ctx, key.ID, 10, 310))
	require.NoError(t, s.RecordUsage(ctx, key.ID, 1, 1))

	usage, err := s.Usage(ctx, key.ID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	require.Equal(t, 2, usage[0].RequestCount)
	require.Equal(t, 11, usage[0].People)
	require.Equal(t, 311, usage[0].Days)
}

func ptr[T any](v T) *T { return &v }
