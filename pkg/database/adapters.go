package database

import (
	"strconv"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
)

// Record kinds stored in this database
const (
	KindAbsence      = "absence"
	KindMedicalLeave = "medical_leave"
)

// NewRegistry returns a registry holding the adapters of every stored record kind
func NewRegistry() *sources.Registry {
	return sources.NewRegistry(AbsenceAdapter{}, MedicalLeaveAdapter{})
}

// kindColumns whitelists the columns a record query may filter on
type kindColumns struct {
	person []string
	dates  []string
}

var queryable = map[string]kindColumns{
	KindAbsence:      {person: []string{"person_id"}, dates: []string{"start_date", "end_date"}},
	KindMedicalLeave: {person: []string{"person_id"}, dates: []string{"issued_on", "ends_on"}},
}

// AbsenceAdapter exposes Absence rows to source mappings
type AbsenceAdapter struct{}

func (AbsenceAdapter) Kind() string { return KindAbsence }

func (AbsenceAdapter) Column(field string) (string, bool) {
	switch field {
	case "person_id", "start_date", "end_date", "absence_type_id", "type":
		return field, true
	}
	return "", false
}

func (AbsenceAdapter) ID(rec sources.Record) string {
	return strconv.FormatUint(uint64(rec.(Absence).ID), 10)
}

func (AbsenceAdapter) Date(rec sources.Record, field string) (time.Time, bool) {
	a := rec.(Absence)
	switch field {
	case "start_date":
		return a.StartDate, true
	case "end_date":
		return a.EndDate, true
	}
	return time.Time{}, false
}

func (AbsenceAdapter) Person(rec sources.Record, field string) (uint, bool) {
	if field != "person_id" {
		return 0, false
	}
	return rec.(Absence).PersonID, true
}

func (AbsenceAdapter) Value(rec sources.Record, field string) (string, bool) {
	a := rec.(Absence)
	switch field {
	case "person_id":
		return strconv.FormatUint(uint64(a.PersonID), 10), true
	case "absence_type_id":
		return strconv.FormatUint(uint64(a.AbsenceTypeID), 10), true
	case "type":
		return a.AbsenceType.Name, true
	case "start_date", "end_date":
		d, _ := AbsenceAdapter{}.Date(rec, field)
		return models.StoredDate(d).Format(models.DateLayout), true
	}
	return "", false
}

// MedicalLeaveAdapter exposes MedicalLeave rows to source mappings
type MedicalLeaveAdapter struct{}

func (MedicalLeaveAdapter) Kind() string { return KindMedicalLeave }

func (MedicalLeaveAdapter) Column(field string) (string, bool) {
	switch field {
	case "person_id", "issued_on", "ends_on", "leave_type_id", "type":
		return field, true
	}
	return "", false
}

func (MedicalLeaveAdapter) ID(rec sources.Record) string {
	return strconv.FormatUint(uint64(rec.(MedicalLeave).ID), 10)
}

func (MedicalLeaveAdapter) Date(rec sources.Record, field string) (time.Time, bool) {
	l := rec.(MedicalLeave)
	switch field {
	case "issued_on":
		return l.IssuedOn, true
	case "ends_on":
		return l.EndsOn, true
	}
	return time.Time{}, false
}

func (MedicalLeaveAdapter) Person(rec sources.Record, field string) (uint, bool) {
	if field != "person_id" {
		return 0, false
	}
	return rec.(MedicalLeave).PersonID, true
}

func (MedicalLeaveAdapter) Value(rec sources.Record, field string) (string, bool) {
	l := rec.(MedicalLeave)
	switch field {
	case "person_id":
		return strconv.FormatUint(uint64(l.PersonID), 10), true
	case "leave_type_id":
		return strconv.FormatUint(uint64(l.LeaveTypeID), 10), true
	case "type":
		return l.LeaveType.Name, true
	case "issued_on", "ends_on":
		d, _ := MedicalLeaveAdapter{}.Date(rec, field)
		return models.StoredDate(d).Format(models.DateLayout), true
	}
	return "", false
}
