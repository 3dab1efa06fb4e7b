package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed calendar store
type Store struct {
	DB *gorm.DB
}

var _ scheduler.Loader = (*Store)(nil)

// NewStore wraps an open database
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// notFound turns gorm's missing-row error into models.ErrNotFound
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return err
}

// States returns every state, active first and by descending priority
func (s *Store) States(ctx context.Context) ([]models.State, error) {
	var rows []State
	if err := s.db(ctx).Order("priority desc, name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.State, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	models.SortStates(out)
	return out, nil
}

// State loads one state
func (s *Store) State(ctx context.Context, id uint) (models.State, error) {
	var row State
	if err := s.db(ctx).First(&row, id).Error; err != nil {
		return models.State{}, notFound(err, "state", id)
	}
	return row.toModel(), nil
}

// SourceMappings returns every mapping with its state, in id order
func (s *Store) SourceMappings(ctx context.Context) ([]models.SourceMapping, error) {
	var rows []SourceMapping
	if err := s.db(ctx).Preload("State").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.SourceMapping, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// ManualOverrides returns active overrides of the people intersecting [from, to]
func (s *Store) ManualOverrides(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.ManualOverride, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	var rows []ManualOverride
	err := s.db(ctx).Preload("State").
		Where("person_id IN ? AND active = ?", personIDs, true).
		Where("start_date <= ? AND end_date >= ?", models.DateOf(to), models.DateOf(from)).
		Order("start_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.ManualOverride, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) assignments(ctx context.Context) *gorm.DB {
	return s.db(ctx).
		Preload("Shift.Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Shift.Blocks.State").
		Preload("StartBlock.State").
		Order("start_date, id")
}

func assignmentModels(rows []CycleAssignment) []models.CycleAssignment {
	out := make([]models.CycleAssignment, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

// CycleAssignments returns active assignments of the people intersecting [from, to]
func (s *Store) CycleAssignments(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.CycleAssignment, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	var rows []CycleAssignment
	err := s.assignments(ctx).
		Where("person_id IN ? AND active = ?", personIDs, true).
		Where("start_date <= ?", models.DateOf(to)).
		Where("(end_date IS NULL OR end_date >= ?)", models.DateOf(from)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return assignmentModels(rows), nil
}

// ActiveAssignmentsFor returns every active assignment of one person
func (s *Store) ActiveAssignmentsFor(ctx context.Context, personID uint) ([]models.CycleAssignment, error) {
	var rows []CycleAssignment
	err := s.assignments(ctx).
		Where("person_id = ? AND active = ?", personID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return assignmentModels(rows), nil
}

// Records implements sources.RecordStore. Only whitelisted columns of the
// known kinds can be queried.
func (s *Store) Records(ctx context.Context, q sources.Query) ([]sources.Record, error) {
	cols, ok := queryable[q.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, q.Kind)
	}
	if !slices.Contains(cols.person, q.PersonColumn) {
		return nil, fmt.Errorf("%w: %q is not a person column of %s", models.ErrUnknownField, q.PersonColumn, q.Kind)
	}
	for _, c := range []string{q.StartColumn, q.EndColumn} {
		if !slices.Contains(cols.dates, c) {
			return nil, fmt.Errorf("%w: %q is not a date column of %s", models.ErrUnknownField, c, q.Kind)
		}
	}
	if len(q.PersonIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, len(q.PersonIDs))
	for i, id := range q.PersonIDs {
		ids[i] = id
	}
	tx := s.db(ctx).
		Where(clause.IN{Column: clause.Column{Name: q.PersonColumn}, Values: ids}).
		Where(clause.Lte{Column: clause.Column{Name: q.StartColumn}, Value: models.DateOf(q.To)}).
		Where(clause.Gte{Column: clause.Column{Name: q.EndColumn}, Value: models.DateOf(q.From)}).
		Order("id")

	switch q.Kind {
	case KindAbsence:
		var rows []Absence
		if err := tx.Preload("AbsenceType").Find(&rows).Error; err != nil {
			return nil, err
		}
		return toRecords(rows), nil
	case KindMedicalLeave:
		var rows []MedicalLeave
		if err := tx.Preload("LeaveType").Find(&rows).Error; err != nil {
			return nil, err
		}
		return toRecords(rows), nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, q.Kind)
}

func toRecords[T any](rows []T) []sources.Record {
	out := make([]sources.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// People lists people ordered by last name; activeOnly drops inactive ones
func (s *Store) People(ctx context.Context, activeOnly bool) ([]models.Person, error) {
	tx := s.db(ctx).Order("last_name, first_name, id")
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}
	var rows []Person
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Person, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Person loads one person
func (s *Store) Person(ctx context.Context, id uint) (models.Person, error) {
	var row Person
	if err := s.db(ctx).First(&row, id).Error; err != nil {
		return models.Person{}, notFound(err, "person", id)
	}
	return row.toModel(), nil
}

// Sites lists every site by name
func (s *Store) Sites(ctx context.Context) ([]models.Site, error) {
	var rows []Site
	if err := s.db(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Site, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Site loads one site
func (s *Store) Site(ctx context.Context, id uint) (models.Site, error) {
	var row Site
	if err := s.db(ctx).First(&row, id).Error; err != nil {
		return models.Site{}, notFound(err, "site", id)
	}
	return row.toModel(), nil
}

// Shifts lists every shift with its ordered blocks
func (s *Store) Shifts(ctx context.Context) ([]models.Shift, error) {
	var rows []Shift
	err := s.db(ctx).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Blocks.State").
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Shift, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Shift loads one shift with its ordered blocks
func (s *Store) Shift(ctx context.Context, id uint) (models.Shift, error) {
	var row Shift
	err := s.db(ctx).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Blocks.State").
		First(&row, id).Error
	if err != nil {
		return models.Shift{}, notFound(err, "shift", id)
	}
	return row.toModel(), nil
}

// Block loads one shift block, whatever shift it belongs to
func (s *Store) Block(ctx context.Context, id uint) (models.Block, error) {
	var row ShiftBlock
	if err := s.db(ctx).Preload("State").First(&row, id).Error; err != nil {
		return models.Block{}, notFound(err, "block", id)
	}
	return row.toModel(), nil
}

// Assignment loads one assignment, active or not
func (s *Store) Assignment(ctx context.Context, id uint) (models.CycleAssignment, error) {
	var row CycleAssignment
	if err := s.assignments(ctx).First(&row, id).Error; err != nil {
		return models.CycleAssignment{}, notFound(err, "assignment", id)
	}
	return row.toModel(), nil
}

// Override loads one manual override
func (s *Store) Override(ctx context.Context, id uint) (models.ManualOverride, error) {
	var row ManualOverride
	if err := s.db(ctx).Preload("State").First(&row, id).Error; err != nil {
		return models.ManualOverride{}, notFound(err, "override", id)
	}
	return row.toModel(), nil
}
