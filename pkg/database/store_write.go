package database

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePerson inserts a person and sets its ID
func (s *Store) CreatePerson(ctx context.Context, p *models.Person) error {
	row := Person{
		RUT:            p.RUT,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		MotherLastName: p.MotherLastName,
		Email:          p.Email,
		Active:         p.Active,
	}
	if err := s.db(ctx).Create(&row).Error; err != nil {
		return err
	}
	p.ID = row.ID
	return nil
}

// CreateSite inserts a site and sets its ID
func (s *Store) CreateSite(ctx context.Context, site *models.Site) error {
	row := Site{Name: site.Name, Location: site.Location, Description: site.Description, Active: site.Active}
	if err := s.db(ctx).Create(&row).Error; err != nil {
		return err
	}
	site.ID = row.ID
	return nil
}

// SaveState inserts the state when it has no ID and updates it otherwise.
// Callers validate the single-default rule first.
func (s *Store) SaveState(ctx context.Context, st *models.State) error {
	row := stateRow(*st)
	if row.ID == 0 {
		if err := s.db(ctx).Create(&row).Error; err != nil {
			return err
		}
		st.ID = row.ID
		return nil
	}

	res := s.db(ctx).Model(&State{ID: row.ID}).Select("*").Omit("id").Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("state %d: %w", row.ID, models.ErrNotFound)
	}
	return nil
}

// SetDefaultState makes id the only default state. Clearing the others and
// setting the new one happen in one transaction.
func (s *Store) SetDefaultState(ctx context.Context, id uint) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var row State
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "state", id)
		}
		if err := tx.Model(&State{}).Where("id <> ? AND is_default = ?", id, true).Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&row).Update("is_default", true).Error
	})
}

// CreateSourceMapping inserts a mapping. A second mapping for the same state
// violates a unique index.
func (s *Store) CreateSourceMapping(ctx context.Context, m *models.SourceMapping) error {
	row := SourceMapping{
		StateID:     m.State.ID,
		Kind:        m.Kind,
		StartField:  m.StartField,
		EndField:    m.EndField,
		PersonField: m.PersonField,
		ExtraFilter: m.ExtraFilter,
	}
	if err := s.db(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return err
	}
	m.ID = row.ID
	return nil
}

// CreateShift inserts a shift with its blocks in one transaction
func (s *Store) CreateShift(ctx context.Context, shift *models.Shift) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		row := Shift{Name: shift.Name, Description: shift.Description, Active: shift.Active}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		shift.ID = row.ID

		for i := range shift.Blocks {
			b := &shift.Blocks[i]
			block := ShiftBlock{
				ShiftID:      row.ID,
				Position:     b.Position,
				DurationDays: b.DurationDays,
				StateID:      b.State.ID,
			}
			if err := tx.Omit(clause.Associations).Create(&block).Error; err != nil {
				return err
			}
			b.ID = block.ID
			b.ShiftID = row.ID
		}
		return nil
	})
}

// SaveAssignment inserts the assignment when it has no ID and updates it
// otherwise. Callers run the overlap check first.
func (s *Store) SaveAssignment(ctx context.Context, a *models.CycleAssignment) error {
	row := CycleAssignment{
		ID:           a.ID,
		PersonID:     a.PersonID,
		SiteID:       a.SiteID,
		ShiftID:      a.Shift.ID,
		StartBlockID: a.StartBlock.ID,
		StartDate:    models.DateOf(a.StartDate),
		EndDate:      datePtr(a.EndDate),
		Notes:        a.Notes,
		Active:       a.Active,
	}
	if row.ID == 0 {
		if err := s.db(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		a.ID = row.ID
		return nil
	}

	res := s.db(ctx).Model(&CycleAssignment{ID: row.ID}).
		Select("person_id", "site_id", "shift_id", "start_block_id", "start_date", "end_date", "notes", "active").
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assignment %d: %w", row.ID, models.ErrNotFound)
	}
	return nil
}

// DisableAssignment marks an assignment inactive. Assignments are never hard-deleted.
func (s *Store) DisableAssignment(ctx context.Context, id uint) error {
	res := s.db(ctx).Model(&CycleAssignment{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assignment %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SaveOverride inserts the override when it has no ID and updates it otherwise
func (s *Store) SaveOverride(ctx context.Context, o *models.ManualOverride) error {
	row := ManualOverride{
		ID:        o.ID,
		PersonID:  o.PersonID,
		StateID:   o.State.ID,
		StartDate: models.DateOf(o.StartDate),
		EndDate:   models.DateOf(o.EndDate),
		Reason:    o.Reason,
		Active:    o.Active,
	}
	if row.ID == 0 {
		if err := s.db(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		o.ID = row.ID
		o.CreatedAt = row.CreatedAt
		return nil
	}

	res := s.db(ctx).Model(&ManualOverride{ID: row.ID}).
		Select("person_id", "state_id", "start_date", "end_date", "reason", "active").
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("override %d: %w", row.ID, models.ErrNotFound)
	}
	return nil
}

// AbsenceTypeNamed returns the absence type with that name, creating it if needed
func (s *Store) AbsenceTypeNamed(ctx context.Context, name string) (AbsenceType, error) {
	var t AbsenceType
	err := s.db(ctx).Where(AbsenceType{Name: name}).FirstOrCreate(&t).Error
	return t, err
}

// CreateAbsence inserts an absence record
func (s *Store) CreateAbsence(ctx context.Context, a *Absence) error {
	if a.EndDate.Before(a.StartDate) {
		return models.Invalid("end_date", models.ErrInvalidRange)
	}
	a.StartDate, a.EndDate = models.DateOf(a.StartDate), models.DateOf(a.EndDate)
	return s.db(ctx).Omit(clause.Associations).Create(a).Error
}

// MedicalLeaveTypeNamed returns the leave type with that name, creating it if needed
func (s *Store) MedicalLeaveTypeNamed(ctx context.Context, name string) (MedicalLeaveType, error) {
	var t MedicalLeaveType
	err := s.db(ctx).Where(MedicalLeaveType{Name: name}).FirstOrCreate(&t).Error
	return t, err
}

// CreateMedicalLeave inserts a medical leave record
func (s *Store) CreateMedicalLeave(ctx context.Context, l *MedicalLeave) error {
	if l.EndsOn.Before(l.IssuedOn) {
		return models.Invalid("ends_on", models.ErrInvalidRange)
	}
	l.IssuedOn, l.EndsOn = models.DateOf(l.IssuedOn), models.DateOf(l.EndsOn)
	return s.db(ctx).Omit(clause.Associations).Create(l).Error
}

// RecordUsage adds one request and its resolved people and days to today's
// usage row of the key, in a single upsert.
func (s *Store) RecordUsage(ctx context.Context, keyID uint, people, days int) error {
	today := time.Now().Format(models.DateLayout)
	return s.db(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"request_count": gorm.Expr("request_count + ?", 1),
			"people":        gorm.Expr("people + ?", people),
			"days":          gorm.Expr("days + ?", days),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         today,
		RequestCount: 1,
		People:       people,
		Days:         days,
	}).Error
}

// Usage returns the last 30 days of usage of a key, newest first
func (s *Store) Usage(ctx context.Context, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	err := s.db(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error
	return usage, err
}
