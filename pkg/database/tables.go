package database

import (
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Person represents the people table
type Person struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	RUT            string `gorm:"size:12;uniqueIndex;not null" json:"rut"`
	FirstName      string `gorm:"size:100;not null" json:"first_name"`
	LastName       string `gorm:"size:50;not null" json:"last_name"`
	MotherLastName string `gorm:"size:50" json:"mother_last_name"`
	Email          string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Active         bool   `json:"active"`
}

func (p Person) toModel() models.Person {
	return models.Person{
		ID:             p.ID,
		RUT:            p.RUT,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		MotherLastName: p.MotherLastName,
		Email:          p.Email,
		Active:         p.Active,
	}
}

// State represents the states table
type State struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	ShortName       string `gorm:"size:10" json:"short_name"`
	Color           string `gorm:"size:7;not null" json:"color"`
	BackgroundColor string `gorm:"size:7;not null" json:"background_color"`
	Priority        int    `gorm:"not null" json:"priority"`
	Blocking        bool   `json:"blocking"`
	IsDefault       bool   `gorm:"index" json:"default"`
	Active          bool   `json:"active"`
}

func (s State) toModel() models.State {
	return models.State{
		ID:              s.ID,
		Name:            s.Name,
		ShortName:       s.ShortName,
		Color:           s.Color,
		BackgroundColor: s.BackgroundColor,
		Priority:        s.Priority,
		Blocking:        s.Blocking,
		Default:         s.IsDefault,
		Active:          s.Active,
	}
}

func stateRow(s models.State) State {
	return State{
		ID:              s.ID,
		Name:            s.Name,
		ShortName:       s.ShortName,
		Color:           s.Color,
		BackgroundColor: s.BackgroundColor,
		Priority:        s.Priority,
		Blocking:        s.Blocking,
		IsDefault:       s.Default,
		Active:          s.Active,
	}
}

// SourceMapping represents the source_mappings table. A state has at most one mapping.
type SourceMapping struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	StateID     uint              `gorm:"uniqueIndex;not null" json:"state_id"`
	State       State             `json:"state"`
	Kind        string            `gorm:"size:50;not null" json:"kind"`
	StartField  string            `gorm:"size:50;not null" json:"start_field"`
	EndField    string            `gorm:"size:50;not null" json:"end_field"`
	PersonField string            `gorm:"size:50;not null" json:"person_field"`
	ExtraFilter map[string]string `gorm:"serializer:json" json:"extra_filter"`
}

func (m SourceMapping) toModel() models.SourceMapping {
	return models.SourceMapping{
		ID:          m.ID,
		State:       m.State.toModel(),
		Kind:        m.Kind,
		StartField:  m.StartField,
		EndField:    m.EndField,
		PersonField: m.PersonField,
		ExtraFilter: m.ExtraFilter,
	}
}

// Shift represents the shifts table
type Shift struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Description string       `json:"description"`
	Active      bool         `json:"active"`
	Blocks      []ShiftBlock `gorm:"constraint:OnDelete:CASCADE" json:"blocks"`
}

func (s Shift) toModel() models.Shift {
	out := models.Shift{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Active:      s.Active,
		Blocks:      make([]models.Block, len(s.Blocks)),
	}
	for i, b := range s.Blocks {
		out.Blocks[i] = b.toModel()
	}
	return out
}

// ShiftBlock represents the shift_blocks table
type ShiftBlock struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	ShiftID      uint  `gorm:"uniqueIndex:idx_shift_position;not null" json:"shift_id"`
	Position     int   `gorm:"uniqueIndex:idx_shift_position;not null" json:"position"`
	DurationDays int   `gorm:"not null" json:"duration_days"`
	StateID      uint  `gorm:"not null" json:"state_id"`
	State        State `json:"state"`
}

func (b ShiftBlock) toModel() models.Block {
	return models.Block{
		ID:           b.ID,
		ShiftID:      b.ShiftID,
		Position:     b.Position,
		DurationDays: b.DurationDays,
		State:        b.State.toModel(),
	}
}

// Site represents the sites table
type Site struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Location    string `gorm:"size:200" json:"location"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

func (s Site) toModel() models.Site {
	return models.Site{ID: s.ID, Name: s.Name, Location: s.Location, Description: s.Description, Active: s.Active}
}

// CycleAssignment represents the cycle_assignments table
type CycleAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PersonID     uint       `gorm:"index;not null" json:"person_id"`
	SiteID       uint       `gorm:"index;not null" json:"site_id"`
	ShiftID      uint       `gorm:"index;not null" json:"shift_id"`
	Shift        Shift      `json:"shift"`
	StartBlockID uint       `gorm:"not null" json:"start_block_id"`
	StartBlock   ShiftBlock `gorm:"foreignKey:StartBlockID" json:"start_block"`
	StartDate    time.Time  `gorm:"type:date;index;not null" json:"start_date"`
	EndDate      *time.Time `gorm:"type:date;index" json:"end_date"`
	Notes        string     `json:"notes"`
	Active       bool       `gorm:"index" json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a CycleAssignment) toModel() models.CycleAssignment {
	return models.CycleAssignment{
		ID:         a.ID,
		PersonID:   a.PersonID,
		SiteID:     a.SiteID,
		Shift:      a.Shift.toModel(),
		StartBlock: a.StartBlock.toModel(),
		StartDate:  models.StoredDate(a.StartDate),
		EndDate:    datePtr(a.EndDate),
		Notes:      a.Notes,
		Active:     a.Active,
	}
}

// ManualOverride represents the manual_overrides table
type ManualOverride struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PersonID  uint      `gorm:"index;not null" json:"person_id"`
	StateID   uint      `gorm:"index;not null" json:"state_id"`
	State     State     `json:"state"`
	StartDate time.Time `gorm:"type:date;index;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;index;not null" json:"end_date"`
	Reason    string    `gorm:"size:200" json:"reason"`
	Active    bool      `gorm:"index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (o ManualOverride) toModel() models.ManualOverride {
	return models.ManualOverride{
		ID:        o.ID,
		PersonID:  o.PersonID,
		State:     o.State.toModel(),
		StartDate: models.StoredDate(o.StartDate),
		EndDate:   models.StoredDate(o.EndDate),
		Reason:    o.Reason,
		Active:    o.Active,
		CreatedAt: o.CreatedAt,
	}
}

// AbsenceType represents the absence_types table
type AbsenceType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// Absence represents the absences table, the "absence" record kind
type Absence struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AbsenceTypeID uint        `gorm:"not null" json:"absence_type_id"`
	AbsenceType   AbsenceType `json:"absence_type"`
	PersonID      uint        `gorm:"index;not null" json:"person_id"`
	StartDate     time.Time   `gorm:"type:date;index;not null" json:"start_date"`
	EndDate       time.Time   `gorm:"type:date;index;not null" json:"end_date"`
	Note          string      `gorm:"size:250" json:"note"`
}

// MedicalLeaveType represents the medical_leave_types table
type MedicalLeaveType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// MedicalLeave represents the medical_leaves table, the "medical_leave" record kind
type MedicalLeave struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	PersonID    uint             `gorm:"index;not null" json:"person_id"`
	LeaveTypeID uint             `gorm:"not null" json:"leave_type_id"`
	LeaveType   MedicalLeaveType `gorm:"foreignKey:LeaveTypeID" json:"leave_type"`
	IssuedOn    time.Time        `gorm:"type:date;index;not null" json:"issued_on"`
	EndsOn      time.Time        `gorm:"type:date;index;not null" json:"ends_on"`
	Note        string           `gorm:"size:250" json:"note"`
}

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	People       int    `gorm:"default:0" json:"people"`
	Days         int    `gorm:"default:0" json:"days"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.StoredDate(*t)
	return &d
}
