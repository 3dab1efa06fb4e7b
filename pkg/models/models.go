package models

import (
	"sort"
	"time"
)

// Source records which input produced a resolved state
type Source string

const (
	SourceManual   Source = "manual"
	SourceExternal Source = "external-source"
	SourceCycle    Source = "cycle"
	SourceDefault  Source = "default"
)

// Person is a staff member as seen by the engine
type Person struct {
	ID             uint   `json:"id"`
	RUT            string `json:"rut"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MotherLastName string `json:"mother_last_name,omitempty"`
	Email          string `json:"email"`
	Active         bool   `json:"active"`
}

// FullName joins the name parts that are set
func (p Person) FullName() string {
	name := p.FirstName
	for _, part := range []string{p.LastName, p.MotherLastName} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}

// State is a configurable day category such as "Día" or "Permiso"
type State struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	ShortName       string `json:"short_name,omitempty"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	Priority        int    `json:"priority"`
	Blocking        bool   `json:"blocking"`
	Default         bool   `json:"default"`
	Active          bool   `json:"active"`
}

// Label is the short name, falling back to the first letter of the name
func (s State) Label() string {
	if s.ShortName != "" {
		return s.ShortName
	}
	for _, r := range s.Name {
		return string(r)
	}
	return "?"
}

// SortStates orders states the way listings show them: active first, then
// by descending priority, then by name.
func SortStates(states []State) {
	sort.SliceStable(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if a.Active != b.Active {
			return a.Active
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Name < b.Name
	})
}

// SourceMapping binds a State to one external record kind
type SourceMapping struct {
	ID          uint              `json:"id"`
	State       State             `json:"state"`
	Kind        string            `json:"kind"`
	StartField  string            `json:"start_field"`
	EndField    string            `json:"end_field"`
	PersonField string            `json:"person_field"`
	ExtraFilter map[string]string `json:"extra_filter,omitempty"`
}

// Block is one segment of a rotating shift
type Block struct {
	ID           uint  `json:"id"`
	ShiftID      uint  `json:"shift_id"`
	Position     int   `json:"position"`
	DurationDays int   `json:"duration_days"`
	State        State `json:"state"`
}

// Shift is a repeating sequence of blocks, e.g. "7x7" or "5x2"
type Shift struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Active      bool    `json:"active"`
	Blocks      []Block `json:"blocks"`
}

// CycleLength is the sum of all block durations in days
func (s Shift) CycleLength() int {
	total := 0
	for _, b := range s.Blocks {
		total += b.DurationDays
	}
	return total
}

// OrderedBlocks returns a copy of the blocks sorted by position
func (s Shift) OrderedBlocks() []Block {
	blocks := make([]Block, len(s.Blocks))
	copy(blocks, s.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Position < blocks[j].Position
	})
	return blocks
}

// HasBlock reports whether a block with the given id belongs to the shift
func (s Shift) HasBlock(blockID uint) bool {
	for _, b := range s.Blocks {
		if b.ID == blockID {
			return true
		}
	}
	return false
}

// Site is a work site a person is assigned to
type Site struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// CycleAssignment places a person on a shift rotation for a date range
type CycleAssignment struct {
	ID         uint       `json:"id"`
	PersonID   uint       `json:"person_id"`
	SiteID     uint       `json:"site_id"`
	Shift      Shift      `json:"shift"`
	StartBlock Block      `json:"start_block"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Active     bool       `json:"active"`
}

// Covers reports whether the assignment is active and its range includes the day
func (a CycleAssignment) Covers(day time.Time) bool {
	if !a.Active || day.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !day.After(*a.EndDate)
}

// ManualOverride pins a person to a state over an inclusive date range
type ManualOverride struct {
	ID        uint      `json:"id"`
	PersonID  uint      `json:"person_id"`
	State     State     `json:"state"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveOn reports whether the override applies on the given day
func (o ManualOverride) ActiveOn(day time.Time) bool {
	return o.Active && !day.Before(o.StartDate) && !day.After(o.EndDate)
}

// ResolvedState is one state in a resolution result, with its provenance
type ResolvedState struct {
	State  State  `json:"state"`
	Source Source `json:"source"`
	Ref    string `json:"ref,omitempty"`
}

// ResolvedDay is the engine's answer for one person on one date
type ResolvedDay struct {
	Date     time.Time       `json:"date"`
	States   []ResolvedState `json:"states"`
	Multiple bool            `json:"multiple"`
}

// Empty reports whether no state applies
func (r ResolvedDay) Empty() bool {
	return len(r.States) == 0
}

// MonthCalendar is the per-person per-day grid for one month
type MonthCalendar struct {
	Year   int                           `json:"year"`
	Month  time.Month                    `json:"month"`
	Dates  []time.Time                   `json:"dates"`
	People []Person                      `json:"people"`
	Days   map[uint]map[int]*ResolvedDay `json:"days"` // person ID -> day of month
}

// Cell returns the resolved day for a person, nil when it is empty
func (c *MonthCalendar) Cell(personID uint, day int) *ResolvedDay {
	row, ok := c.Days[personID]
	if !ok {
		return nil
	}
	return row[day]
}
