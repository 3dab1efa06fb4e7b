// Package seed loads calendar configuration and sample data from YAML.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arnavshah/staff-calendar-api-go/pkg/database"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the root of a seed document
type File struct {
	States            []State      `yaml:"states"`
	Shifts            []Shift      `yaml:"shifts"`
	Sites             []Site       `yaml:"sites"`
	AbsenceTypes      []string     `yaml:"absence_types"`
	MedicalLeaveTypes []string     `yaml:"medical_leave_types"`
	Mappings          []Mapping    `yaml:"mappings"`
	People            []Person     `yaml:"people"`
	Assignments       []Assignment `yaml:"assignments"`
}

type State struct {
	Name            string `yaml:"name"`
	ShortName       string `yaml:"short_name"`
	Color           string `yaml:"color"`
	BackgroundColor string `yaml:"background_color"`
	Priority        int    `yaml:"priority"`
	Blocking        bool   `yaml:"blocking"`
	Default         bool   `yaml:"default"`
}

type Shift struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Blocks      []Block `yaml:"blocks"`
}

type Block struct {
	Position int    `yaml:"position"`
	Days     int    `yaml:"days"`
	State    string `yaml:"state"`
}

type Site struct {
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

type Mapping struct {
	State       string            `yaml:"state"`
	Kind        string            `yaml:"kind"`
	StartField  string            `yaml:"start_field"`
	EndField    string            `yaml:"end_field"`
	PersonField string            `yaml:"person_field"`
	ExtraFilter map[string]string `yaml:"extra_filter"`
}

type Person struct {
	RUT            string `yaml:"rut"`
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	MotherLastName string `yaml:"mother_last_name"`
	Email          string `yaml:"email"`
}

// Assignment references its person by RUT, its site and shift by name and
// its starting block by position.
type Assignment struct {
	Person     string `yaml:"person"`
	Site       string `yaml:"site"`
	Shift      string `yaml:"shift"`
	StartBlock int    `yaml:"start_block"`
	StartDate  string `yaml:"start_date"`
	EndDate    string `yaml:"end_date"`
	Notes      string `yaml:"notes"`
}

// Parse decodes a seed document
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Load reads a seed file, or the embedded default when path is empty
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Default returns the embedded sample configuration
func Default() (*File, error) {
	var f File
	if err := yaml.Unmarshal(defaultSeed, &f); err != nil {
		return nil, fmt.Errorf("failed to parse default seed: %w", err)
	}
	return &f, nil
}

// Report counts what a run created; existing objects are left untouched
type Report struct {
	States      int
	Shifts      int
	Blocks      int
	Sites       int
	Types       int
	Mappings    int
	People      int
	Assignments int
	Skipped     []string
}

// Seeder applies seed files to a store. Applying the same file twice creates nothing new.
type Seeder struct {
	Store     *database.Store
	Scheduler *scheduler.Scheduler
	Logger    *log.Logger
}

// Apply get-or-creates every object of f by its natural key
func (s *Seeder) Apply(ctx context.Context, f *File) (*Report, error) {
	rep := &Report{}
	db := s.Store.DB.WithContext(ctx)

	states := make(map[string]database.State)
	for _, st := range f.States {
		row := database.State{}
		res := db.Where(database.State{Name: st.Name}).Attrs(database.State{
			ShortName:       st.ShortName,
			Color:           st.Color,
			BackgroundColor: st.BackgroundColor,
			Priority:        st.Priority,
			Blocking:        st.Blocking,
			Active:          true,
		}).FirstOrCreate(&row)
		if res.Error != nil {
			return rep, fmt.Errorf("state %q: %w", st.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			rep.States++
			if st.Default {
				if err := s.Store.SetDefaultState(ctx, row.ID); err != nil {
					return rep, err
				}
			}
		}
		states[st.Name] = row
	}

	stateID := func(name string) (uint, error) {
		if st, ok := states[name]; ok {
			return st.ID, nil
		}
		var row database.State
		if err := db.Where("name = ?", name).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fmt.Errorf("state %q: %w", name, models.ErrNotFound)
			}
			return 0, err
		}
		states[name] = row
		return row.ID, nil
	}

	for _, sh := range f.Shifts {
		row := database.Shift{}
		res := db.Where(database.Shift{Name: sh.Name}).
			Attrs(database.Shift{Description: sh.Description, Active: true}).
			FirstOrCreate(&row)
		if res.Error != nil {
			return rep, fmt.Errorf("shift %q: %w", sh.Name, res.Error)
		}
		rep.Shifts += int(res.RowsAffected)

		for _, b := range sh.Blocks {
			id, err := stateID(b.State)
			if err != nil {
				return rep, fmt.Errorf("shift %q block %d: %w", sh.Name, b.Position, err)
			}
			block := database.ShiftBlock{}
			res := db.Where(database.ShiftBlock{ShiftID: row.ID, Position: b.Position}).
				Attrs(database.ShiftBlock{DurationDays: b.Days, StateID: id}).
				FirstOrCreate(&block)
			if res.Error != nil {
				return rep, fmt.Errorf("shift %q block %d: %w", sh.Name, b.Position, res.Error)
			}
			rep.Blocks += int(res.RowsAffected)
		}

		shift, err := s.Store.Shift(ctx, row.ID)
		if err != nil {
			return rep, err
		}
		if err := scheduler.ValidateShift(shift); err != nil {
			return rep, fmt.Errorf("shift %q: %w", sh.Name, err)
		}
	}

	for _, site := range f.Sites {
		row := database.Site{}
		res := db.Where(database.Site{Name: site.Name}).
			Attrs(database.Site{Location: site.Location, Description: site.Description, Active: true}).
			FirstOrCreate(&row)
		if res.Error != nil {
			return rep, fmt.Errorf("site %q: %w", site.Name, res.Error)
		}
		rep.Sites += int(res.RowsAffected)
	}

	for _, name := range f.AbsenceTypes {
		res := db.Where(database.AbsenceType{Name: name}).FirstOrCreate(&database.AbsenceType{})
		if res.Error != nil {
			return rep, fmt.Errorf("absence type %q: %w", name, res.Error)
		}
		rep.Types += int(res.RowsAffected)
	}
	for _, name := range f.MedicalLeaveTypes {
		res := db.Where(database.MedicalLeaveType{Name: name}).FirstOrCreate(&database.MedicalLeaveType{})
		if res.Error != nil {
			return rep, fmt.Errorf("medical leave type %q: %w", name, res.Error)
		}
		rep.Types += int(res.RowsAffected)
	}

	for _, m := range f.Mappings {
		id, err := stateID(m.State)
		if err != nil {
			return rep, fmt.Errorf("mapping for %q: %w", m.State, err)
		}
		row := database.SourceMapping{}
		res := db.Where(database.SourceMapping{StateID: id}).Attrs(database.SourceMapping{
			Kind:        m.Kind,
			StartField:  m.StartField,
			EndField:    m.EndField,
			PersonField: m.PersonField,
			ExtraFilter: m.ExtraFilter,
		}).FirstOrCreate(&row)
		if res.Error != nil {
			return rep, fmt.Errorf("mapping for %q: %w", m.State, res.Error)
		}
		rep.Mappings += int(res.RowsAffected)
	}

	for _, p := range f.People {
		row := database.Person{}
		res := db.Where(database.Person{RUT: p.RUT}).Attrs(database.Person{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			MotherLastName: p.MotherLastName,
			Email:          p.Email,
			Active:         true,
		}).FirstOrCreate(&row)
		if res.Error != nil {
			return rep, fmt.Errorf("person %q: %w", p.RUT, res.Error)
		}
		rep.People += int(res.RowsAffected)
	}

	for _, a := range f.Assignments {
		created, err := s.assignment(ctx, db, a)
		if err != nil {
			var vErr *models.ValidationError
			if errors.As(err, &vErr) {
				s.logger().Warn("skipping seed assignment", "person", a.Person, "shift", a.Shift, "error", err)
				rep.Skipped = append(rep.Skipped, fmt.Sprintf("%s/%s: %v", a.Person, a.Shift, err))
				continue
			}
			return rep, err
		}
		if created {
			rep.Assignments++
		}
	}

	return rep, nil
}

func (s *Seeder) assignment(ctx context.Context, db *gorm.DB, a Assignment) (bool, error) {
	var person database.Person
	if err := db.Where("rut = ?", a.Person).First(&person).Error; err != nil {
		return false, fmt.Errorf("assignment person %q: %w", a.Person, err)
	}
	var site database.Site
	if err := db.Where("name = ?", a.Site).First(&site).Error; err != nil {
		return false, fmt.Errorf("assignment site %q: %w", a.Site, err)
	}
	var shiftRow database.Shift
	if err := db.Where("name = ?", a.Shift).First(&shiftRow).Error; err != nil {
		return false, fmt.Errorf("assignment shift %q: %w", a.Shift, err)
	}

	var existing int64
	err := db.Model(&database.CycleAssignment{}).
		Where("person_id = ? AND site_id = ? AND shift_id = ?", person.ID, site.ID, shiftRow.ID).
		Count(&existing).Error
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	shift, err := s.Store.Shift(ctx, shiftRow.ID)
	if err != nil {
		return false, err
	}
	position := a.StartBlock
	if position == 0 {
		position = 1
	}
	var start models.Block
	for _, b := range shift.Blocks {
		if b.Position == position {
			start = b
		}
	}

	startDate, err := models.ParseDate(a.StartDate)
	if err != nil {
		return false, models.Invalid("start_date", err)
	}
	ca := models.CycleAssignment{
		PersonID:   person.ID,
		SiteID:     site.ID,
		Shift:      shift,
		StartBlock: start,
		StartDate:  startDate,
		Notes:      a.Notes,
		Active:     true,
	}
	if a.EndDate != "" {
		end, err := models.ParseDate(a.EndDate)
		if err != nil {
			return false, models.Invalid("end_date", err)
		}
		ca.EndDate = &end
	}

	if err := s.Scheduler.ValidateAssignment(ctx, ca); err != nil {
		return false, err
	}
	if err := s.Store.SaveAssignment(ctx, &ca); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Seeder) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}
