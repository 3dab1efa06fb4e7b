package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/metrics"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
	"github.com/charmbracelet/log"
)

// Loader reads the configuration and per-person data the scheduler resolves over
type Loader interface {
	sources.RecordStore

	States(ctx context.Context) ([]models.State, error)
	SourceMappings(ctx context.Context) ([]models.SourceMapping, error)

	// ManualOverrides returns active overrides of the people intersecting [from, to],
	// ordered by start date then id.
	ManualOverrides(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.ManualOverride, error)

	// CycleAssignments returns active assignments of the people intersecting [from, to]
	// with their shift, blocks and states loaded, ordered by start date then id.
	CycleAssignments(ctx context.Context, personIDs []uint, from, to time.Time) ([]models.CycleAssignment, error)

	// ActiveAssignmentsFor returns every active assignment of one person.
	ActiveAssignmentsFor(ctx context.Context, personID uint) ([]models.CycleAssignment, error)
}

// Scheduler resolves daily states for staff
type Scheduler struct {
	loader   Loader
	registry *sources.Registry
	logger   *log.Logger
	metrics  metrics.Recorder
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger used for skipped mappings and bad per-person data
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(loader Loader, registry *sources.Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		loader:   loader,
		registry: registry,
		logger:   log.New(io.Discard),
		metrics:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is everything needed to resolve a set of people over a date range,
// held in memory so resolution issues no further queries.
type Snapshot struct {
	From        time.Time
	To          time.Time
	Default     *models.State
	Bindings    []*sources.Binding
	Overrides   map[uint][]models.ManualOverride
	Assignments map[uint][]models.CycleAssignment
	Records     sources.Prefetched
}

// Prefill loads, once, every override, assignment and external record the
// people need for [from, to]. Misconfigured mappings and malformed assignments
// are logged and left out; only store failures abort.
func (s *Scheduler) Prefill(ctx context.Context, personIDs []uint, from, to time.Time) (*Snapshot, error) {
	from, to = models.DateOf(from), models.DateOf(to)
	snap := &Snapshot{
		From:        from,
		To:          to,
		Overrides:   make(map[uint][]models.ManualOverride, len(personIDs)),
		Assignments: make(map[uint][]models.CycleAssignment, len(personIDs)),
	}

	states, err := s.loader.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading states: %w", err)
	}
	snap.Default = DefaultState(states)

	mappings, err := s.loader.SourceMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading source mappings: %w", err)
	}
	bindings, errs := s.registry.BindAll(mappings)
	s.reportSkipped(errs)
	snap.Bindings = bindings

	overrides, err := s.loader.ManualOverrides(ctx, personIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading manual overrides: %w", err)
	}
	for _, o := range overrides {
		snap.Overrides[o.PersonID] = append(snap.Overrides[o.PersonID], o)
	}

	assignments, err := s.loader.CycleAssignments(ctx, personIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading cycle assignments: %w", err)
	}
	for _, a := range assignments {
		if !a.Shift.HasBlock(a.StartBlock.ID) {
			s.logger.Warn("skipping assignment with foreign start block",
				"assignment", a.ID, "person", a.PersonID, "shift", a.Shift.ID, "block", a.StartBlock.ID)
			continue
		}
		snap.Assignments[a.PersonID] = append(snap.Assignments[a.PersonID], a)
	}

	records, errs := sources.Prefetch(ctx, s.loader, bindings, personIDs, from, to)
	s.reportSkipped(errs)
	snap.Records = records

	return snap, nil
}

func (s *Scheduler) reportSkipped(errs []error) {
	for _, err := range errs {
		kind := ""
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			kind = cfgErr.Kind
		}
		s.logger.Warn("skipping source mapping", "kind", kind, "error", err)
		s.metrics.MappingSkipped(kind)
	}
}

// Resolve answers one (person, day) pair from the snapshot alone
func (snap *Snapshot) Resolve(personID uint, day time.Time) models.ResolvedDay {
	day = models.DateOf(day)
	facts := sources.FindStatesForDate(snap.Bindings, snap.Records.For(personID), personID, day)

	// The first covering assignment owns the day even when its rotation
	// yields no state.
	var cycle *models.ResolvedState
	for _, a := range snap.Assignments[personID] {
		if a.Covers(day) {
			cycle = cycleFact(a, day)
			break
		}
	}

	return Resolve(day, snap.Overrides[personID], facts, cycle, snap.Default)
}

// ResolveDay resolves a single person and date. It is the one-person,
// one-day case of the monthly pre-fetch, so both paths share one code path.
func (s *Scheduler) ResolveDay(ctx context.Context, personID uint, day time.Time) (models.ResolvedDay, error) {
	snap, err := s.Prefill(ctx, []uint{personID}, day, day)
	if err != nil {
		return models.ResolvedDay{}, err
	}
	res := snap.Resolve(personID, day)
	s.recordCell(res)
	return res, nil
}

// ResolveMonth builds the per-person per-day grid for a month
func (s *Scheduler) ResolveMonth(ctx context.Context, people []models.Person, year int, month time.Month) (*models.MonthCalendar, error) {
	if month < time.January || month > time.December {
		return nil, models.Invalid("month", fmt.Errorf("month %d out of range", month))
	}
	started := time.Now()

	dates := models.MonthDates(year, month)
	ids := make([]uint, len(people))
	for i, p := range people {
		ids[i] = p.ID
	}

	snap, err := s.Prefill(ctx, ids, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, err
	}

	cal := &models.MonthCalendar{
		Year:   year,
		Month:  month,
		Dates:  dates,
		People: people,
		Days:   make(map[uint]map[int]*models.ResolvedDay, len(people)),
	}
	for _, p := range people {
		row := make(map[int]*models.ResolvedDay, len(dates))
		for _, d := range dates {
			res := snap.Resolve(p.ID, d)
			s.recordCell(res)
			if res.Empty() {
				row[d.Day()] = nil
				continue
			}
			row[d.Day()] = &res
		}
		cal.Days[p.ID] = row
	}

	elapsed := time.Since(started)
	s.metrics.MonthResolved(len(people), elapsed)
	s.logger.Debug("resolved month", "year", year, "month", int(month), "people", len(people), "elapsed", elapsed)
	return cal, nil
}

func (s *Scheduler) recordCell(res models.ResolvedDay) {
	if res.Empty() {
		s.metrics.CellResolved("", false)
		return
	}
	s.metrics.CellResolved(res.States[0].Source, res.Multiple)
}

// DefaultState returns the active default state, nil when none is configured.
// If storage somehow holds several, the highest-priority one wins.
func DefaultState(states []models.State) *models.State {
	var def *models.State
	for i := range states {
		st := states[i]
		if !st.Default || !st.Active {
			continue
		}
		if def == nil || st.Priority > def.Priority {
			def = &st
		}
	}
	return def
}
