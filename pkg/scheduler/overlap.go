package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Overlap checks if two inclusive date ranges overlap. A nil end is unbounded.
func Overlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	startsBeforeBEnds := bEnd == nil || !aStart.After(*bEnd)
	bStartsBeforeAEnds := aEnd == nil || !bStart.After(*aEnd)
	return startsBeforeBEnds && bStartsBeforeAEnds
}

// WouldOverlap checks the range against a person's existing assignments,
// ignoring inactive ones and the one with id excludeID.
func WouldOverlap(existing []models.CycleAssignment, personID uint, start time.Time, end *time.Time, excludeID *uint) bool {
	for _, a := range existing {
		if !a.Active || a.PersonID != personID {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if Overlap(start, end, a.StartDate, a.EndDate) {
			return true
		}
	}
	return false
}

// CheckOverlap reports whether a new or updated assignment for the person
// would collide with another active one. Updates pass their own id as
// excludeID; creates pass nil. The check reads the store once and takes no
// lock, so concurrent writers must serialise themselves.
func (s *Scheduler) CheckOverlap(ctx context.Context, personID uint, start time.Time, end *time.Time, excludeID *uint) (bool, error) {
	existing, err := s.loader.ActiveAssignmentsFor(ctx, personID)
	if err != nil {
		return false, fmt.Errorf("loading assignments for person %d: %w", personID, err)
	}

	start = models.DateOf(start)
	if end != nil {
		e := models.DateOf(*end)
		end = &e
	}

	overlaps := WouldOverlap(existing, personID, start, end, excludeID)
	if overlaps {
		s.logger.Debug("assignment overlap", "person", personID, "start", start.Format(models.DateLayout))
	}
	return overlaps, nil
}
