package scheduler

import (
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// CycleState returns the state a shift rotation yields on day, for a
// rotation that began on startDate at startBlock.
//
// The rotation's day zero is the first day of startBlock. Someone who really
// joined on the third day of a seven-day block is still counted from that
// block's first day; the calendar models it that way on purpose.
//
// It returns false when day precedes startDate or the cycle has no length.
func CycleState(shift models.Shift, startBlock models.Block, startDate, day time.Time) (models.State, bool) {
	elapsed := models.DaysBetween(startDate, day)
	if elapsed < 0 {
		return models.State{}, false
	}

	cycleLen := shift.CycleLength()
	if cycleLen <= 0 {
		return models.State{}, false
	}

	blocks := shift.OrderedBlocks()

	offset := 0
	for _, b := range blocks {
		if b.Position >= startBlock.Position {
			break
		}
		offset += b.DurationDays
	}

	position := (elapsed%cycleLen + offset) % cycleLen

	accumulated := 0
	for _, b := range blocks {
		if position < accumulated+b.DurationDays {
			return b.State, true
		}
		accumulated += b.DurationDays
	}
	return models.State{}, false
}

// cycleFact resolves the assignment's rotation on day, nil when it does not apply
func cycleFact(a models.CycleAssignment, day time.Time) *models.ResolvedState {
	if !a.Covers(day) {
		return nil
	}
	state, ok := CycleState(a.Shift, a.StartBlock, a.StartDate, day)
	if !ok {
		return nil
	}
	return &models.ResolvedState{
		State:  state,
		Source: models.SourceCycle,
		Ref:    "assignment:" + uitoa(a.ID),
	}
}
