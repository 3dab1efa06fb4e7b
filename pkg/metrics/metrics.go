// Package metrics instruments the calendar engine.
package metrics

import (
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Recorder receives engine events. Implementations must be safe for concurrent use.
type Recorder interface {
	// CellResolved counts one resolved (person, day) cell by the provenance of
	// its first state; source is empty for cells with no state.
	CellResolved(source models.Source, multiple bool)

	// MappingSkipped counts a source mapping dropped as misconfigured.
	MappingSkipped(kind string)

	// OverlapRejected counts an assignment write refused for overlapping.
	OverlapRejected()

	// MonthResolved observes how long a month grid took to build.
	MonthResolved(people int, elapsed time.Duration)
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) CellResolved(models.Source, bool) {}

func (Nop) MappingSkipped(string) {}

func (Nop) OverlapRejected() {}

func (Nop) MonthResolved(int, time.Duration) {}
