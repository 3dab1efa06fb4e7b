package scheduler

import (
	"sort"
	"strconv"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// Resolve picks the state(s) for one person on one day.
//
// Manual overrides active on day win outright: the highest-priority blocking
// one if any is blocking, otherwise the highest-priority one. Ties among
// overrides go to the earliest in input order and never produce a multi-state
// result.
//
// Without overrides, source facts and the cycle fact are pooled. A blocking
// candidate beats every non-blocking one; among blocking candidates the
// highest priority wins, earliest in pool order on ties. Otherwise every
// candidate sharing the maximum priority is returned and Multiple is set when
// there is more than one. An empty pool falls back to defaultState when it is
// active.
func Resolve(day time.Time, overrides []models.ManualOverride, sourceFacts []models.ResolvedState, cycle *models.ResolvedState, defaultState *models.State) models.ResolvedDay {
	out := models.ResolvedDay{Date: day}

	if manual := resolveManual(day, overrides); manual != nil {
		out.States = []models.ResolvedState{*manual}
		return out
	}

	pool := make([]models.ResolvedState, 0, len(sourceFacts)+1)
	pool = append(pool, sourceFacts...)
	if cycle != nil {
		pool = append(pool, *cycle)
	}

	if len(pool) == 0 {
		if defaultState != nil && defaultState.Active {
			out.States = []models.ResolvedState{{State: *defaultState, Source: models.SourceDefault}}
		}
		return out
	}

	sortByPriority(pool)

	for _, c := range pool {
		if c.State.Blocking {
			out.States = []models.ResolvedState{c}
			return out
		}
	}

	top := pool[0].State.Priority
	for _, c := range pool {
		if c.State.Priority != top {
			break
		}
		out.States = append(out.States, c)
	}
	out.Multiple = len(out.States) > 1
	return out
}

func resolveManual(day time.Time, overrides []models.ManualOverride) *models.ResolvedState {
	var active []models.ResolvedState
	for _, o := range overrides {
		if !o.ActiveOn(day) {
			continue
		}
		active = append(active, models.ResolvedState{
			State:  o.State,
			Source: models.SourceManual,
			Ref:    "override:" + uitoa(o.ID),
		})
	}
	if len(active) == 0 {
		return nil
	}

	sortByPriority(active)
	for i := range active {
		if active[i].State.Blocking {
			return &active[i]
		}
	}
	return &active[0]
}

// sortByPriority orders candidates by descending priority, keeping input order on ties
func sortByPriority(c []models.ResolvedState) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].State.Priority > c[j].State.Priority
	})
}

func uitoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
