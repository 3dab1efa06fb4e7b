package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/export"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type stateView struct {
	ID              uint          `json:"id"`
	Name            string        `json:"name"`
	Label           string        `json:"label"`
	Color           string        `json:"color"`
	BackgroundColor string        `json:"background_color"`
	Source          models.Source `json:"source"`
	Ref             string        `json:"ref,omitempty"`
}

type dayView struct {
	Date     string      `json:"date"`
	Text     string      `json:"text"`
	States   []stateView `json:"states"`
	Multiple bool        `json:"multiple"`
}

type rowView struct {
	Person models.Person `json:"person"`
	Days   []dayView     `json:"days"`
}

func newDayView(day time.Time, res *models.ResolvedDay) dayView {
	v := dayView{Date: day.Format(models.DateLayout), Text: export.CellText(res), States: []stateView{}}
	if res == nil {
		return v
	}
	v.Multiple = res.Multiple
	for _, rs := range res.States {
		v.States = append(v.States, stateView{
			ID:              rs.State.ID,
			Name:            rs.State.Name,
			Label:           rs.State.Label(),
			Color:           rs.State.Color,
			BackgroundColor: rs.State.BackgroundColor,
			Source:          rs.Source,
			Ref:             rs.Ref,
		})
	}
	return v
}

// monthQuery reads year, month and person_id, defaulting to the current month
// and every active person.
func (h *Handler) monthQuery(c *gin.Context) (*models.MonthCalendar, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	var err error
	if v := c.Query("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return nil, false
		}
	}
	if v := c.Query("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
			return nil, false
		}
	}

	ctx := c.Request.Context()
	var people []models.Person
	if v := c.Query("person_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person_id"})
			return nil, false
		}
		p, err := h.Store.Person(ctx, uint(id))
		if err != nil {
			h.fail(c, err)
			return nil, false
		}
		people = []models.Person{p}
	} else if people, err = h.Store.People(ctx, true); err != nil {
		h.fail(c, err)
		return nil, false
	}

	cal, err := h.Scheduler.ResolveMonth(ctx, people, year, time.Month(month))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	h.RecordUsage(c, len(people), len(people)*len(cal.Dates))
	return cal, true
}

// MonthCalendar returns the resolved grid of a month, one row per person
func (h *Handler) MonthCalendar(c *gin.Context) {
	cal, ok := h.monthQuery(c)
	if !ok {
		return
	}

	dates := make([]string, len(cal.Dates))
	for i, d := range cal.Dates {
		dates[i] = d.Format(models.DateLayout)
	}

	rows := make([]rowView, 0, len(cal.People))
	for _, p := range cal.People {
		row := rowView{Person: p, Days: make([]dayView, len(cal.Dates))}
		for i, d := range cal.Dates {
			row.Days[i] = newDayView(d, cal.Cell(p.ID, d.Day()))
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"year":  cal.Year,
		"month": int(cal.Month),
		"dates": dates,
		"rows":  rows,
	})
}

// ExportMonth streams the resolved month as an xlsx workbook
func (h *Handler) ExportMonth(c *gin.Context) {
	cal, ok := h.monthQuery(c)
	if !ok {
		return
	}

	name := fmt.Sprintf("calendario-%s.xlsx", export.SheetName(cal.Year, int(cal.Month)))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := export.WriteMonth(c.Writer, cal); err != nil {
		h.logger().Error("writing xlsx export", "year", cal.Year, "month", int(cal.Month), "error", err)
	}
}

// ResolveDay returns the states of one person on one date
func (h *Handler) ResolveDay(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	day, err := models.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	p, err := h.Store.Person(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Scheduler.ResolveDay(ctx, p.ID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.RecordUsage(c, 1, 1)

	var cell *models.ResolvedDay
	if !res.Empty() {
		cell = &res
	}
	c.JSON(http.StatusOK, gin.H{
		"person": p,
		"day":    newDayView(day, cell),
	})
}

// ListStates returns every state, active first
func (h *Handler) ListStates(c *gin.Context) {
	states, err := h.Store.States(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"states": states})
}

// ListShifts returns every shift with its blocks
func (h *Handler) ListShifts(c *gin.Context) {
	shifts, err := h.Store.Shifts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}

// ListSites returns every work site
func (h *Handler) ListSites(c *gin.Context) {
	sites, err := h.Store.Sites(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

// ListPeople returns active people; ?all=true includes inactive ones
func (h *Handler) ListPeople(c *gin.Context) {
	people, err := h.Store.People(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": people})
}
