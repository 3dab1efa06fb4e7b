package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/database"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
)

func orTrue(b *bool) bool {
	return b == nil || *b
}

// CreatePerson registers a staff member
func (h *Handler) CreatePerson(c *gin.Context) {
	var req struct {
		RUT            string `json:"rut" binding:"required"`
		FirstName      string `json:"first_name" binding:"required"`
		LastName       string `json:"last_name" binding:"required"`
		MotherLastName string `json:"mother_last_name"`
		Email          string `json:"email" binding:"required"`
		Active         *bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := models.Person{
		RUT:            req.RUT,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MotherLastName: req.MotherLastName,
		Email:          req.Email,
		Active:         orTrue(req.Active),
	}
	if err := h.Store.CreatePerson(c.Request.Context(), &p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// CreateSite registers a work site
func (h *Handler) CreateSite(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Location    string `json:"location"`
		Description string `json:"description"`
		Active      *bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := models.Site{Name: req.Name, Location: req.Location, Description: req.Description, Active: orTrue(req.Active)}
	if err := h.Store.CreateSite(c.Request.Context(), &site); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, site)
}

type stateRequest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	Priority        *int   `json:"priority"`
	Blocking        bool   `json:"blocking"`
	Default         bool   `json:"default"`
	Active          *bool  `json:"active"`
}

func (r stateRequest) apply(st *models.State) {
	st.Name = r.Name
	st.ShortName = r.ShortName
	st.Blocking = r.Blocking
	st.Default = r.Default
	if r.Color != "" {
		st.Color = r.Color
	}
	if r.BackgroundColor != "" {
		st.BackgroundColor = r.BackgroundColor
	}
	if r.Priority != nil {
		st.Priority = *r.Priority
	}
	if r.Active != nil {
		st.Active = *r.Active
	}
}

func (h *Handler) saveState(c *gin.Context, st models.State, created bool) {
	ctx := c.Request.Context()
	existing, err := h.Store.States(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := scheduler.ValidateState(st, existing); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.SaveState(ctx, &st); err != nil {
		h.fail(c, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CreateState adds a calendar state. A second default is refused; use
// SetDefaultState to move the default.
func (h *Handler) CreateState(c *gin.Context) {
	var req stateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st := models.State{Color: "#000000", BackgroundColor: "#FFFFFF", Priority: 10, Active: true}
	req.apply(&st)
	h.saveState(c, st, true)
}

// UpdateState replaces the editable fields of a state
func (h *Handler) UpdateState(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req stateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.Store.State(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	req.apply(&st)
	h.saveState(c, st, false)
}

// SetDefaultState makes the state the only default
func (h *Handler) SetDefaultState(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.Store.SetDefaultState(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	st, err := h.Store.State(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CreateMapping links a state to an external record kind. The mapping is
// bound against the registry first so misconfigured field names are
// refused here instead of being skipped at resolution time.
func (h *Handler) CreateMapping(c *gin.Context) {
	var req struct {
		StateID     uint              `json:"state_id" binding:"required"`
		Kind        string            `json:"kind" binding:"required"`
		StartField  string            `json:"start_field"`
		EndField    string            `json:"end_field"`
		PersonField string            `json:"person_field"`
		ExtraFilter map[string]string `json:"extra_filter"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	st, err := h.Store.State(ctx, req.StateID)
	if err != nil {
		h.fail(c, models.Invalid("state_id", err))
		return
	}

	m := models.SourceMapping{
		State:       st,
		Kind:        req.Kind,
		StartField:  req.StartField,
		EndField:    req.EndField,
		PersonField: req.PersonField,
		ExtraFilter: req.ExtraFilter,
	}
	if _, err := h.Registry.Bind(m); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.CreateSourceMapping(ctx, &m); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// CreateShift defines a shift and its blocks in one request
func (h *Handler) CreateShift(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Active      *bool  `json:"active"`
		Blocks      []struct {
			Position     int  `json:"position"`
			DurationDays int  `json:"duration_days"`
			StateID      uint `json:"state_id"`
		} `json:"blocks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	shift := models.Shift{Name: req.Name, Description: req.Description, Active: orTrue(req.Active)}
	for _, b := range req.Blocks {
		st, err := h.Store.State(ctx, b.StateID)
		if err != nil {
			h.fail(c, models.Invalid("blocks", err))
			return
		}
		shift.Blocks = append(shift.Blocks, models.Block{Position: b.Position, DurationDays: b.DurationDays, State: st})
	}

	if err := scheduler.ValidateShift(shift); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.CreateShift(ctx, &shift); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

type overrideRequest struct {
	PersonID  uint   `json:"person_id" binding:"required"`
	StateID   uint   `json:"state_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason"`
	Active    *bool  `json:"active"`
}

func (h *Handler) buildOverride(ctx context.Context, req overrideRequest, o *models.ManualOverride) error {
	if _, err := h.Store.Person(ctx, req.PersonID); err != nil {
		return models.Invalid("person_id", err)
	}
	st, err := h.Store.State(ctx, req.StateID)
	if err != nil {
		return models.Invalid("state_id", err)
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return models.Invalid("start_date", err)
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return models.Invalid("end_date", err)
	}

	o.PersonID = req.PersonID
	o.State = st
	o.StartDate = start
	o.EndDate = end
	o.Reason = req.Reason
	if req.Active != nil {
		o.Active = *req.Active
	}
	return scheduler.ValidateOverride(*o)
}

// CreateOverride forces a state on a person for a date range
func (h *Handler) CreateOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	o := models.ManualOverride{Active: true}
	if err := h.buildOverride(ctx, req, &o); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.SaveOverride(ctx, &o); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// UpdateOverride replaces an override, e.g. to deactivate it
func (h *Handler) UpdateOverride(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	o, err := h.Store.Override(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.buildOverride(ctx, req, &o); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.SaveOverride(ctx, &o); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// CreateAbsence records an absence of a named type, creating the type on first use
func (h *Handler) CreateAbsence(c *gin.Context) {
	var req struct {
		PersonID  uint   `json:"person_id" binding:"required"`
		Type      string `json:"type" binding:"required"`
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
		Note      string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	start, end, err := h.recordRange(ctx, req.PersonID, req.StartDate, req.EndDate, "start_date", "end_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	kind, err := h.Store.AbsenceTypeNamed(ctx, req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}

	a := database.Absence{
		AbsenceTypeID: kind.ID,
		AbsenceType:   kind,
		PersonID:      req.PersonID,
		StartDate:     start,
		EndDate:       end,
		Note:          req.Note,
	}
	if err := h.Store.CreateAbsence(ctx, &a); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// CreateMedicalLeave records a medical leave of a named type
func (h *Handler) CreateMedicalLeave(c *gin.Context) {
	var req struct {
		PersonID uint   `json:"person_id" binding:"required"`
		Type     string `json:"type" binding:"required"`
		IssuedOn string `json:"issued_on" binding:"required"`
		EndsOn   string `json:"ends_on" binding:"required"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	issued, ends, err := h.recordRange(ctx, req.PersonID, req.IssuedOn, req.EndsOn, "issued_on", "ends_on")
	if err != nil {
		h.fail(c, err)
		return
	}
	kind, err := h.Store.MedicalLeaveTypeNamed(ctx, req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}

	l := database.MedicalLeave{
		PersonID:    req.PersonID,
		LeaveTypeID: kind.ID,
		LeaveType:   kind,
		IssuedOn:    issued,
		EndsOn:      ends,
		Note:        req.Note,
	}
	if err := h.Store.CreateMedicalLeave(ctx, &l); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// recordRange checks the person exists and parses an inclusive date range
func (h *Handler) recordRange(ctx context.Context, personID uint, from, to, fromField, toField string) (start, end time.Time, err error) {
	if _, err = h.Store.Person(ctx, personID); err != nil {
		return start, end, models.Invalid("person_id", err)
	}
	if start, err = models.ParseDate(from); err != nil {
		return start, end, models.Invalid(fromField, err)
	}
	if end, err = models.ParseDate(to); err != nil {
		return start, end, models.Invalid(toField, err)
	}
	return start, end, nil
}
