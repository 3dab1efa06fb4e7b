package handlers

import (
	"context"
	"net/http"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/gin-gonic/gin"
)

type assignmentRequest struct {
	PersonID     uint   `json:"person_id"`
	SiteID       uint   `json:"site_id"`
	ShiftID      uint   `json:"shift_id"`
	StartBlockID uint   `json:"start_block_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Notes        string `json:"notes"`
	Active       *bool  `json:"active"`
}

// buildAssignment resolves the references of req onto a. Missing references
// are reported as validation errors of the field that named them.
func (h *Handler) buildAssignment(ctx context.Context, req assignmentRequest, a *models.CycleAssignment) error {
	if _, err := h.Store.Person(ctx, req.PersonID); err != nil {
		return models.Invalid("person_id", err)
	}
	if _, err := h.Store.Site(ctx, req.SiteID); err != nil {
		return models.Invalid("site_id", err)
	}
	shift, err := h.Store.Shift(ctx, req.ShiftID)
	if err != nil {
		return models.Invalid("shift_id", err)
	}
	block, err := h.Store.Block(ctx, req.StartBlockID)
	if err != nil {
		return models.Invalid("start_block_id", err)
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return models.Invalid("start_date", err)
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return models.Invalid("end_date", err)
	}

	a.PersonID = req.PersonID
	a.SiteID = req.SiteID
	a.Shift = shift
	a.StartBlock = block
	a.StartDate = start
	a.EndDate = end
	a.Notes = req.Notes
	if req.Active != nil {
		a.Active = *req.Active
	}
	return nil
}

// saveAssignment validates and stores a; it is shared by the admin and the
// legacy routes.
func (h *Handler) saveAssignment(ctx context.Context, req assignmentRequest, a *models.CycleAssignment) error {
	if err := h.buildAssignment(ctx, req, a); err != nil {
		return err
	}
	if err := h.Scheduler.ValidateAssignment(ctx, *a); err != nil {
		return err
	}
	return h.Store.SaveAssignment(ctx, a)
}

func (h *Handler) updateAssignment(ctx context.Context, id uint, req assignmentRequest) (models.CycleAssignment, error) {
	a, err := h.Store.Assignment(ctx, id)
	if err != nil {
		return a, err
	}
	if err := h.saveAssignment(ctx, req, &a); err != nil {
		return a, err
	}
	return a, nil
}

// CreateAssignment assigns a person to a shift at a site
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := models.CycleAssignment{Active: true}
	if err := h.saveAssignment(c.Request.Context(), req, &a); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAssignment replaces an assignment. The overlap check ignores the
// assignment being edited.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.updateAssignment(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DisableAssignment deactivates an assignment; history is kept
func (h *Handler) DisableAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DisableAssignment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment disabled"})
}

// legacyAssignment is the payload of the legacy assignment forms
type legacyAssignment struct {
	ID             uint   `json:"id"`
	PersonalID     uint   `json:"personal_id"`
	FaenaID        uint   `json:"faena_id"`
	TurnoID        uint   `json:"turno_id"`
	BloqueInicioID uint   `json:"bloque_inicio_id"`
	FechaInicio    string `json:"fecha_inicio"`
	FechaFin       string `json:"fecha_fin"`
	Observaciones  string `json:"observaciones"`
}

func (l legacyAssignment) request() assignmentRequest {
	return assignmentRequest{
		PersonID:     l.PersonalID,
		SiteID:       l.FaenaID,
		ShiftID:      l.TurnoID,
		StartBlockID: l.BloqueInicioID,
		StartDate:    l.FechaInicio,
		EndDate:      l.FechaFin,
		Notes:        l.Observaciones,
	}
}

func (h *Handler) legacyFail(c *gin.Context, err error) {
	code, msg := h.status(c, err)
	c.JSON(code, gin.H{"success": false, "error": msg})
}

// LegacyCreateAssignment serves POST /api/crear-asignacion/
func (h *Handler) LegacyCreateAssignment(c *gin.Context) {
	var req legacyAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	a := models.CycleAssignment{Active: true}
	if err := h.saveAssignment(c.Request.Context(), req.request(), &a); err != nil {
		h.legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": a.ID})
}

// LegacyUpdateAssignment serves POST /api/actualizar-asignacion/
func (h *Handler) LegacyUpdateAssignment(c *gin.Context) {
	var req legacyAssignment
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id is required"})
		return
	}

	a, err := h.updateAssignment(c.Request.Context(), req.ID, req.request())
	if err != nil {
		h.legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": a.ID})
}

// LegacyDeleteAssignment serves POST /api/eliminar-asignacion/. Like the admin
// route it only deactivates the assignment.
func (h *Handler) LegacyDeleteAssignment(c *gin.Context) {
	var req struct {
		ID uint `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id is required"})
		return
	}

	if err := h.Store.DisableAssignment(c.Request.Context(), req.ID); err != nil {
		h.legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
