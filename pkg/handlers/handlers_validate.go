package handlers

import (
	"errors"
	"net/http"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/gin-gonic/gin"
)

// CheckOverlap reports whether a prospective range collides with the
// person's active assignments
func (h *Handler) CheckOverlap(c *gin.Context) {
	var req struct {
		PersonID  uint   `json:"person_id" binding:"required"`
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date"`
		ExcludeID *uint  `json:"exclude_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		h.fail(c, models.Invalid("start_date", err))
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		h.fail(c, models.Invalid("end_date", err))
		return
	}
	if end != nil && end.Before(start) {
		h.fail(c, models.Invalid("end_date", models.ErrInvalidRange))
		return
	}

	overlaps, err := h.Scheduler.CheckOverlap(c.Request.Context(), req.PersonID, start, end, req.ExcludeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overlaps": overlaps})
}

// ValidateAssignment dry-runs an assignment write without storing it.
// Rejections are reported in the body with status 200.
func (h *Handler) ValidateAssignment(c *gin.Context) {
	var req struct {
		assignmentRequest
		ID uint `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	a := models.CycleAssignment{ID: req.ID, Active: true}
	err := h.buildAssignment(ctx, req.assignmentRequest, &a)
	if err == nil {
		err = h.Scheduler.ValidateAssignment(ctx, a)
	}

	var vErr *models.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"stats": gin.H{
				"cycle_length": a.Shift.CycleLength(),
				"blocks":       len(a.Shift.Blocks),
			},
		})
	case errors.As(err, &vErr):
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"field": vErr.Field,
			"error": err.Error(),
		})
	default:
		h.fail(c, err)
	}
}
