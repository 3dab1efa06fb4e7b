package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/auth"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/arnavshah/staff-calendar-api-go/pkg/database"
	"github.com/arnavshah/staff-calendar-api-go/pkg/metrics"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Version is reported by the banner route
const Version = "1.0.0"

// Handler contains dependencies for the route handlers
type Handler struct {
	Store     *database.Store
	Scheduler *scheduler.Scheduler
	Registry  *sources.Registry
	Auth      *auth.Auth
	Config    config.Config
	Metrics   *metrics.Prometheus
	Logger    *log.Logger
}

// NewRouter wires every route on a fresh gin engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Staff Calendar API",
			"version": Version,
		})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)

		admin.POST("/people", h.CreatePerson)
		admin.POST("/sites", h.CreateSite)
		admin.POST("/states", h.CreateState)
		admin.PUT("/states/:id", h.UpdateState)
		admin.POST("/states/:id/default", h.SetDefaultState)
		admin.POST("/mappings", h.CreateMapping)
		admin.POST("/shifts", h.CreateShift)
		admin.POST("/assignments", h.CreateAssignment)
		admin.PUT("/assignments/:id", h.UpdateAssignment)
		admin.DELETE("/assignments/:id", h.DisableAssignment)
		admin.POST("/overrides", h.CreateOverride)
		admin.PUT("/overrides/:id", h.UpdateOverride)
		admin.POST("/absences", h.CreateAbsence)
		admin.POST("/medical-leaves", h.CreateMedicalLeave)
	}

	// Calendar Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/calendar", h.MonthCalendar)
		api.GET("/calendar/export", h.ExportMonth)
		api.GET("/people/:id/days/:date", h.ResolveDay)
		api.POST("/assignments/check-overlap", h.CheckOverlap)
		api.POST("/assignments/validate", h.ValidateAssignment)
		api.GET("/states", h.ListStates)
		api.GET("/shifts", h.ListShifts)
		api.GET("/sites", h.ListSites)
		api.GET("/people", h.ListPeople)
		api.GET("/usage", h.GetMyUsage)

		// Legacy routes kept for existing clients
		api.GET("/calendario/", h.MonthCalendar)
		api.POST("/crear-asignacion/", h.LegacyCreateAssignment)
		api.POST("/actualizar-asignacion/", h.LegacyUpdateAssignment)
		api.POST("/eliminar-asignacion/", h.LegacyDeleteAssignment)
	}

	return r
}

// RequestID tags every request with an X-Request-ID, reusing the caller's when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	// Strip "Bearer " if present
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	return token
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key and enforces its daily request limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		name, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		// Fetch or create API key record to track usage
		db := h.Store.DB.WithContext(c.Request.Context())
		var apiKey database.APIKey
		err = db.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:        key,
			Name:       name,
			KeyPreview: auth.KeyPreview(key),
			RateLimit:  10000,
		}).Error
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}

		// An unreadable counter must not lift the limit
		var today database.APIUsage
		err = db.Where("key_id = ? AND date = ?", apiKey.ID, time.Now().Format(models.DateLayout)).Limit(1).Find(&today).Error
		if err != nil {
			h.fail(c, fmt.Errorf("reading usage of key %d: %w", apiKey.ID, err))
			c.Abort()
			return
		}
		if apiKey.RateLimit > 0 && today.RequestCount >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily request limit reached"})
			return
		}

		now := time.Now()
		if err := db.Model(&apiKey).Update("last_used", &now).Error; err != nil {
			h.logger().Warn("updating key last_used", "key", apiKey.ID, "error", err)
		}

		c.Set("apiKey", &apiKey)
		c.Set("keyName", name)
		c.Next()

		var u usage
		if v, ok := c.Get(usageKey); ok {
			u = v.(usage)
		}
		if err := h.Store.RecordUsage(c.Request.Context(), apiKey.ID, u.people, u.days); err != nil {
			h.logger().Warn("recording usage", "key", apiKey.ID, "error", err)
		}
	}
}

const usageKey = "usage"

type usage struct{ people, days int }

// RecordUsage notes the people and days a request resolved. The API key
// middleware stores them with the request once the handler returns; requests
// that resolve nothing still count.
func (h *Handler) RecordUsage(c *gin.Context, people, days int) {
	c.Set(usageKey, usage{people: people, days: days})
}

// status maps domain errors to an HTTP status and client message.
// Unexpected errors are logged and hidden behind a generic message.
func (h *Handler) status(c *gin.Context, err error) (int, string) {
	var vErr *models.ValidationError
	var cfgErr *models.ConfigurationError
	switch {
	case errors.Is(err, models.ErrAssignmentOverlap), errors.Is(err, models.ErrSecondDefault), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, err.Error()
	case errors.As(err, &vErr), errors.As(err, &cfgErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		h.logger().Error("request failed", "path", c.FullPath(), "request_id", c.GetString("requestID"), "error", err)
		return http.StatusInternalServerError, "Internal error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code, msg := h.status(c, err)
	c.JSON(code, gin.H{"error": msg})
}

func (h *Handler) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// parseOptionalDate parses a YYYY-MM-DD string; blank gives nil
func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
