package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/arnavshah/staff-calendar-api-go/pkg/auth"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/arnavshah/staff-calendar-api-go/pkg/database"
	"github.com/arnavshah/staff-calendar-api-go/pkg/logger"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/arnavshah/staff-calendar-api-go/pkg/seed"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testServer struct {
	h      *Handler
	router *gin.Engine
	admin  string
	key    string
	shift  models.Shift
	site   models.Site
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		DataPath:        filepath.Join(t.TempDir(), "api.db"),
		JWTSecret:       "jwt-test",
		APIMasterSecret: "master-test",
	}
	db, err := database.InitDB(cfg)
	require.NoError(t, err)
	store := database.NewStore(db)
	registry := database.NewRegistry()
	sched := scheduler.NewScheduler(store, registry)

	ctx := context.Background()
	f, err := seed.Default()
	require.NoError(t, err)
	_, err = (&seed.Seeder{Store: store, Scheduler: sched, Logger: logger.Discard()}).Apply(ctx, f)
	require.NoError(t, err)
	_, err = auth.EnsureAdminExists(db, "admin", "secret")
	require.NoError(t, err)

	h := &Handler{
		Store:     store,
		Scheduler: sched,
		Registry:  registry,
		Auth:      auth.New(cfg),
		Config:    cfg,
		Logger:    logger.Discard(),
	}
	token, err := h.Auth.CreateToken("admin")
	require.NoError(t, err)

	ts := &testServer{h: h, router: NewRouter(h), admin: token, key: h.Auth.GenerateHMACKey("payroll")}
	shifts, err := store.Shifts(ctx)
	require.NoError(t, err)
	for _, sh := range shifts {
		if sh.Name == "7x7" {
			ts.shift = sh
		}
	}
	sites, err := store.Sites(ctx)
	require.NoError(t, err)
	ts.site = sites[0]
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) createPerson(t *testing.T, rut string) uint {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/admin/people", ts.admin, gin.H{
		"rut": rut, "first_name": "ANA", "last_name": "TORO", "email": rut + "@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func (ts *testServer) assignment(person uint, block int, start, end string) gin.H {
	return gin.H{
		"person_id":      person,
		"site_id":        ts.site.ID,
		"shift_id":       ts.shift.ID,
		"start_block_id": ts.shift.Blocks[block].ID,
		"start_date":     start,
		"end_date":       end,
	}
}

func TestBannerAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, Version, decode(t, w)["version"])
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/admin/login", "", gin.H{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["access_token"].(string)

	w = ts.do(t, http.MethodGet, "/admin/keys", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/admin/login", "", gin.H{"username": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/admin/keys", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/admin/keys", ts.key, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code, "API keys do not open admin routes")
}

func TestAPIKeyMiddleware(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/states", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/states", "payroll.deadbeef", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/states", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["states"], 7)

	for _, path := range []string{"/api/shifts", "/api/sites", "/api/people"} {
		w = ts.do(t, http.MethodGet, path, ts.key, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	person := ts.createPerson(t, "11111111")

	w := ts.do(t, http.MethodPost, "/admin/assignments", ts.admin, ts.assignment(person, 0, "2025-01-01", "2025-03-31"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	t.Run("overlap is a conflict", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/admin/assignments", ts.admin, ts.assignment(person, 0, "2025-03-01", ""))
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

		w = ts.do(t, http.MethodPost, "/api/assignments/check-overlap", ts.key, gin.H{"person_id": person, "start_date": "2025-03-31"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, true, decode(t, w)["overlaps"])

		w = ts.do(t, http.MethodPost, "/api/assignments/check-overlap", ts.key, gin.H{"person_id": person, "start_date": "2025-03-31", "exclude_id": id})
		require.Equal(t, false, decode(t, w)["overlaps"])
	})

	t.Run("foreign start block is rejected", func(t *testing.T) {
		body := ts.assignment(person, 0, "2026-01-01", "")
		body["start_block_id"] = 999
		w := ts.do(t, http.MethodPost, "/admin/assignments", ts.admin, body)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dry run reports the field", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/assignments/validate", ts.key, ts.assignment(person, 0, "2025-02-01", "2025-02-10"))
		require.Equal(t, http.StatusOK, w.Code)
		out := decode(t, w)
		require.Equal(t, false, out["valid"])
		require.Equal(t, "start_date", out["field"])

		w = ts.do(t, http.MethodPost, "/api/assignments/validate", ts.key, ts.assignment(person, 0, "2025-04-01", ""))
		require.Equal(t, true, decode(t, w)["valid"])
	})

	t.Run("calendar resolves the cycle", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/calendar?year=2025&month=1&person_id=1", ts.key, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out struct {
			Dates []string  `json:"dates"`
			Rows  []rowView `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Dates, 31)
		require.Len(t, out.Rows, 1)
		require.Equal(t, "Día", out.Rows[0].Days[0].States[0].Name)
		require.Equal(t, models.SourceCycle, out.Rows[0].Days[0].States[0].Source)
		require.Equal(t, "Descanso", out.Rows[0].Days[7].States[0].Name)
	})

	t.Run("update keeps its own range", func(t *testing.T) {
		w := ts.do(t, http.MethodPut, "/admin/assignments/1", ts.admin, ts.assignment(person, 1, "2025-01-01", "2025-04-30"))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-01-01", ts.key, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var out struct {
			Day dayView `json:"day"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, "Descanso", out.Day.States[0].Name)
	})

	t.Run("delete only disables", func(t *testing.T) {
		w := ts.do(t, http.MethodDelete, "/admin/assignments/1", ts.admin, nil)
		require.Equal(t, http.StatusOK, w.Code)

		a, err := ts.h.Store.Assignment(context.Background(), id)
		require.NoError(t, err)
		require.False(t, a.Active)

		w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-01-01", ts.key, nil)
		var out struct {
			Day dayView `json:"day"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, models.SourceDefault, out.Day.States[0].Source)

		w = ts.do(t, http.MethodDelete, "/admin/assignments/99", ts.admin, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLegacyRoutes(t *testing.T) {
	ts := newTestServer(t)
	person := ts.createPerson(t, "22222222")

	legacy := gin.H{
		"personal_id":      person,
		"faena_id":         ts.site.ID,
		"turno_id":         ts.shift.ID,
		"bloque_inicio_id": ts.shift.Blocks[0].ID,
		"fecha_inicio":     "2025-01-01",
		"fecha_fin":        "2025-01-31",
	}
	w := ts.do(t, http.MethodPost, "/api/crear-asignacion/", ts.key, legacy)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	require.Equal(t, true, out["success"])
	id := out["id"].(float64)

	w = ts.do(t, http.MethodPost, "/api/crear-asignacion/", ts.key, legacy)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, false, decode(t, w)["success"])

	legacy["id"] = id
	legacy["fecha_fin"] = "2025-02-28"
	w = ts.do(t, http.MethodPost, "/api/actualizar-asignacion/", ts.key, legacy)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/eliminar-asignacion/", ts.key, gin.H{"id": id})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["success"])

	w = ts.do(t, http.MethodGet, "/api/calendario/?year=2025&month=2", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatesAndMappings(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/admin/states", ts.admin, gin.H{"name": "Curso", "short_name": "C", "default": true})
	require.Equal(t, http.StatusConflict, w.Code, "a second default is refused")

	w = ts.do(t, http.MethodPost, "/admin/states", ts.admin, gin.H{"name": "Curso", "short_name": "C", "priority": 16, "blocking": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = ts.do(t, http.MethodPost, "/admin/states", ts.admin, gin.H{"name": "Curso"})
	require.Equal(t, http.StatusConflict, w.Code, "state names are unique")

	w = ts.do(t, http.MethodPost, "/admin/states/1/default", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/admin/mappings", ts.admin, gin.H{
		"state_id": id, "kind": "absence", "start_field": "fecha", "end_field": "end_date", "person_field": "person_id",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "unknown field")

	w = ts.do(t, http.MethodPost, "/admin/mappings", ts.admin, gin.H{
		"state_id": id, "kind": "training", "start_field": "start_date", "end_field": "end_date", "person_field": "person_id",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "unknown kind")

	w = ts.do(t, http.MethodPost, "/admin/mappings", ts.admin, gin.H{
		"state_id": id, "kind": "absence", "start_field": "start_date", "end_field": "end_date", "person_field": "person_id",
		"extra_filter": gin.H{"type": "Capacitación"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	person := ts.createPerson(t, "33333333")
	w = ts.do(t, http.MethodPost, "/admin/absences", ts.admin, gin.H{
		"person_id": person, "type": "Capacitación", "start_date": "2025-05-05", "end_date": "2025-05-06",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-05-06", ts.key, nil)
	var out struct {
		Day dayView `json:"day"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "Curso", out.Day.States[0].Name)
	require.Equal(t, models.SourceExternal, out.Day.States[0].Source)
}

func TestOverridesAndLeaves(t *testing.T) {
	ts := newTestServer(t)
	person := ts.createPerson(t, "44444444")

	w := ts.do(t, http.MethodPost, "/admin/medical-leaves", ts.admin, gin.H{
		"person_id": person, "type": "Enfermedad común", "issued_on": "2025-06-10", "ends_on": "2025-06-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "inverted range")

	w = ts.do(t, http.MethodPost, "/admin/medical-leaves", ts.admin, gin.H{
		"person_id": person, "type": "Enfermedad común", "issued_on": "2025-06-01", "ends_on": "2025-06-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-06-05", ts.key, nil)
	var out struct {
		Day dayView `json:"day"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "Licencia", out.Day.States[0].Name)

	override := gin.H{"person_id": person, "state_id": 7, "start_date": "2025-06-05", "end_date": "2025-06-05", "reason": "cambio"}
	w = ts.do(t, http.MethodPost, "/admin/overrides", ts.admin, override)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	oid := uint(decode(t, w)["id"].(float64))

	w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-06-05", ts.key, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, models.SourceManual, out.Day.States[0].Source)
	require.Len(t, out.Day.States, 1)

	override["active"] = false
	w = ts.do(t, http.MethodPut, "/admin/overrides/"+jsonID(oid), ts.admin, override)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/people/1/days/2025-06-05", ts.key, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "Licencia", out.Day.States[0].Name)

	w = ts.do(t, http.MethodPost, "/admin/overrides", ts.admin, gin.H{"person_id": 99, "state_id": 1, "start_date": "2025-06-05", "end_date": "2025-06-05"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShifts(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/admin/shifts", ts.admin, gin.H{
		"name": "14x14",
		"blocks": []gin.H{
			{"position": 1, "duration_days": 14, "state_id": 2},
			{"position": 1, "duration_days": 14, "state_id": 4},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "duplicate position")

	w = ts.do(t, http.MethodPost, "/admin/shifts", ts.admin, gin.H{
		"name": "14x14",
		"blocks": []gin.H{
			{"position": 1, "duration_days": 14, "state_id": 2},
			{"position": 2, "duration_days": 14, "state_id": 4},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var shift models.Shift
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shift))
	require.Equal(t, 28, shift.CycleLength())
}

func TestExportMonth(t *testing.T) {
	ts := newTestServer(t)
	ts.createPerson(t, "55555555")

	w := ts.do(t, http.MethodGet, "/api/calendar/export?year=2025&month=2", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "calendario-2025-02.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("2025-02", "B2")
	require.NoError(t, err)
	require.Equal(t, "-", v, "default state label")

	w = ts.do(t, http.MethodGet, "/api/calendar/export?year=2025&month=13", ts.key, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageAndRateLimit(t *testing.T) {
	ts := newTestServer(t)
	person := ts.createPerson(t, "66666666")
	ts.createPerson(t, "77777777")

	w := ts.do(t, http.MethodGet, "/api/calendar?year=2025&month=2", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// routes that resolve no calendar still count as requests
	w = ts.do(t, http.MethodPost, "/api/assignments/check-overlap", ts.key, gin.H{"person_id": person, "start_date": "2025-03-01"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/eliminar-asignacion/", ts.key, gin.H{"id": 9999})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/usage", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode(t, w)["totals"].(map[string]any)
	require.Equal(t, float64(3), totals["requests"])
	require.Equal(t, float64(2), totals["people"])
	require.Equal(t, float64(56), totals["days"])

	w = ts.do(t, http.MethodGet, "/admin/keys", ts.admin, nil)
	keys := decode(t, w)["keys"].([]any)
	require.Len(t, keys, 1)
	keyID := keys[0].(map[string]any)["id"].(float64)
	require.NotContains(t, w.Body.String(), ts.key, "raw keys are never listed")

	w = ts.do(t, http.MethodPut, "/admin/keys/"+jsonID(uint(keyID)), ts.admin, gin.H{"rate_limit": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/calendar?year=2025&month=2", ts.key, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	w = ts.do(t, http.MethodGet, "/admin/usage/"+jsonID(uint(keyID)), ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["usage"], 1)
}

func TestRateLimitFailsClosed(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/sites", ts.key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, ts.h.Store.DB.Migrator().DropTable(&database.APIUsage{}))
	w = ts.do(t, http.MethodGet, "/api/sites", ts.key, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGenerateAndRevokeKey(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/admin/keys", ts.admin, gin.H{"name": "rrhh"})
	require.Equal(t, http.StatusCreated, w.Code)
	out := decode(t, w)
	key := out["key"].(string)

	w = ts.do(t, http.MethodGet, "/api/sites", key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/admin/keys", ts.admin, gin.H{"name": "rrhh"})
	require.Equal(t, http.StatusConflict, w.Code, "same name signs the same key")

	w = ts.do(t, http.MethodDelete, "/admin/keys/"+jsonID(uint(out["id"].(float64))), ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
