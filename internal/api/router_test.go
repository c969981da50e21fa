package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	mill := config.DefaultMill()

	store := services.NewMemoryStore()
	clock := services.SystemClock()
	audit := services.NewAuditLogger(store, clock, log)
	machine := services.NewStageMachine(store, audit, nil, clock, log)
	orders := services.NewProductionOrderService(store, machine, audit, log)
	planning := services.NewPlanningService(store, services.NewBinCatalog(mill), machine, audit, config.DefaultAllocationTolerance, log)
	reminders := services.NewReminderService(store, mill.ReminderIntervals, audit, nil, clock, log)
	runner := services.NewStageRunner(services.StageRunnerConfig{
		Orders:           store,
		Timers:           services.NewMemoryTimerStore(),
		Machine:          machine,
		Reminders:        reminders,
		Audit:            audit,
		Clock:            clock,
		AllowedDurations: mill.AllowedDurations,
		TickInterval:     time.Hour,
		Logger:           log,
	})
	t.Cleanup(runner.Shutdown)
	orders.AttachStages(runner)

	return NewRouter(Controllers{
		Production: NewProductionController(orders, audit, log),
		Planning:   NewPlanningController(planning, orders, log),
		Stages:     NewStageController(runner, log),
		Reminders:  NewReminderController(reminders, orders, log),
		Outputs:    NewOutputController(services.NewOutputService(store, audit, log), log),
	}, func() gin.H {
		return gin.H{"database": "memory"}
	}, log)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func createOrder(t *testing.T, r http.Handler, number string) string {
	t.Helper()
	w, body := doJSON(t, r, http.MethodPost, "/api/v1/production/orders", map[string]interface{}{
		"order_number":        number,
		"quantity_tons":       100,
		"finished_goods_type": "Maida",
		"priority":            "high",
		"target_date":         "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := body["order"].(map[string]interface{})
	return order["id"].(string)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w, body := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["database"])
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	id := createOrder(t, r, "PO-API-1")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/production/orders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "created", body["order"].(map[string]interface{})["current_stage"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/begin-planning", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 99.8% - отклоняется с подсказкой
	w, body = doJSON(t, r, http.MethodPut, "/api/v1/production/orders/"+id+"/planning", map[string]interface{}{
		"percentages": map[string]float64{"A": 40, "B": 35, "C": 24.8},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "allocation must total 100%", body["error"])
	assert.Equal(t, "need 0.2% more", body["details"])

	w, body = doJSON(t, r, http.MethodPut, "/api/v1/production/orders/"+id+"/planning", map[string]interface{}{
		"percentages": map[string]float64{"A": 40, "B": 35, "C": 25},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, body["planning"], 3)

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/production/orders/"+id+"/planning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 100.0, body["total_percentage"], 1e-9)

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/24h_cleaning/timer/start", map[string]interface{}{
		"duration_hours": 24,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	timer := body["timer"].(map[string]interface{})
	assert.Equal(t, "running", timer["status"])
	assert.Equal(t, "24h 0m 0s", timer["time_left"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/24h_cleaning/timer/start", map[string]interface{}{
		"duration_hours": 24,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/production/orders/"+id+"/stages/24h_cleaning/timer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["allowed_durations"], 3)

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/24h_cleaning/timer/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["stopped"])

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/24h_cleaning/timer/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["stopped"])

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/production/orders/"+id+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, body["count"], 4.0)
}

func TestReminderEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := createOrder(t, r, "PO-API-2")

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/12h_cleaning/reminders", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reminderID := body["reminder"].(map[string]interface{})["id"].(string)

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/reminders/"+reminderID+"/respond", map[string]interface{}{
		"before_photo_url": "https://photos/before.jpg",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "after photo is missing", body["details"])

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/reminders/"+reminderID+"/respond", map[string]interface{}{
		"before_photo_url": "https://photos/before.jpg",
		"after_photo_url":  "https://photos/after.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["message"], reminderID)
	assert.Contains(t, body["message"], "12h_cleaning")

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/production/orders/"+id+"/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/grinding/pre-end-warning", map[string]interface{}{
		"minutes_before": 10,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestErrorResponses(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/production/orders/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/production/orders", map[string]interface{}{
		"order_number": "PO-X",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body["error"])

	id := createOrder(t, r, "PO-API-3")
	w, body = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/drying/timer/start", map[string]interface{}{
		"duration_hours": 8,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown stage", body["error"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/stages/grinding/timer/start", map[string]interface{}{
		"duration_hours": 8,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "order is still at created")

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/production/orders/"+id+"/outputs", map[string]interface{}{
		"main_product": map[string]interface{}{"product_type": "Maida", "quantity_kg": 100},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/production/bins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6.0, body["count"])
}
