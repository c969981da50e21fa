package api

import (
	"fmt"
	"net/http"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StageController - таймеры этапов очистки и помола
type StageController struct {
	runner *services.StageRunner
	log    *zap.Logger
}

func NewStageController(runner *services.StageRunner, log *zap.Logger) *StageController {
	if log == nil {
		log = zap.NewNop()
	}
	return &StageController{runner: runner, log: log}
}

// stageParam разбирает :stage; при ошибке отвечает 400
func stageParam(c *gin.Context) (models.OrderStage, bool) {
	stage, ok := models.ParseStage(c.Param("stage"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unknown stage",
			"details": c.Param("stage"),
		})
		return "", false
	}
	return stage, true
}

// StartTimer запускает таймер этапа и напоминания
// POST /api/v1/production/orders/:id/stages/:stage/timer/start
func (sc *StageController) StartTimer(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	var req struct {
		DurationHours int `json:"duration_hours" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := sc.runner.StartStage(c.Request.Context(), c.Param("id"), stage, req.DurationHours)
	if err != nil {
		respondError(c, sc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timer":                     result.Timer,
		"reminder_interval_seconds": result.ReminderIntervalSeconds,
		"message":                   result.Message,
	})
}

// StopTimer останавливает таймер этапа
// POST /api/v1/production/orders/:id/stages/:stage/timer/stop
func (sc *StageController) StopTimer(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	snapshot, stopped, err := sc.runner.StopStage(c.Request.Context(), c.Param("id"), stage)
	if err != nil {
		respondError(c, sc.log, err)
		return
	}
	message := fmt.Sprintf("No running timer for %s stage", stage)
	if stopped {
		message = fmt.Sprintf("%s stage timer stopped with %s left", stage, snapshot.TimeLeft)
	}
	c.JSON(http.StatusOK, gin.H{
		"timer":   snapshot,
		"stopped": stopped,
		"message": message,
	})
}

// GetTimer возвращает состояние таймера этапа
// GET /api/v1/production/orders/:id/stages/:stage/timer
func (sc *StageController) GetTimer(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	snapshot, err := sc.runner.Snapshot(c.Request.Context(), c.Param("id"), stage)
	if err != nil {
		respondError(c, sc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timer":             snapshot,
		"allowed_durations": sc.runner.AllowedDurations(stage),
	})
}
