package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers - обработчики HTTP API производства
type Controllers struct {
	Production *ProductionController
	Planning   *PlanningController
	Stages     *StageController
	Reminders  *ReminderController
	Outputs    *OutputController
	Hub        *Hub
}

// HealthStatus сообщает о доступности хранилищ для /health
type HealthStatus func() gin.H

// NewRouter собирает gin движок со всеми маршрутами /api/v1
func NewRouter(ctrl Controllers, health HealthStatus, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check endpoint (до CORS и логирования, его часто дергает балансировщик)
	r.GET("/api/v1/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": "wheatflow-production",
		}
		if health != nil {
			for k, v := range health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})

	r.Use(RequestLogger(log))
	r.Use(CORS())

	apiGroup := r.Group("/api/v1")
	production := apiGroup.Group("/production")
	{
		production.GET("/orders", ctrl.Production.ListOrders)
		production.POST("/orders", ctrl.Production.CreateOrder)
		production.GET("/orders/:id", ctrl.Production.GetOrder)
		production.POST("/orders/:id/begin-planning", ctrl.Production.BeginPlanning)
		production.POST("/orders/:id/hold", ctrl.Production.Hold)
		production.GET("/orders/:id/audit", ctrl.Production.GetAudit)

		production.GET("/bins", ctrl.Planning.GetBins)
		production.GET("/orders/:id/planning", ctrl.Planning.GetPlanning)
		production.PUT("/orders/:id/planning", ctrl.Planning.SavePlanning)

		production.POST("/orders/:id/stages/:stage/timer/start", ctrl.Stages.StartTimer)
		production.POST("/orders/:id/stages/:stage/timer/stop", ctrl.Stages.StopTimer)
		production.GET("/orders/:id/stages/:stage/timer", ctrl.Stages.GetTimer)

		production.GET("/orders/:id/reminders", ctrl.Reminders.ListReminders)
		production.POST("/orders/:id/stages/:stage/reminders", ctrl.Reminders.CreateReminder)
		production.POST("/orders/:id/stages/:stage/pre-end-warning", ctrl.Reminders.SchedulePreEndWarning)
		production.POST("/reminders/:id/respond", ctrl.Reminders.RespondToReminder)

		production.POST("/orders/:id/outputs", ctrl.Outputs.RecordOutputs)
		production.POST("/orders/:id/packaging", ctrl.Outputs.RecordPackaging)

		if ctrl.Hub != nil {
			production.GET("/ws", ctrl.Hub.ServeWS)
		}
	}

	return r
}
