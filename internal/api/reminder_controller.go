package api

import (
	"fmt"
	"net/http"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderController struct {
	reminders *services.ReminderService
	orders    *services.ProductionOrderService
	log       *zap.Logger
}

func NewReminderController(reminders *services.ReminderService, orders *services.ProductionOrderService, log *zap.Logger) *ReminderController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderController{reminders: reminders, orders: orders, log: log}
}

// ListReminders возвращает напоминания заказа, новые первыми
// GET /api/v1/production/orders/:id/reminders
func (rc *ReminderController) ListReminders(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := rc.orders.GetOrder(ctx, id); err != nil {
		respondError(c, rc.log, err)
		return
	}
	reminders, err := rc.reminders.ListReminders(ctx, id)
	if err != nil {
		respondError(c, rc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reminders": reminders,
		"count":     len(reminders),
	})
}

// CreateReminder создает неотвеченное напоминание (оператор открыл окно ответа)
// POST /api/v1/production/orders/:id/stages/:stage/reminders
func (rc *ReminderController) CreateReminder(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	reminder, err := rc.reminders.CreateReminder(c.Request.Context(), c.Param("id"), stage)
	if err != nil {
		respondError(c, rc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reminder": reminder,
		"message":  fmt.Sprintf("Cleaning reminder created for %s stage", stage),
	})
}

// RespondToReminder закрывает напоминание фото до/после
// POST /api/v1/production/reminders/:id/respond
func (rc *ReminderController) RespondToReminder(c *gin.Context) {
	var req struct {
		BeforePhotoURL string  `json:"before_photo_url"`
		AfterPhotoURL  string  `json:"after_photo_url"`
		Notes          *string `json:"notes"`
		RespondedBy    *string `json:"responded_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reminder, err := rc.reminders.RespondToReminder(c.Request.Context(), c.Param("id"), services.RespondInput{
		BeforePhotoURL: req.BeforePhotoURL,
		AfterPhotoURL:  req.AfterPhotoURL,
		Notes:          req.Notes,
		RespondedBy:    req.RespondedBy,
	})
	if err != nil {
		respondError(c, rc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reminder": reminder,
		"message":  services.RespondedMessage(reminder),
	})
}

// SchedulePreEndWarning планирует предупреждение перед окончанием этапа
// POST /api/v1/production/orders/:id/stages/:stage/pre-end-warning
func (rc *ReminderController) SchedulePreEndWarning(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	var req struct {
		MinutesBefore int `json:"minutes_before" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reminder, err := rc.reminders.SchedulePreEndWarning(c.Request.Context(), c.Param("id"), stage, req.MinutesBefore)
	if err != nil {
		respondError(c, rc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reminder": reminder,
		"message":  fmt.Sprintf("Warning will be shown %d minutes before completion", req.MinutesBefore),
	})
}
