package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductionController struct {
	orders *services.ProductionOrderService
	audit  *services.AuditLogger
	log    *zap.Logger
}

func NewProductionController(orders *services.ProductionOrderService, audit *services.AuditLogger, log *zap.Logger) *ProductionController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductionController{orders: orders, audit: audit, log: log}
}

// ListOrders возвращает производственные заказы, новые первыми
// GET /api/v1/production/orders
func (pc *ProductionController) ListOrders(c *gin.Context) {
	orders, err := pc.orders.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// CreateOrder создает производственный заказ
// POST /api/v1/production/orders
func (pc *ProductionController) CreateOrder(c *gin.Context) {
	var req struct {
		OrderNumber       string  `json:"order_number" binding:"required"`
		QuantityTons      float64 `json:"quantity_tons" binding:"required"`
		FinishedGoodsType string  `json:"finished_goods_type" binding:"required"`
		Priority          string  `json:"priority"`
		TargetDate        string  `json:"target_date"` // YYYY-MM-DD или RFC3339
		Description       string  `json:"description"`
		CreatedBy         *string `json:"created_by"`
		ResponsiblePerson *string `json:"responsible_person"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	input := services.CreateOrderInput{
		OrderNumber:       req.OrderNumber,
		QuantityTons:      req.QuantityTons,
		FinishedGoodsType: req.FinishedGoodsType,
		Priority:          models.OrderPriority(req.Priority),
		Description:       req.Description,
		CreatedBy:         req.CreatedBy,
		ResponsiblePerson: req.ResponsiblePerson,
	}
	if req.TargetDate != "" {
		target, err := parseDate(req.TargetDate)
		if err != nil {
			badRequest(c, err)
			return
		}
		input.TargetDate = &target
	}

	order, err := pc.orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"message": fmt.Sprintf("Order %s created for %v tons of %s", order.OrderNumber, order.QuantityTons, order.FinishedGoodsType),
	})
}

// GetOrder возвращает заказ
// GET /api/v1/production/orders/:id
func (pc *ProductionController) GetOrder(c *gin.Context) {
	order, err := pc.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// BeginPlanning переводит заказ created -> planning
// POST /api/v1/production/orders/:id/begin-planning
func (pc *ProductionController) BeginPlanning(c *gin.Context) {
	transition, err := pc.orders.BeginPlanning(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transition": transition,
		"message":    fmt.Sprintf("Order moved to %s", transition.To),
	})
}

// Hold - ручная остановка заказа; таймер текущего этапа останавливается
// POST /api/v1/production/orders/:id/hold
func (pc *ProductionController) Hold(c *gin.Context) {
	ctx := c.Request.Context()
	transition, err := pc.orders.Hold(ctx, c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transition": transition,
		"message":    fmt.Sprintf("Order put on hold at %s", transition.From),
	})
}

// GetAudit возвращает журнал аудита заказа
// GET /api/v1/production/orders/:id/audit
func (pc *ProductionController) GetAudit(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := pc.orders.GetOrder(ctx, id); err != nil {
		respondError(c, pc.log, err)
		return
	}
	entries, err := pc.audit.List(ctx, id)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("target_date must be YYYY-MM-DD or RFC3339: %w", err)
	}
	return t, nil
}
