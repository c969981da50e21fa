package api

import (
	"net/http"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlanningController struct {
	planning *services.PlanningService
	orders   *services.ProductionOrderService
	log      *zap.Logger
}

func NewPlanningController(planning *services.PlanningService, orders *services.ProductionOrderService, log *zap.Logger) *PlanningController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanningController{planning: planning, orders: orders, log: log}
}

// GetBins возвращает каталог бункеров сырья
// GET /api/v1/production/bins
func (pc *PlanningController) GetBins(c *gin.Context) {
	bins := pc.planning.Bins()
	c.JSON(http.StatusOK, gin.H{
		"bins":  bins,
		"count": len(bins),
	})
}

// GetPlanning возвращает распределение заказа по бункерам
// GET /api/v1/production/orders/:id/planning
func (pc *PlanningController) GetPlanning(c *gin.Context) {
	rows, err := pc.planning.ListAllocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	total := 0.0
	for _, row := range rows {
		total += row.Percentage
	}
	c.JSON(http.StatusOK, gin.H{
		"planning":         rows,
		"total_percentage": total,
	})
}

// SavePlanning проверяет и сохраняет распределение (замена всего набора)
// PUT /api/v1/production/orders/:id/planning
func (pc *PlanningController) SavePlanning(c *gin.Context) {
	var req struct {
		Percentages map[string]float64 `json:"percentages" binding:"required"`
		CreatedBy   *string            `json:"created_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	order, err := pc.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}

	result, err := pc.planning.ComputeAndSaveAllocation(ctx, order.ID, order.QuantityTons, req.Percentages, req.CreatedBy)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"planning":   result.Allocations,
		"transition": result.Transition,
		"message":    result.Message,
	})
}
