package api

import (
	"fmt"
	"net/http"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OutputController struct {
	outputs *services.OutputService
	log     *zap.Logger
}

func NewOutputController(outputs *services.OutputService, log *zap.Logger) *OutputController {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutputController{outputs: outputs, log: log}
}

// RecordOutputs фиксирует выход продукции завершенного заказа
// POST /api/v1/production/orders/:id/outputs
func (oc *OutputController) RecordOutputs(c *gin.Context) {
	var req struct {
		MainProduct services.OutputLine   `json:"main_product"`
		ByProducts  []services.OutputLine `json:"by_products"`
		RecordedBy  *string               `json:"recorded_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outputs, err := oc.outputs.RecordOutputs(c.Request.Context(), c.Param("id"), services.OutputInput{
		MainProduct: req.MainProduct,
		ByProducts:  req.ByProducts,
		RecordedBy:  req.RecordedBy,
	})
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"outputs": outputs,
		"message": services.OutputsMessage(outputs),
	})
}

// RecordPackaging фиксирует фасовку в мешки
// POST /api/v1/production/orders/:id/packaging
func (oc *OutputController) RecordPackaging(c *gin.Context) {
	var req struct {
		ProductType string  `json:"product_type" binding:"required"`
		BagWeightKg int     `json:"bag_weight_kg" binding:"required"`
		BagCount    int     `json:"bag_count" binding:"required"`
		PackedBy    *string `json:"packed_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := oc.outputs.RecordPackaging(c.Request.Context(), c.Param("id"), services.PackagingInput{
		ProductType: req.ProductType,
		BagWeightKg: req.BagWeightKg,
		BagCount:    req.BagCount,
		PackedBy:    req.PackedBy,
	})
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"packaging": record,
		"message":   fmt.Sprintf("%d bags packed successfully (%dkg total)", record.BagCount, record.TotalWeightKg),
	})
}
