package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// AllowedBagWeights - стандартные мешки, кг
var AllowedBagWeights = []int{25, 30, 40, 50}

// OutputLine - одна позиция выхода продукции
type OutputLine struct {
	ProductType string  `json:"product_type"`
	QuantityKg  float64 `json:"quantity_kg"`
	Percentage  float64 `json:"percentage"`
}

// OutputInput - выход по заказу: основной продукт и побочные (Bran, Shorts)
type OutputInput struct {
	MainProduct OutputLine
	ByProducts  []OutputLine
	RecordedBy  *string
}

// PackagingInput - фасовка основного продукта
type PackagingInput struct {
	ProductType string
	BagWeightKg int
	BagCount    int
	PackedBy    *string
}

type outputDeps interface {
	OrderStore
	OutputStore
}

// OutputService фиксирует выход продукции и фасовку завершенных заказов
type OutputService struct {
	store outputDeps
	audit *AuditLogger
	log   *zap.Logger
}

func NewOutputService(store outputDeps, audit *AuditLogger, log *zap.Logger) *OutputService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutputService{store: store, audit: audit, log: log}
}

func (s *OutputService) completedOrder(ctx context.Context, orderID string) (*models.ProductionOrder, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if order.CurrentStage != models.StageCompleted {
		return nil, newValidationError("order is not completed", "order is at %s", order.CurrentStage)
	}
	return order, nil
}

// RecordOutputs сохраняет основной продукт и побочные продукты с ненулевым количеством
func (s *OutputService) RecordOutputs(ctx context.Context, orderID string, input OutputInput) ([]models.ProductionOutput, error) {
	main := input.MainProduct
	main.ProductType = strings.TrimSpace(main.ProductType)
	if main.ProductType == "" || main.QuantityKg <= 0 {
		return nil, newValidationError("main product details are required", "product type and a positive quantity")
	}
	if _, err := s.completedOrder(ctx, orderID); err != nil {
		return nil, err
	}

	outputs := []models.ProductionOutput{{
		OrderID:       orderID,
		ProductType:   main.ProductType,
		QuantityKg:    main.QuantityKg,
		Percentage:    main.Percentage,
		IsMainProduct: true,
		RecordedBy:    input.RecordedBy,
	}}
	for _, bp := range input.ByProducts {
		if bp.QuantityKg <= 0 || strings.TrimSpace(bp.ProductType) == "" {
			continue
		}
		outputs = append(outputs, models.ProductionOutput{
			OrderID:     orderID,
			ProductType: strings.TrimSpace(bp.ProductType),
			QuantityKg:  bp.QuantityKg,
			Percentage:  bp.Percentage,
			RecordedBy:  input.RecordedBy,
		})
	}

	if err := s.store.CreateOutputs(ctx, outputs); err != nil {
		return nil, persistErr("record outputs", err)
	}

	s.audit.LogEvent(ctx, orderID, models.StageCompleted, AuditOutputsRecorded,
		fmt.Sprintf("Recorded %.2f kg of %s and %d by-products", main.QuantityKg, main.ProductType, len(outputs)-1),
		nil, outputs)
	return outputs, nil
}

// OutputsMessage - итог записи выхода для оператора
func OutputsMessage(outputs []models.ProductionOutput) string {
	var mainLine string
	var byKg float64
	byCount := 0
	for _, o := range outputs {
		if o.IsMainProduct {
			mainLine = fmt.Sprintf("%.2f kg of %s", o.QuantityKg, o.ProductType)
			continue
		}
		byKg += o.QuantityKg
		byCount++
	}
	if byCount == 0 {
		return fmt.Sprintf("Recorded %s", mainLine)
	}
	return fmt.Sprintf("Recorded %s and %.2f kg across %d by-products", mainLine, byKg, byCount)
}

// RecordPackaging сохраняет фасовку; общий вес = вес мешка * количество
func (s *OutputService) RecordPackaging(ctx context.Context, orderID string, input PackagingInput) (*models.PackagingRecord, error) {
	input.ProductType = strings.TrimSpace(input.ProductType)
	if input.ProductType == "" {
		return nil, newValidationError("product type is required", "")
	}
	if !bagWeightAllowed(input.BagWeightKg) {
		return nil, newValidationError("invalid bag weight", "%dkg is not one of %v", input.BagWeightKg, AllowedBagWeights)
	}
	if input.BagCount <= 0 {
		return nil, newValidationError("bag count must be positive", "got %d", input.BagCount)
	}
	if _, err := s.completedOrder(ctx, orderID); err != nil {
		return nil, err
	}

	record := &models.PackagingRecord{
		OrderID:       orderID,
		ProductType:   input.ProductType,
		BagWeightKg:   input.BagWeightKg,
		BagCount:      input.BagCount,
		TotalWeightKg: input.BagWeightKg * input.BagCount,
		PackedBy:      input.PackedBy,
	}
	if err := s.store.CreatePackaging(ctx, record); err != nil {
		return nil, persistErr("record packaging", err)
	}

	s.audit.LogEvent(ctx, orderID, models.StageCompleted, AuditPackingCompleted,
		fmt.Sprintf("Packed %d bags of %dkg (%dkg total)", record.BagCount, record.BagWeightKg, record.TotalWeightKg),
		nil, map[string]interface{}{
			"product_type": record.ProductType,
			"bag_weight":   record.BagWeightKg,
			"bag_count":    record.BagCount,
			"total_weight": record.TotalWeightKg,
		})

	s.log.Info("packaging recorded",
		zap.String("order_id", orderID),
		zap.Int("bags", record.BagCount),
		zap.Int("total_weight_kg", record.TotalWeightKg))
	return record, nil
}

func bagWeightAllowed(kg int) bool {
	for _, w := range AllowedBagWeights {
		if w == kg {
			return true
		}
	}
	return false
}
