package services

import (
	"context"
	"fmt"
	"math"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// Этапы, на которых распределение можно пересохранить без перехода
var replanStages = []models.OrderStage{models.StagePlanned, models.Stage24hCleaning}

// PlanningResult - результат сохранения распределения
type PlanningResult struct {
	Allocations []models.BinAllocation `json:"allocations"`
	Message     string                 `json:"message"`
	Transition  *StageTransition       `json:"transition,omitempty"`
}

// PlanningService распределяет количество заказа по бункерам сырья
type PlanningService struct {
	store     ProductionStore
	bins      *BinCatalog
	machine   *StageMachine
	audit     *AuditLogger
	tolerance float64
	log       *zap.Logger
}

func NewPlanningService(store ProductionStore, bins *BinCatalog, machine *StageMachine, audit *AuditLogger, tolerance float64, log *zap.Logger) *PlanningService {
	if tolerance <= 0 {
		tolerance = config.DefaultAllocationTolerance
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanningService{
		store:     store,
		bins:      bins,
		machine:   machine,
		audit:     audit,
		tolerance: tolerance,
		log:       log,
	}
}

// ValidateAllocation проверяет проценты по бункерам и возвращает их сумму
func (s *PlanningService) ValidateAllocation(percentageByBin map[string]float64) (float64, error) {
	total := 0.0
	for binID, pct := range percentageByBin {
		if _, ok := s.bins.Get(binID); !ok {
			return 0, newValidationError("unknown bin", "bin %q is not in the catalog", binID)
		}
		if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 {
			return 0, newValidationError("invalid percentage", "bin %s has %v%%", binID, pct)
		}
		total += pct
	}

	diff := total - 100
	if math.Abs(diff) > s.tolerance+1e-9 {
		if diff < 0 {
			return total, newValidationError("allocation must total 100%", "need %.1f%% more", -diff)
		}
		return total, newValidationError("allocation must total 100%", "over by %.1f%%", diff)
	}
	return total, nil
}

// ComputeAndSaveAllocation проверяет распределение, пересчитывает его в тонны
// и атомарно заменяет сохраненный набор. Из этапа planning заказ в той же
// транзакции переходит на первый этап очистки.
func (s *PlanningService) ComputeAndSaveAllocation(ctx context.Context, orderID string, orderTotalQuantity float64, percentageByBin map[string]float64, createdBy *string) (*PlanningResult, error) {
	if orderTotalQuantity <= 0 || math.IsNaN(orderTotalQuantity) || math.IsInf(orderTotalQuantity, 0) {
		return nil, newValidationError("invalid order quantity", "%v t", orderTotalQuantity)
	}
	total, err := s.ValidateAllocation(percentageByBin)
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, persistErr("get order", err)
	}

	var (
		change *StageChange
		path   []models.OrderStage
	)
	switch {
	case order.CurrentStage == models.StagePlanning:
		planned, hops, err := s.machine.PlanAdvance(models.StagePlanning, TriggerPlanningSaved)
		if err != nil {
			return nil, err
		}
		change, path = &planned, hops
	case stageIn(order.CurrentStage, replanStages):
		// Пересохранение без перехода
	default:
		return nil, newValidationError("order is not in planning", "order is at %s", order.CurrentStage)
	}

	rows := s.buildRows(orderID, orderTotalQuantity, percentageByBin, createdBy)
	if err := s.store.ReplaceAllocations(ctx, orderID, rows, replanStages, change); err != nil {
		return nil, persistErr("replace allocations", err)
	}

	result := &PlanningResult{
		Allocations: rows,
		Message:     fmt.Sprintf("Allocated %.2f t across %d bins", orderTotalQuantity, len(rows)),
	}

	s.audit.LogEvent(ctx, orderID, models.StagePlanning, AuditPlanningSaved,
		fmt.Sprintf("Planning completed with %d bins allocated", len(rows)),
		nil,
		map[string]interface{}{"planning": rows, "total_percentage": total})

	if change != nil {
		result.Transition = s.machine.Record(ctx, orderID, change.From, path, TriggerPlanningSaved)
	}

	s.log.Info("planning saved",
		zap.String("order_id", orderID),
		zap.Int("bins", len(rows)),
		zap.Float64("total_percentage", total))
	return result, nil
}

// buildRows строит строки распределения в порядке каталога, пропуская нулевые доли
func (s *PlanningService) buildRows(orderID string, quantity float64, percentageByBin map[string]float64, createdBy *string) []models.BinAllocation {
	rows := make([]models.BinAllocation, 0, len(percentageByBin))
	for _, bin := range s.bins.List() {
		pct := percentageByBin[bin.ID]
		if pct <= 0 {
			continue
		}
		rows = append(rows, models.BinAllocation{
			OrderID:       orderID,
			BinID:         bin.ID,
			BinName:       bin.Name,
			Percentage:    pct,
			TonsAllocated: pct * quantity / 100,
			AvailableTons: bin.Available,
			CreatedBy:     createdBy,
		})
	}
	return rows
}

// ListAllocations возвращает сохраненное распределение заказа
func (s *PlanningService) ListAllocations(ctx context.Context, orderID string) ([]models.BinAllocation, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, persistErr("get order", err)
	}
	rows, err := s.store.ListAllocations(ctx, orderID)
	if err != nil {
		return nil, persistErr("list allocations", err)
	}
	return rows, nil
}

// Bins возвращает каталог бункеров
func (s *PlanningService) Bins() []Bin {
	return s.bins.List()
}
