package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// CreateOrderInput - данные нового производственного заказа
type CreateOrderInput struct {
	OrderNumber       string
	QuantityTons      float64
	FinishedGoodsType string
	Priority          models.OrderPriority
	TargetDate        *time.Time
	Description       string
	CreatedBy         *string
	ResponsiblePerson *string
}

// StageStopper останавливает таймер и напоминания этапа (StageRunner)
type StageStopper interface {
	StopStage(ctx context.Context, orderID string, stage models.OrderStage) (TimerSnapshot, bool, error)
}

// ProductionOrderService управляет производственными заказами
type ProductionOrderService struct {
	store   OrderStore
	machine *StageMachine
	audit   *AuditLogger
	stages  StageStopper
	log     *zap.Logger
}

func NewProductionOrderService(store OrderStore, machine *StageMachine, audit *AuditLogger, log *zap.Logger) *ProductionOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductionOrderService{store: store, machine: machine, audit: audit, log: log}
}

// CreateOrder создает заказ на этапе created
func (s *ProductionOrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.ProductionOrder, error) {
	input.OrderNumber = strings.TrimSpace(input.OrderNumber)
	input.FinishedGoodsType = strings.TrimSpace(input.FinishedGoodsType)

	if input.OrderNumber == "" {
		return nil, newValidationError("order number is required", "")
	}
	if input.QuantityTons <= 0 {
		return nil, newValidationError("quantity must be positive", "got %v t", input.QuantityTons)
	}
	if input.FinishedGoodsType == "" {
		return nil, newValidationError("finished goods type is required", "")
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, newValidationError("invalid priority", "%q is not one of low, medium, high", input.Priority)
	}

	order := &models.ProductionOrder{
		OrderNumber:       input.OrderNumber,
		QuantityTons:      input.QuantityTons,
		FinishedGoodsType: input.FinishedGoodsType,
		Priority:          input.Priority,
		Status:            models.StageCreated,
		CurrentStage:      models.StageCreated,
		TargetDate:        input.TargetDate,
		Description:       input.Description,
		CreatedBy:         input.CreatedBy,
		ResponsiblePerson: input.ResponsiblePerson,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, persistErr("create order", err)
	}

	s.audit.LogEvent(ctx, order.ID, models.StageCreated, AuditOrderCreated,
		fmt.Sprintf("Order %s created for %v tons of %s", order.OrderNumber, order.QuantityTons, order.FinishedGoodsType),
		nil, order)

	s.log.Info("production order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))
	return order, nil
}

func (s *ProductionOrderService) GetOrder(ctx context.Context, id string) (*models.ProductionOrder, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	return order, nil
}

// ListOrders возвращает заказы, новые первыми
func (s *ProductionOrderService) ListOrders(ctx context.Context) ([]models.ProductionOrder, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, persistErr("list orders", err)
	}
	return orders, nil
}

// BeginPlanning переводит заказ created -> planning
func (s *ProductionOrderService) BeginPlanning(ctx context.Context, id string) (*StageTransition, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CurrentStage != models.StageCreated {
		return nil, newValidationError("planning can only begin for a new order", "order is at %s", order.CurrentStage)
	}
	return s.machine.Advance(ctx, id, models.StageCreated, TriggerBeginPlanning)
}

// AttachStages подключает реестр таймеров, который создается позже сервиса
func (s *ProductionOrderService) AttachStages(stages StageStopper) {
	s.stages = stages
}

// Hold - ручная остановка заказа. Таймер покинутого этапа останавливается;
// ошибка остановки только логируется, заказ уже на on_hold.
func (s *ProductionOrderService) Hold(ctx context.Context, id string) (*StageTransition, error) {
	transition, err := s.machine.Hold(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.stages != nil && transition.From.IsTimed() {
		if _, _, err := s.stages.StopStage(ctx, transition.OrderID, transition.From); err != nil {
			s.log.Warn("hold: не удалось остановить таймер",
				zap.String("order_id", transition.OrderID), zap.String("stage", string(transition.From)), zap.Error(err))
		}
	}
	return transition, nil
}
