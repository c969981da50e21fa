package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/database"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"
)

type seedOrder struct {
	input      services.CreateOrderInput
	plan       map[string]float64 // nil - оставить на этапе created/planning
	toPlanning bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ .env файл не найден, используем переменные окружения системы")
	}

	cfg := config.Load()
	zlog := zap.NewNop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolSettings{MaxOpenConns: 2, MaxIdleConns: 1}, zlog)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к PostgreSQL: %v", err)
	}
	defer database.ClosePostgres(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Ошибка миграции: %v", err)
	}

	mill, err := config.LoadMillFile(cfg.MillConfigPath)
	if err != nil {
		log.Printf("⚠️ mill config: %v (используем значения по умолчанию)", err)
	}

	store := services.NewGormStore(db)
	audit := services.NewAuditLogger(store, nil, zlog)
	machine := services.NewStageMachine(store, audit, nil, nil, zlog)
	orders := services.NewProductionOrderService(store, machine, audit, zlog)
	planning := services.NewPlanningService(store, services.NewBinCatalog(mill), machine, audit, cfg.AllocationTolerance, zlog)

	target := time.Now().UTC().AddDate(0, 0, 7)
	seeds := []seedOrder{
		{input: services.CreateOrderInput{OrderNumber: "PO-SEED-001", QuantityTons: 100, FinishedGoodsType: "Maida Premium", Priority: models.PriorityHigh, TargetDate: &target},
			toPlanning: true, plan: map[string]float64{"A": 40, "B": 35, "C": 25}},
		{input: services.CreateOrderInput{OrderNumber: "PO-SEED-002", QuantityTons: 60, FinishedGoodsType: "Chakki Atta", Priority: models.PriorityMedium},
			toPlanning: true},
		{input: services.CreateOrderInput{OrderNumber: "PO-SEED-003", QuantityTons: 25.5, FinishedGoodsType: "Suji", Priority: models.PriorityLow}},
	}

	ctx := context.Background()
	created := 0
	for _, seed := range seeds {
		order, err := orders.CreateOrder(ctx, seed.input)
		if err != nil {
			log.Printf("⚠️ %s: %v (пропускаем)", seed.input.OrderNumber, err)
			continue
		}
		created++
		if seed.toPlanning {
			if _, err := orders.BeginPlanning(ctx, order.ID); err != nil {
				log.Printf("⚠️ %s: begin planning: %v", order.OrderNumber, err)
				continue
			}
		}
		if seed.plan != nil {
			result, err := planning.ComputeAndSaveAllocation(ctx, order.ID, order.QuantityTons, seed.plan, nil)
			if err != nil {
				var vErr *services.ValidationError
				if errors.As(err, &vErr) {
					log.Printf("⚠️ %s: %s", order.OrderNumber, vErr.Error())
				} else {
					log.Printf("❌ %s: %v", order.OrderNumber, err)
				}
				continue
			}
			log.Printf("✅ %s: %s", order.OrderNumber, result.Message)
		}
	}

	all, err := orders.ListOrders(ctx)
	if err != nil {
		log.Fatalf("❌ Не удалось получить заказы: %v", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Order", "Tons", "Product", "Priority", "Status", "Stage"})
	for _, o := range all {
		tw.AppendRow(table.Row{o.OrderNumber, fmt.Sprintf("%.2f", o.QuantityTons), o.FinishedGoodsType, o.Priority, o.Status, o.CurrentStage})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()

	log.Printf("✅ Создано заказов: %d", created)
}
