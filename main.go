package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/api"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/database"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/logger"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/utils"
)

func main() {
	// .env может отсутствовать в production окружениях
	envErr := godotenv.Load()

	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	if envErr != nil {
		zlog.Info(".env файл не найден, используем переменные окружения системы")
	}
	zlog.Info("configuration loaded",
		zap.String("database_url", maskURL(cfg.DatabaseURL)),
		zap.String("environment", cfg.Environment),
		zap.Float64("allocation_tolerance", cfg.AllocationTolerance),
		zap.Duration("timer_tick", cfg.TimerTickInterval))

	mill, err := config.LoadMillFile(cfg.MillConfigPath)
	if err != nil {
		zlog.Warn("mill config не загружен, используем значения по умолчанию", zap.String("path", cfg.MillConfigPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL; без БД продолжаем на хранилище в памяти
	var store services.ProductionStore
	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolFromConfig(cfg), zlog)
	if err != nil {
		zlog.Warn("PostgreSQL недоступен, продолжаем работу без БД (данные в памяти)", zap.Error(err))
		db = nil
	} else if err := models.AutoMigrate(db); err != nil {
		zlog.Warn("ошибка миграции таблиц производства", zap.Error(err))
	}
	if db != nil {
		store = services.NewGormStore(db)
	} else {
		store = services.NewMemoryStore()
	}

	// Redis - блокнот таймеров этапов
	var timerStore services.TimerStore
	redisClient, err := database.ConnectRedis(database.RedisSettingsFromConfig(cfg), zlog)
	if err != nil {
		zlog.Warn("Redis недоступен, таймеры не переживут перезапуск", zap.Error(err))
		redisClient = nil
		timerStore = services.NewMemoryTimerStore()
	} else {
		timerStore = services.NewRedisTimerStore(utils.NewRedisClient(redisClient))
	}

	hub := api.NewHub(zlog)
	go hub.Run(ctx)

	publishers := services.MultiPublisher{hub}
	var kafkaPublisher *api.KafkaEventPublisher
	if brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		transport := api.CreateKafkaTransport(cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert, zlog)
		kafkaPublisher = api.NewKafkaEventPublisher(brokers, cfg.KafkaEventsTopic, transport, zlog)
		publishers = append(publishers, kafkaPublisher)
	} else {
		zlog.Info("KAFKA_BROKERS не установлен, события только в WebSocket")
	}

	clock := services.SystemClock()
	audit := services.NewAuditLogger(store, clock, zlog)
	machine := services.NewStageMachine(store, audit, publishers, clock, zlog)
	orderService := services.NewProductionOrderService(store, machine, audit, zlog)
	planningService := services.NewPlanningService(store, services.NewBinCatalog(mill), machine, audit, cfg.AllocationTolerance, zlog)
	reminderService := services.NewReminderService(store, mill.ReminderIntervals, audit, publishers, clock, zlog)
	outputService := services.NewOutputService(store, audit, zlog)
	runner := services.NewStageRunner(services.StageRunnerConfig{
		Orders:           store,
		Timers:           timerStore,
		Machine:          machine,
		Reminders:        reminderService,
		Audit:            audit,
		Events:           publishers,
		Clock:            clock,
		AllowedDurations: mill.AllowedDurations,
		TickInterval:     cfg.TimerTickInterval,
		Logger:           zlog,
	})
	orderService.AttachStages(runner)

	// Восстанавливаем таймеры ДО приема запросов
	if restored, err := runner.Restore(ctx); err != nil {
		zlog.Warn("восстановление таймеров завершилось с ошибкой (продолжаем работу)", zap.Error(err))
	} else {
		zlog.Info("таймеры этапов восстановлены", zap.Int("count", restored))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Controllers{
		Production: api.NewProductionController(orderService, audit, zlog),
		Planning:   api.NewPlanningController(planningService, orderService, zlog),
		Stages:     api.NewStageController(runner, zlog),
		Reminders:  api.NewReminderController(reminderService, orderService, zlog),
		Outputs:    api.NewOutputController(outputService, zlog),
		Hub:        hub,
	}, func() gin.H {
		return gin.H{
			"database":      storageState(db != nil),
			"redis":         storageState(redisClient != nil),
			"active_timers": runner.Active(),
			"ws_clients":    hub.GetClientsCount(),
		}
	}, zlog)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	healthServer := api.NewHealthServer()
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			zlog.Error("failed to listen gRPC", zap.Error(err))
			return
		}
		zlog.Info("gRPC health server starting", zap.String("port", cfg.GRPCPort))
		if err := healthServer.Server().Serve(lis); err != nil {
			zlog.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	healthServer.SetServing(true)

	<-ctx.Done()
	zlog.Info("shutting down")

	healthServer.SetServing(false)
	runner.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("HTTP shutdown", zap.Error(err))
	}
	healthServer.Stop()

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			zlog.Warn("kafka close", zap.Error(err))
		}
	}
	if err := database.CloseRedis(redisClient); err != nil {
		zlog.Warn("redis close", zap.Error(err))
	}
	if err := database.ClosePostgres(db); err != nil {
		zlog.Warn("postgres close", zap.Error(err))
	}
}

func storageState(connected bool) string {
	if connected {
		return "connected"
	}
	return "memory"
}

// maskURL скрывает пароль в строке подключения
func maskURL(url string) string {
	if idx := strings.Index(url, "@"); idx > 0 {
		if schemeIdx := strings.Index(url, "://"); schemeIdx > 0 && schemeIdx < idx {
			return url[:schemeIdx+3] + "***@" + url[idx+1:]
		}
	}
	return url
}
