package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PoolSettings - размеры пула соединений PostgreSQL
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool - нагрузка небольшая: один оператор на заказ, таймеры пишут в Redis
var DefaultPool = PoolSettings{MaxOpenConns: 15, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}

// PoolFromConfig берет размеры пула из DB_MAX_OPEN_CONNS и DB_MAX_IDLE_CONNS
func PoolFromConfig(cfg *config.Config) PoolSettings {
	return PoolSettings{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: DefaultPool.ConnMaxLifetime,
	}
}

// ConnectPostgres открывает gorm поверх pgx и проверяет соединение
func ConnectPostgres(databaseURL string, pool PoolSettings, log *zap.Logger) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(databaseURL), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	applyPool(sqlDB, pool)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("✅ PostgreSQL connected", zap.Int("max_open_conns", sqlDB.Stats().MaxOpenConnections))
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// applyPool применяет настройки пула; нулевые поля берутся из DefaultPool
func applyPool(sqlDB *sql.DB, pool PoolSettings) {
	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = DefaultPool.MaxOpenConns
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = DefaultPool.MaxIdleConns
	}
	if pool.MaxIdleConns > pool.MaxOpenConns {
		pool.MaxIdleConns = pool.MaxOpenConns
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = DefaultPool.ConnMaxLifetime
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(time.Minute)
}

// ClosePostgres закрывает соединение с PostgreSQL
func ClosePostgres(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
