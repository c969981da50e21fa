package database

import (
	"testing"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPool(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	applyPool(sqlDB, PoolFromConfig(&config.Config{DBMaxOpenConns: 4, DBMaxIdleConns: 10}))
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)

	applyPool(sqlDB, PoolSettings{})
	assert.Equal(t, DefaultPool.MaxOpenConns, sqlDB.Stats().MaxOpenConnections)
}

func TestConnectPostgresRequiresURL(t *testing.T) {
	_, err := ConnectPostgres("", DefaultPool, nil)
	assert.EqualError(t, err, "DATABASE_URL is empty")
}

func TestClosePostgresNil(t *testing.T) {
	assert.NoError(t, ClosePostgres(nil))
	assert.NoError(t, CloseRedis(nil))
}
