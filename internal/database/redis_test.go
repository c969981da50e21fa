package database

import (
	"testing"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelAddrs(t *testing.T) {
	assert.Equal(t, []string{"s1:26379", "s2:26379", "s3:26379"},
		sentinelAddrs([]string{"s1:26379, s2:26379", " s3:26379 ", ""}))
	assert.Empty(t, sentinelAddrs(nil))
}

func TestRedisSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		RedisURL:           "redis://localhost:6379/0",
		RedisSentinelAddrs: []string{"s1:26379", "s2:26379"},
		RedisMasterName:    "mill-master",
		RedisMasterPass:    "master-secret",
		RedisSentinelPass:  "sentinel-secret",
		RedisPoolSize:      8,
	}

	settings := RedisSettingsFromConfig(cfg)
	assert.True(t, settings.useSentinel())

	opt, err := failoverOptions(settings)
	require.NoError(t, err)
	assert.Equal(t, "mill-master", opt.MasterName)
	assert.Equal(t, []string{"s1:26379", "s2:26379"}, opt.SentinelAddrs)
	assert.Equal(t, "master-secret", opt.Password)
	assert.Equal(t, "sentinel-secret", opt.SentinelPassword)
	assert.Equal(t, 8, opt.PoolSize)
	assert.Equal(t, 5*time.Second, opt.DialTimeout)
}

func TestSentinelNeedsMasterAndAddrs(t *testing.T) {
	assert.False(t, RedisSettings{SentinelAddrs: []string{"s1:26379"}}.useSentinel())
	assert.False(t, RedisSettings{SentinelAddrs: []string{" , "}, MasterName: "mymaster"}.useSentinel())

	_, err := failoverOptions(RedisSettings{MasterName: "mymaster"})
	assert.EqualError(t, err, "no Sentinel addresses provided")
}

func TestDirectOptions(t *testing.T) {
	opt, err := directOptions(RedisSettings{URL: "redis://:pw@cache.internal:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 20, opt.PoolSize)
	assert.Equal(t, 3, opt.MaxRetries)

	_, err = directOptions(RedisSettings{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(RedisSettings{URL: "::bad"}, nil)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}
