package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSettings - параметры подключения к блокноту таймеров.
// Если заданы SentinelAddrs и MasterName, используется Sentinel,
// иначе прямое подключение через URL.
type RedisSettings struct {
	URL              string
	SentinelAddrs    []string
	MasterName       string
	Password         string // пароль мастера при работе через Sentinel
	SentinelPassword string
	PoolSize         int
}

// RedisSettingsFromConfig собирает параметры из переменных окружения
func RedisSettingsFromConfig(cfg *config.Config) RedisSettings {
	return RedisSettings{
		URL:              cfg.RedisURL,
		SentinelAddrs:    cfg.RedisSentinelAddrs,
		MasterName:       cfg.RedisMasterName,
		Password:         cfg.RedisMasterPass,
		SentinelPassword: cfg.RedisSentinelPass,
		PoolSize:         cfg.RedisPoolSize,
	}
}

func (s RedisSettings) useSentinel() bool {
	return len(sentinelAddrs(s.SentinelAddrs)) > 0 && s.MasterName != ""
}

func (s RedisSettings) poolSize() int {
	if s.PoolSize > 0 {
		return s.PoolSize
	}
	return 20
}

// ConnectRedis подключается к Redis и проверяет соединение
func ConnectRedis(settings RedisSettings, log *zap.Logger) (*redis.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		client *redis.Client
		mode   string
	)
	if settings.useSentinel() {
		opt, err := failoverOptions(settings)
		if err != nil {
			return nil, err
		}
		client = redis.NewFailoverClient(opt)
		mode = "sentinel"
	} else {
		opt, err := directOptions(settings)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opt)
		mode = "direct"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (%s): %w", mode, err)
	}

	if mode == "sentinel" {
		log.Info("✅ Redis Sentinel connected", zap.String("master", settings.MasterName), zap.Strings("sentinels", sentinelAddrs(settings.SentinelAddrs)))
	} else {
		log.Info("✅ Redis connected (direct connection)")
	}
	return client, nil
}

func directOptions(settings RedisSettings) (*redis.Options, error) {
	opt, err := redis.ParseURL(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.PoolSize = settings.poolSize()
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	return opt, nil
}

func failoverOptions(settings RedisSettings) (*redis.FailoverOptions, error) {
	addrs := sentinelAddrs(settings.SentinelAddrs)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no Sentinel addresses provided")
	}
	return &redis.FailoverOptions{
		MasterName:       settings.MasterName,
		SentinelAddrs:    addrs,
		Password:         settings.Password,
		SentinelPassword: settings.SentinelPassword,
		PoolSize:         settings.poolSize(),
		MinIdleConns:     2,
		MaxRetries:       3,
		DialTimeout:      5 * time.Second,
		ReadTimeout:      3 * time.Second,
		WriteTimeout:     3 * time.Second,
	}, nil
}

// sentinelAddrs принимает как список, так и одну строку через запятую
func sentinelAddrs(raw []string) []string {
	var addrs []string
	for _, entry := range raw {
		for _, addr := range strings.Split(entry, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				addrs = append(addrs, addr)
			}
		}
	}
	return addrs
}

// CloseRedis закрывает подключение к Redis
func CloseRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
