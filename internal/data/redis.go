package data

import (
	"context"
	"time"

	"RouteSim/internal/conf"
	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates the Redis client used for progress fan-out.
// It returns a nil client when Redis is not configured or unreachable, so the
// simulator runs without it (graceful degradation).
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := plog.NewLogHelper(logger)

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Warnw("msg", "Redis address is empty, progress fan-out disabled", "type", "redis")
		return nil, func() {}, nil
	}

	network := c.Redis.Network
	if network == "" {
		network = "tcp"
	}

	rdb := redis.NewClient(&redis.Options{
		Network:         network,
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		DB:              c.Redis.DB,
		PoolSize:        20,
		MinIdleConns:    2,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     c.Redis.ReadTimeout.AsDuration(),
		WriteTimeout:    c.Redis.WriteTimeout.AsDuration(),
		ConnMaxIdleTime: 5 * time.Minute,
	})

	// Health check: verify connection with ping
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnw("msg", "failed to connect to Redis, progress fan-out disabled",
			"type", "redis",
			"addr", c.Redis.Addr,
			"error", err,
		)
		_ = rdb.Close()
		return nil, func() {}, nil
	}

	helper.Redis("connected to Redis", "addr", c.Redis.Addr)

	cleanup := func() {
		helper.Redis("closing Redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorw("msg", "failed to close Redis client", "type", "redis", "error", err)
		}
	}

	return rdb, cleanup, nil
}
