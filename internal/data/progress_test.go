package data

import (
	"context"
	"testing"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func setupProgressPublisher(t *testing.T) (*ProgressPublisher, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := &conf.Data{Redis: &conf.Redis{ProgressTTL: durationpb.New(10 * time.Minute)}}
	return NewProgressPublisher(c, NewCacheClient(rdb), log.DefaultLogger), mr, rdb
}

func TestProgressPublisher_PublishAndLatest(t *testing.T) {
	publisher, mr, rdb := setupProgressPublisher(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, ProgressChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	snapshot := biz.ProgressSnapshot{
		RunID:              "run-1",
		State:              biz.StateRunning,
		Processed:          20,
		Target:             100,
		Batch:              2,
		TotalSuccessful:    15,
		TotalFailed:        5,
		OverallSuccessRate: 75,
		UpdatedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	publisher.Publish(ctx, snapshot)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"run_id":"run-1"`)

	assert.Equal(t, 10*time.Minute, mr.TTL(LatestProgressKey("run-1")))

	latest, err := publisher.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot, latest)
}

func TestProgressPublisher_LatestOverwrites(t *testing.T) {
	publisher, _, _ := setupProgressPublisher(t)
	ctx := context.Background()

	publisher.Publish(ctx, biz.ProgressSnapshot{RunID: "run-1", Processed: 10})
	publisher.Publish(ctx, biz.ProgressSnapshot{RunID: "run-1", Processed: 20})

	latest, err := publisher.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), latest.Processed)
}

func TestProgressPublisher_NotFound(t *testing.T) {
	publisher, mr, _ := setupProgressPublisher(t)
	ctx := context.Background()

	_, err := publisher.Latest(ctx, "missing")
	assert.True(t, biz.IsProgressNotFound(err))

	// Expired snapshots are gone too
	publisher.Publish(ctx, biz.ProgressSnapshot{RunID: "run-2"})
	mr.FastForward(11 * time.Minute)
	_, err = publisher.Latest(ctx, "run-2")
	assert.True(t, biz.IsProgressNotFound(err))
}

func TestProgressPublisher_WithoutRedis(t *testing.T) {
	publisher := NewProgressPublisher(nil, NewCacheClient(nil), log.DefaultLogger)
	assert.Equal(t, defaultProgressTTL, publisher.ttl)

	assert.NotPanics(t, func() {
		publisher.Publish(context.Background(), biz.ProgressSnapshot{RunID: "run-1"})
	})

	_, err := publisher.Latest(context.Background(), "run-1")
	assert.True(t, biz.IsProgressNotFound(err))
}

func TestProgressPublisher_RedisDown(t *testing.T) {
	publisher, mr, _ := setupProgressPublisher(t)
	mr.Close()

	// Publishing never fails the caller
	assert.NotPanics(t, func() {
		publisher.Publish(context.Background(), biz.ProgressSnapshot{RunID: "run-1"})
	})

	_, err := publisher.Latest(context.Background(), "run-1")
	require.Error(t, err)
	assert.False(t, biz.IsProgressNotFound(err))
}
