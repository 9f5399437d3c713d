package data

import (
	"context"
	"errors"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultProgressTTL     = time.Hour
	progressPublishTimeout = 2 * time.Second
)

// ProgressPublisher implements biz.ProgressPublisher on Redis: every snapshot
// is published on ProgressChannel and cached as the latest snapshot of its run.
type ProgressPublisher struct {
	cache CacheClient
	ttl   time.Duration
	log   *plog.LogHelper
}

// NewProgressPublisher creates a progress publisher. Without Redis it only
// logs at debug level.
func NewProgressPublisher(c *conf.Data, cache CacheClient, logger log.Logger) *ProgressPublisher {
	ttl := defaultProgressTTL
	if c != nil && c.Redis != nil && c.Redis.ProgressTTL != nil && c.Redis.ProgressTTL.AsDuration() > 0 {
		ttl = c.Redis.ProgressTTL.AsDuration()
	}
	return &ProgressPublisher{
		cache: cache,
		ttl:   ttl,
		log:   plog.NewLogHelper(logger),
	}
}

// Publish implements biz.ProgressPublisher. Failures are logged and dropped.
func (p *ProgressPublisher) Publish(ctx context.Context, snapshot biz.ProgressSnapshot) {
	p.log.Progress(ctx, "progress",
		"state", string(snapshot.State),
		"processed", snapshot.Processed,
		"target", snapshot.Target,
	)
	if p.cache == nil || !p.cache.Available() || snapshot.RunID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), progressPublishTimeout)
	defer cancel()

	if err := p.cache.Set(ctx, LatestProgressKey(snapshot.RunID), snapshot, p.ttl); err != nil {
		p.log.Warnw("msg", "failed to cache progress snapshot", "type", "redis", "run_id", snapshot.RunID, "error", err)
	}
	if err := p.cache.Publish(ctx, ProgressChannel, snapshot); err != nil {
		p.log.Warnw("msg", "failed to publish progress snapshot", "type", "redis", "run_id", snapshot.RunID, "error", err)
	}
}

// Latest implements biz.ProgressReader. Unknown, expired and uncached runs
// all report a progress-not-found error.
func (p *ProgressPublisher) Latest(ctx context.Context, runID string) (biz.ProgressSnapshot, error) {
	var snapshot biz.ProgressSnapshot
	if p.cache == nil || !p.cache.Available() {
		return snapshot, biz.NewProgressNotFoundError(runID)
	}
	if err := p.cache.Get(ctx, LatestProgressKey(runID), &snapshot); err != nil {
		if errors.Is(err, ErrCacheNotFound) {
			return snapshot, biz.NewProgressNotFoundError(runID)
		}
		return snapshot, err
	}
	return snapshot, nil
}

// LatestProgressKey is the cache key of the latest snapshot of a run.
func LatestProgressKey(runID string) string {
	return BuildCacheKey(CacheKeyRun, runID, "latest")
}
