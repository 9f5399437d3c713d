// Package data provides data access layer implementations: HTTP clients for
// the payments API, the success-rate router and the summary service, plus
// the optional Redis progress fan-out and MySQL audit trail.
package data

import (
	"net/http"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	"RouteSim/pkg/transport"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
	NewCacheClient,
	NewProgressPublisher,
	NewAuditLogger,
	NewRoutingClient,
	NewPaymentClient,
	NewConnectorClient,
	NewSummaryClient,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(biz.RoutingClient), new(*RoutingClient)),
	wire.Bind(new(biz.PaymentGateway), new(*PaymentClient)),
	wire.Bind(new(biz.ConnectorLister), new(*ConnectorClient)),
	wire.Bind(new(biz.Summarizer), new(*SummaryClient)),
	wire.Bind(new(biz.ProgressPublisher), new(*ProgressPublisher)),
	wire.Bind(new(biz.ProgressReader), new(*ProgressPublisher)),
	wire.Bind(new(biz.AuditLogger), new(*AuditLoggerImpl)),
)

const defaultUpstreamTimeout = 30 * time.Second

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is nil when Redis is disabled
	redisClient *redis.Client
	// db is nil when the audit database is disabled
	db *gorm.DB
	// httpClient is shared by every upstream client
	httpClient *http.Client
	upstream   *conf.Upstream
}

// NewData creates a new Data instance with all data layer dependencies.
// Missing Redis or MySQL does not prevent application startup.
func NewData(_ *conf.Data, up *conf.Upstream, logger log.Logger, rdb *redis.Client, db *gorm.DB) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if up == nil {
		up = &conf.Upstream{}
	}
	timeout := defaultUpstreamTimeout
	if up.Timeout != nil && up.Timeout.AsDuration() > 0 {
		timeout = up.Timeout.AsDuration()
	}

	client, err := transport.CreateHTTPClient(up.ProxyURL, timeout)
	if err != nil {
		return nil, nil, err
	}
	if up.ProxyURL != "" {
		helper.Infow("msg", "upstream calls go through proxy", "proxy", up.ProxyURL)
	}

	d := &Data{
		redisClient: rdb,
		db:          db,
		httpClient:  client,
		upstream:    up,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		client.CloseIdleConnections()
	}

	return d, cleanup, nil
}
