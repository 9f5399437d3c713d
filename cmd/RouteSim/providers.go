package main

import (
	"context"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	pkglog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

// connectorLoadTimeout bounds the startup listing of the merchant's connectors.
const connectorLoadTimeout = 30 * time.Second

// newMetricsRegistry creates the registry scraped at /metrics.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newSimulationDefaults converts the simulation section into run defaults.
// Failure injection, test cards and incidents are keyed by connector name.
func newSimulationDefaults(sim *conf.Simulation) biz.SimulationConfig {
	if sim == nil {
		sim = &conf.Simulation{}
	}
	cfg := biz.SimulationConfig{
		TotalAttempts:      sim.TotalAttempts,
		BatchSize:          sim.BatchSize,
		MinAggregatesSize:  sim.MinAggregatesSize,
		MaxAggregatesSize:  sim.MaxAggregatesSize,
		ExplorationPercent: sim.ExplorationPercent,
		BlockThreshold: biz.BlockThreshold{
			DurationMinutes: sim.BlockDurationMinutes,
			MaxTotalCount:   sim.BlockMaxCount,
		},
		FailurePercentages:  make(map[string]float64, len(sim.Connectors)),
		TestCards:           make(map[string]biz.TestCards, len(sim.Connectors)),
		Incidents:           make(map[string]bool, len(sim.Connectors)),
		SuccessBasedRouting: sim.SuccessBasedRouting,
		Amount:              sim.Amount,
		Currency:            sim.Currency,
	}

	for _, c := range sim.Connectors {
		name := c.Name
		if name == "" {
			name = c.Key()
		}
		if c.FailurePercent > 0 {
			cfg.FailurePercentages[name] = c.FailurePercent
		}
		if c.Incident {
			cfg.Incidents[name] = true
		}
		if c.SuccessCard != nil || c.FailureCard != nil {
			cfg.TestCards[name] = biz.TestCards{
				Success: toInstrument(c.SuccessCard),
				Failure: toInstrument(c.FailureCard),
			}
		}
	}
	return cfg
}

func toInstrument(card *conf.TestCard) *biz.Instrument {
	if card == nil {
		return nil
	}
	return &biz.Instrument{
		Number:     card.Number,
		ExpMonth:   card.ExpMonth,
		ExpYear:    card.ExpYear,
		HolderName: card.HolderName,
		CVC:        card.CVC,
	}
}

// newUpstreamSettings extracts what a run needs from the upstream section.
func newUpstreamSettings(up *conf.Upstream) biz.UpstreamSettings {
	if up == nil {
		return biz.UpstreamSettings{}
	}
	return biz.UpstreamSettings{
		BaseURL:    up.BaseURL,
		APIKey:     up.APIKey,
		ProfileID:  up.ProfileID,
		MerchantID: up.MerchantID,
	}
}

// newAttemptLimiter paces payment submissions; nil when unlimited.
func newAttemptLimiter(sim *conf.Simulation) *rate.Limiter {
	if sim == nil {
		return nil
	}
	return biz.NewAttemptLimiter(sim.MaxAttemptsPerSecond)
}

// newConnectorRegistry builds the registry from the static connector list,
// or from the merchant account when none is configured. A failed listing
// leaves the registry empty; POST /v1/connectors/refresh retries it.
func newConnectorRegistry(sim *conf.Simulation, lister biz.ConnectorLister, logger log.Logger) (*biz.ConnectorRegistry, error) {
	helper := pkglog.NewLogHelper(logger)

	if sim != nil && len(sim.Connectors) > 0 {
		connectors := make([]biz.Connector, 0, len(sim.Connectors))
		for _, c := range sim.Connectors {
			connectors = append(connectors, biz.Connector{
				ID:      c.Key(),
				Name:    c.Name,
				Label:   c.Label,
				Type:    c.Type,
				Enabled: !c.Disabled,
			})
		}
		helper.Connector("loaded static connectors", "count", len(connectors))
		return biz.NewConnectorRegistry(connectors)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectorLoadTimeout)
	defer cancel()

	listed, err := lister.ListConnectors(ctx)
	if err != nil {
		helper.Warnw("msg", "failed to load connectors from the merchant account, starting with an empty registry",
			"type", "connector",
			"error", err)
		return biz.NewConnectorRegistry(nil)
	}
	helper.Connector("loaded connectors from the merchant account", "count", len(listed))
	return biz.NewConnectorRegistry(listed)
}
