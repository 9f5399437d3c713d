//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	"RouteSim/internal/data"
	"RouteSim/internal/server"
	"RouteSim/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Upstream, *conf.Summary, *conf.Simulation, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newMetricsRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		newSimulationDefaults,
		newUpstreamSettings,
		newAttemptLimiter,
		newConnectorRegistry,
		newSimulationScheduler,
		newApp,
	))
}
