// Package biz contains the simulation engine: the controller state machine,
// the batch processor, the payment executor and the statistics aggregator.
// Repository interfaces for the external collaborators live here too.
package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewMetrics,
	NewCardSelector,
	NewPaymentExecutor,
	NewBatchProcessor,
	NewSimulationController,
	NewConnectorUsecase,
	wire.Bind(new(AttemptRunner), new(*PaymentExecutor)),
)
