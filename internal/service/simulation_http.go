package service

import (
	"context"
	"encoding/json"
	"io"

	"RouteSim/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationSimulationStart    = "/routesim.v1.Simulation/Start"
	OperationSimulationPause    = "/routesim.v1.Simulation/Pause"
	OperationSimulationResume   = "/routesim.v1.Simulation/Resume"
	OperationSimulationStop     = "/routesim.v1.Simulation/Stop"
	OperationSimulationStatus   = "/routesim.v1.Simulation/Status"
	OperationSimulationStats    = "/routesim.v1.Simulation/Stats"
	OperationSimulationLogs     = "/routesim.v1.Simulation/Logs"
	OperationSimulationSummary  = "/routesim.v1.Simulation/Summary"
	OperationSimulationProgress = "/routesim.v1.Simulation/Progress"
	OperationConnectorsList     = "/routesim.v1.Connectors/List"
	OperationConnectorsToggle   = "/routesim.v1.Connectors/Toggle"
	OperationConnectorsRefresh  = "/routesim.v1.Connectors/Refresh"
)

const maxStartBody = 1 << 20

// RegisterSimulationHTTPServer mounts the control API under /v1.
func RegisterSimulationHTTPServer(s *http.Server, srv *SimulationService) {
	r := s.Route("/v1")
	r.POST("/simulation/start", simulationStartHandler(srv))
	r.POST("/simulation/pause", noInputHandler(OperationSimulationPause, srv.Pause))
	r.POST("/simulation/resume", noInputHandler(OperationSimulationResume, srv.Resume))
	r.POST("/simulation/stop", noInputHandler(OperationSimulationStop, srv.Stop))
	r.GET("/simulation/status", noInputHandler(OperationSimulationStatus, srv.Status))
	r.GET("/simulation/stats", noInputHandler(OperationSimulationStats, srv.Stats))
	r.GET("/simulation/logs", simulationLogsHandler(srv))
	r.GET("/simulation/summary", noInputHandler(OperationSimulationSummary, srv.Summary))
	r.GET("/simulation/runs/{id}/progress", simulationProgressHandler(srv))
	r.GET("/connectors", noInputHandler(OperationConnectorsList, srv.ListConnectors))
	r.POST("/connectors/refresh", noInputHandler(OperationConnectorsRefresh, srv.RefreshConnectors))
	r.POST("/connectors/{id}/toggle", connectorToggleHandler(srv))
}

// noInputHandler adapts a body-less operation, running it through the server middleware.
func noInputHandler[T any](operation string, call func(context.Context) (*T, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return call(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func simulationStartHandler(srv *SimulationService) http.HandlerFunc {
	return func(ctx http.Context) error {
		cfg, err := decodeStartConfig(ctx.Request().Body, srv.ctrl.DefaultConfig())
		if err != nil {
			return err
		}
		http.SetOperation(ctx, OperationSimulationStart)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Start(ctx, req.(*biz.SimulationConfig))
		})
		out, err := h(ctx, cfg)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

// decodeStartConfig overlays the JSON body on the defaults. An empty body
// yields nil so the controller uses its own defaults.
func decodeStartConfig(body io.Reader, defaults biz.SimulationConfig) (*biz.SimulationConfig, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxStartBody))
	if err != nil {
		return nil, errors.BadRequest(reasonInvalidArgument, "failed to read request body")
	}
	if len(raw) == 0 {
		return nil, nil
	}
	cfg := defaults
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.BadRequest(reasonInvalidArgument, "invalid simulation config: "+err.Error())
	}
	return &cfg, nil
}

func simulationLogsHandler(srv *SimulationService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in LogsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationSimulationLogs)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Logs(ctx, req.(*LogsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func simulationProgressHandler(srv *SimulationService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in ProgressRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationSimulationProgress)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Progress(ctx, req.(*ProgressRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func connectorToggleHandler(srv *SimulationService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in ToggleRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationConnectorsToggle)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ToggleConnector(ctx, req.(*ToggleRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
