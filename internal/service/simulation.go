package service

import (
	"context"

	"RouteSim/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultLogsLimit = 100
	maxLogsLimit     = 1000

	reasonInvalidArgument = "INVALID_ARGUMENT"
)

// LogsRequest pages through the outcome log.
type LogsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// LogsReply is one page of the outcome log.
type LogsReply struct {
	Logs   []biz.AttemptOutcome `json:"logs"`
	Total  int                  `json:"total"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
}

// ToggleRequest enables or disables one connector.
type ToggleRequest struct {
	ID      string `json:"id"`
	Enabled *bool  `json:"enabled"`
}

// ConnectorsReply lists the registry.
type ConnectorsReply struct {
	Connectors []biz.Connector `json:"connectors"`
}

// ProgressRequest names a run.
type ProgressRequest struct {
	RunID string `json:"id"`
}

// SimulationService implements the control API.
type SimulationService struct {
	ctrl       *biz.SimulationController
	connectors *biz.ConnectorUsecase
	progress   biz.ProgressReader
	logger     *log.Helper
}

// NewSimulationService creates a new SimulationService instance.
func NewSimulationService(ctrl *biz.SimulationController, connectors *biz.ConnectorUsecase, progress biz.ProgressReader, logger log.Logger) *SimulationService {
	return &SimulationService{
		ctrl:       ctrl,
		connectors: connectors,
		progress:   progress,
		logger:     log.NewHelper(logger),
	}
}

// Start begins a run. A nil cfg runs with the defaults.
func (s *SimulationService) Start(ctx context.Context, cfg *biz.SimulationConfig) (*biz.Status, error) {
	s.logger.Infow("msg", "Start called", "custom_config", cfg != nil)

	if err := s.ctrl.Start(ctx, cfg); err != nil {
		s.logger.Warnw("msg", "failed to start simulation", "error", err)
		return nil, err
	}
	status := s.ctrl.Status()
	return &status, nil
}

// Pause suspends the running simulation.
func (s *SimulationService) Pause(ctx context.Context) (*biz.Status, error) {
	if err := s.ctrl.Pause(ctx); err != nil {
		return nil, err
	}
	status := s.ctrl.Status()
	return &status, nil
}

// Resume continues a paused simulation.
func (s *SimulationService) Resume(ctx context.Context) (*biz.Status, error) {
	if err := s.ctrl.Resume(ctx); err != nil {
		return nil, err
	}
	status := s.ctrl.Status()
	return &status, nil
}

// Stop ends the current run.
func (s *SimulationService) Stop(ctx context.Context) (*biz.Status, error) {
	if err := s.ctrl.Stop(ctx); err != nil {
		return nil, err
	}
	status := s.ctrl.Status()
	return &status, nil
}

// Status reports the controller state.
func (s *SimulationService) Status(_ context.Context) (*biz.Status, error) {
	status := s.ctrl.Status()
	return &status, nil
}

// Stats returns the statistics snapshot of the current or last run.
func (s *SimulationService) Stats(_ context.Context) (*biz.StatsSnapshot, error) {
	snap := s.ctrl.Stats()
	return &snap, nil
}

// Logs returns a page of the outcome log.
func (s *SimulationService) Logs(_ context.Context, req *LogsRequest) (*LogsReply, error) {
	if req.Offset < 0 || req.Limit < 0 {
		return nil, errors.BadRequest(reasonInvalidArgument, "offset and limit must be >= 0")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultLogsLimit
	}
	if limit > maxLogsLimit {
		limit = maxLogsLimit
	}

	logs, total := s.ctrl.Logs(req.Offset, limit)
	if logs == nil {
		logs = []biz.AttemptOutcome{}
	}
	return &LogsReply{Logs: logs, Total: total, Offset: req.Offset, Limit: limit}, nil
}

// Summary returns the end-of-run summary of the last run.
func (s *SimulationService) Summary(_ context.Context) (*biz.RunSummary, error) {
	summary := s.ctrl.Summary()
	return &summary, nil
}

// Progress returns the last published progress snapshot of a run.
func (s *SimulationService) Progress(ctx context.Context, req *ProgressRequest) (*biz.ProgressSnapshot, error) {
	if req.RunID == "" {
		return nil, errors.BadRequest(reasonInvalidArgument, "run id is required")
	}
	snapshot, err := s.progress.Latest(ctx, req.RunID)
	if err != nil {
		if !biz.IsProgressNotFound(err) {
			s.logger.Errorw("msg", "failed to read progress", "run_id", req.RunID, "error", err)
		}
		return nil, err
	}
	return &snapshot, nil
}

// ListConnectors returns the registry.
func (s *SimulationService) ListConnectors(_ context.Context) (*ConnectorsReply, error) {
	return &ConnectorsReply{Connectors: s.connectors.List()}, nil
}

// ToggleConnector enables or disables one connector.
func (s *SimulationService) ToggleConnector(_ context.Context, req *ToggleRequest) (*biz.Connector, error) {
	if req.Enabled == nil {
		return nil, errors.BadRequest(reasonInvalidArgument, "enabled is required")
	}
	c, err := s.connectors.Toggle(req.ID, *req.Enabled)
	if err != nil {
		if !biz.IsConnectorNotFound(err) {
			s.logger.Errorw("msg", "failed to toggle connector", "id", req.ID, "error", err)
		}
		return nil, err
	}
	return &c, nil
}

// RefreshConnectors reloads the registry from the merchant account.
func (s *SimulationService) RefreshConnectors(ctx context.Context) (*ConnectorsReply, error) {
	connectors, err := s.connectors.Refresh(ctx)
	if err != nil {
		s.logger.Warnw("msg", "failed to refresh connectors", "error", err)
		return nil, err
	}
	return &ConnectorsReply{Connectors: connectors}, nil
}
