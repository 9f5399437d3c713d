package main

import (
	"context"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	pkglog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// scheduledStartTimeout bounds the start call of a scheduled run, not the run itself.
const scheduledStartTimeout = 10 * time.Second

// runStarter is the part of the controller the scheduler drives.
type runStarter interface {
	Status() biz.Status
	Start(ctx context.Context, cfg *biz.SimulationConfig) error
}

// SimulationScheduler starts a run with the default configuration on a cron
// schedule. A tick is skipped unless the controller is idle.
// It is registered with the app as a transport server so it stops with it.
type SimulationScheduler struct {
	cron     *cron.Cron
	schedule string
	ctrl     runStarter
	log      *pkglog.LogHelper
}

// newSimulationScheduler 创建定时仿真任务
// Cron 表达式带秒字段：秒 分 时 日 月 周，例如 "0 0 */6 * * *"
// 未配置 schedule 时返回一个空调度器
func newSimulationScheduler(sim *conf.Simulation, ctrl *biz.SimulationController, logger log.Logger) (*SimulationScheduler, error) {
	var schedule string
	if sim != nil {
		schedule = sim.Schedule
	}
	return newScheduler(schedule, ctrl, logger)
}

func newScheduler(schedule string, ctrl runStarter, logger log.Logger) (*SimulationScheduler, error) {
	s := &SimulationScheduler{
		schedule: schedule,
		ctrl:     ctrl,
		log:      pkglog.NewLogHelper(logger),
	}
	if schedule == "" {
		return s, nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(schedule, s.tick); err != nil {
		return nil, err
	}
	s.cron = c
	return s, nil
}

// tick starts a run when the controller is idle.
func (s *SimulationScheduler) tick() {
	status := s.ctrl.Status()
	if status.State != biz.StateIdle {
		s.log.Scheduler("scheduled run skipped", "state", status.State, "run_id", status.RunID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), scheduledStartTimeout)
	defer cancel()

	if err := s.ctrl.Start(ctx, nil); err != nil {
		s.log.Errorw("msg", "scheduled run failed to start", "type", "scheduler", "error", err)
		return
	}
	s.log.Scheduler("scheduled run started", "run_id", s.ctrl.Status().RunID)
}

// Start implements transport.Server.
func (s *SimulationScheduler) Start(context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cron.Start()
	s.log.Scheduler("simulation schedule started", "schedule", s.schedule)
	return nil
}

// Stop implements transport.Server. It waits for a running tick to return.
func (s *SimulationScheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		s.log.Scheduler("simulation schedule stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
