package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler drives the controller on a fixed poll delay.
type Scheduler struct {
	Cron       *cron.Cron
	Controller *Controller
	Interval   time.Duration

	chain cron.Chain
	log   *logrus.Entry
}

// NewScheduler creates a new Scheduler. Ticks that arrive while a cycle is
// still running are skipped.
func NewScheduler(ctrl *Controller, interval time.Duration) *Scheduler {
	log := logrus.WithField("component", "scheduler")
	cronLog := cron.PrintfLogger(log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Controller: ctrl,
		Interval:   interval,
		chain:      cron.NewChain(cron.Recover(cronLog)),
		log:        log,
	}
}

// Run executes one cycle immediately and then one per interval until ctx is
// cancelled or a cycle escalates. Cancelling ctx never interrupts a cycle in
// flight: Run waits for it to finish. The escalation error is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", s.Interval)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cycleCtx := context.WithoutCancel(ctx)
	fatal := make(chan error, 1)
	tick := func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Controller.RunCycle(cycleCtx); err != nil {
			select {
			case fatal <- err:
			default:
			}
			cancel()
		}
	}

	schedule := fmt.Sprintf("@every %s", s.Interval)
	if _, err := s.Cron.AddFunc(schedule, tick); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}

	s.chain.Then(cron.FuncJob(tick)).Run()
	s.Cron.Start()
	s.log.Infof("scheduler started, polling every %s", s.Interval)

	<-ctx.Done()
	s.Stop()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunOnce executes a single cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	_, err := s.Controller.RunCycle(ctx)
	return err
}
