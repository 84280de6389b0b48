package cron

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"engine/services"
)

type Scheduler struct {
	cron  *cron.Cron
	sweep *services.SweepService
}

func NewScheduler(sweep *services.SweepService) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &Scheduler{
		cron:  c,
		sweep: sweep,
	}
}

// Start schedules the sweep pass. All deadline behavior (registration
// close, tournament start, auto-confirm, dispute deadlines, settlement
// retries) hangs off this one job.
func (s *Scheduler) Start() error {
	log.Println("Starting cron scheduler...")

	// Every 30 seconds; deadlines are minute-granular so this keeps
	// worst-case lag well under a minute.
	_, err := s.cron.AddFunc("*/30 * * * * *", s.runSweep)
	if err != nil {
		log.Printf("Error scheduling sweep job: %v", err)
		return err
	}

	s.cron.Start()
	log.Println("Cron scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping cron scheduler...")
	s.cron.Stop()
	log.Println("Cron scheduler stopped")
}

func (s *Scheduler) runSweep() {
	s.sweep.Run(context.Background())
}

// RunNow manually triggers a sweep pass (useful for testing).
func (s *Scheduler) RunNow() {
	log.Println("Manually triggering sweep pass...")
	s.sweep.Run(context.Background())
}
