package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// Maintenance prunes old history rows on a cron schedule so the store does
// not grow without bound.
type Maintenance struct {
	history   repo.HistoryRepo
	retention time.Duration
	cron      *cron.Cron
}

// NewMaintenance creates the maintenance runner. Rows older than retention
// are deleted; retention <= 0 disables pruning.
func NewMaintenance(history repo.HistoryRepo, retention time.Duration) *Maintenance {
	return &Maintenance{
		history:   history,
		retention: retention,
		cron:      cron.New(),
	}
}

// Start schedules the nightly prune and runs the cron loop
func (m *Maintenance) Start() error {
	if m.retention <= 0 {
		log.Println("[Maintenance] history retention disabled")
		return nil
	}
	if _, err := m.cron.AddFunc("@daily", m.prune); err != nil {
		return err
	}
	m.cron.Start()
	log.Printf("[Maintenance] pruning history older than %v daily", m.retention)
	return nil
}

// Stop stops the cron loop and waits for a running job
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
	log.Println("[Maintenance] stopped")
}

func (m *Maintenance) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := m.history.CleanupOld(ctx, time.Now().Add(-m.retention))
	if err != nil {
		log.Printf("[Maintenance] history cleanup: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Maintenance] removed %d old history rows", deleted)
	}
}
