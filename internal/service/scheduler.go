package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// ConfigKey identifies one scheduled configuration
type ConfigKey struct {
	Kind domain.ResponderKind
	ID   int64
}

type timerHandle struct {
	timer    *time.Timer
	interval time.Duration // last interval known to be good
}

// TimedScheduler keeps one recurring timer per timed configuration. A timer
// re-arms only after its firing's fan-out completes, and only while the
// configuration is still enabled; disarming cancels deterministically.
type TimedScheduler struct {
	pipeline *MessagePipeline
	resolver repo.ConfigResolver

	mu      sync.Mutex
	handles map[ConfigKey]*timerHandle
	stopped bool
}

// NewTimedScheduler creates an empty scheduler
func NewTimedScheduler(pipeline *MessagePipeline, resolver repo.ConfigResolver) *TimedScheduler {
	return &TimedScheduler{
		pipeline: pipeline,
		resolver: resolver,
		handles:  make(map[ConfigKey]*timerHandle),
	}
}

// Arm schedules the configuration's timer. An already-armed config is
// re-armed at the new interval.
func (s *TimedScheduler) Arm(cfg *domain.ResponderConfig) {
	if !cfg.Triggers.Timed || cfg.Triggers.TimedInterval <= 0 || !cfg.Enabled {
		return
	}
	key := ConfigKey{Kind: cfg.Kind, ID: cfg.ID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if h, ok := s.handles[key]; ok {
		h.timer.Stop()
	}
	s.armLocked(key, cfg.Triggers.TimedInterval)
	log.Printf("[Scheduler] armed %s config %d every %v", key.Kind, key.ID, cfg.Triggers.TimedInterval)
}

// Disarm cancels the configuration's timer, if any
func (s *TimedScheduler) Disarm(kind domain.ResponderKind, id int64) {
	key := ConfigKey{Kind: kind, ID: id}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[key]; ok {
		h.timer.Stop()
		delete(s.handles, key)
		log.Printf("[Scheduler] disarmed %s config %d", key.Kind, key.ID)
	}
}

// Stop cancels every timer. The scheduler cannot be restarted.
func (s *TimedScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, h := range s.handles {
		h.timer.Stop()
		delete(s.handles, key)
	}
	log.Println("[Scheduler] stopped")
}

// armLocked installs the timer; callers hold s.mu.
func (s *TimedScheduler) armLocked(key ConfigKey, interval time.Duration) {
	h := &timerHandle{interval: interval}
	h.timer = time.AfterFunc(interval, func() { s.fire(key) })
	s.handles[key] = h
}

// fire runs one tick. The configuration is re-read from storage so edits
// take effect on the next firing; a read failure re-arms at the previous
// interval instead of stalling the timer.
func (s *TimedScheduler) fire(key ConfigKey) {
	s.mu.Lock()
	h, ok := s.handles[key]
	s.mu.Unlock()
	if !ok {
		return // disarmed while the timer was firing
	}

	cfg, err := s.resolver.Get(context.Background(), key.Kind, key.ID)
	if err != nil {
		log.Printf("[Scheduler] re-read %s config %d: %v, keeping interval %v", key.Kind, key.ID, err, h.interval)
		s.rearm(key, h.interval)
		return
	}
	if cfg == nil || !cfg.Enabled || !cfg.Triggers.Timed || cfg.Triggers.TimedInterval <= 0 {
		s.Disarm(key.Kind, key.ID)
		return
	}

	s.pipeline.RunTimed(context.Background(), cfg)

	// Re-arm after the fan-out has fully completed.
	s.rearm(key, cfg.Triggers.TimedInterval)
}

func (s *TimedScheduler) rearm(key ConfigKey, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.handles[key]; !ok {
		return // disarmed during the firing
	}
	s.armLocked(key, interval)
}
