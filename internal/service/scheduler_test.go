package service

import (
	"errors"
	"testing"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

func timedConfig(interval time.Duration) *domain.ResponderConfig {
	cfg := testConfig(domain.KindPreset, domain.ModeStandard)
	cfg.Triggers.Timed = true
	cfg.Triggers.TimedInterval = interval
	cfg.Triggers.Monitor = &domain.MonitorSettings{
		Completion: domain.CompletionSettings{Model: "gpt-4o-mini", APIKey: "k"},
		Keyword:    "yes",
		UserPrompt: "anything to say?",
	}
	return cfg
}

func sentCount(d *stubDispatcher) int {
	texts, ops, voices := d.sent()
	return len(texts) + len(ops) + len(voices)
}

func TestSchedulerFiresAndRearms(t *testing.T) {
	cfg := timedConfig(20 * time.Millisecond)
	resolver := &stubResolver{
		configs:  map[domain.ResponderKind]*domain.ResponderConfig{domain.KindPreset: cfg},
		contexts: []domain.ContextKey{{ChatType: domain.ChatTypeGroup, ChatID: "g1"}},
	}
	completion := &stubCompletion{reply: "yes"}
	dispatcher := &stubDispatcher{}
	p := newTestPipeline(resolver, completion, &stubHistory{}, dispatcher)

	s := NewTimedScheduler(p, resolver)
	defer s.Stop()
	s.Arm(cfg)

	deadline := time.Now().Add(2 * time.Second)
	for sentCount(dispatcher) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sentCount(dispatcher); got < 2 {
		t.Fatalf("sends = %d, want at least 2 firings", got)
	}
}

func TestSchedulerDisarmStopsFiring(t *testing.T) {
	cfg := timedConfig(20 * time.Millisecond)
	resolver := &stubResolver{
		configs:  map[domain.ResponderKind]*domain.ResponderConfig{domain.KindPreset: cfg},
		contexts: []domain.ContextKey{{ChatType: domain.ChatTypeGroup, ChatID: "g1"}},
	}
	completion := &stubCompletion{reply: "yes"}
	dispatcher := &stubDispatcher{}
	p := newTestPipeline(resolver, completion, &stubHistory{}, dispatcher)

	s := NewTimedScheduler(p, resolver)
	defer s.Stop()
	s.Arm(cfg)

	deadline := time.Now().Add(2 * time.Second)
	for sentCount(dispatcher) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	s.Disarm(cfg.Kind, cfg.ID)
	after := sentCount(dispatcher)
	time.Sleep(100 * time.Millisecond)
	if got := sentCount(dispatcher); got != after {
		t.Fatalf("sends grew from %d to %d after disarm", after, got)
	}
}

func TestSchedulerDropsDisabledConfig(t *testing.T) {
	cfg := timedConfig(10 * time.Millisecond)
	resolver := &stubResolver{
		configs:  map[domain.ResponderKind]*domain.ResponderConfig{domain.KindPreset: cfg},
		contexts: []domain.ContextKey{{ChatType: domain.ChatTypeGroup, ChatID: "g1"}},
	}
	completion := &stubCompletion{reply: "yes"}
	dispatcher := &stubDispatcher{}
	p := newTestPipeline(resolver, completion, &stubHistory{}, dispatcher)

	s := NewTimedScheduler(p, resolver)
	defer s.Stop()
	s.Arm(cfg)

	// the re-read on the next tick sees the config disabled
	disabled := *cfg
	disabled.Enabled = false
	resolver.setConfig(domain.KindPreset, &disabled)

	time.Sleep(100 * time.Millisecond)
	if got := sentCount(dispatcher); got != 0 {
		t.Fatalf("disabled config still fired %d times", got)
	}

	s.mu.Lock()
	_, armed := s.handles[ConfigKey{Kind: cfg.Kind, ID: cfg.ID}]
	s.mu.Unlock()
	if armed {
		t.Fatal("disabled config left an armed timer")
	}
}

func TestSchedulerArmIgnoresNonTimedConfig(t *testing.T) {
	cfg := testConfig(domain.KindPreset, domain.ModeStandard)
	resolver := &stubResolver{configs: map[domain.ResponderKind]*domain.ResponderConfig{domain.KindPreset: cfg}}
	p := newTestPipeline(resolver, &stubCompletion{}, &stubHistory{}, &stubDispatcher{})

	s := NewTimedScheduler(p, resolver)
	defer s.Stop()
	s.Arm(cfg)

	s.mu.Lock()
	n := len(s.handles)
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("handles = %d, want 0", n)
	}
}

func TestSchedulerRecoversAfterReadFailure(t *testing.T) {
	cfg := timedConfig(20 * time.Millisecond)
	resolver := &stubResolver{
		configs:  map[domain.ResponderKind]*domain.ResponderConfig{domain.KindPreset: cfg},
		contexts: []domain.ContextKey{{ChatType: domain.ChatTypeGroup, ChatID: "g1"}},
	}
	completion := &stubCompletion{reply: "yes"}
	dispatcher := &stubDispatcher{}
	p := newTestPipeline(resolver, completion, &stubHistory{}, dispatcher)

	s := NewTimedScheduler(p, resolver)
	defer s.Stop()
	resolver.setErr(errors.New("storage unavailable"))
	s.Arm(cfg)

	// failing ticks must re-arm without running the pipeline
	time.Sleep(100 * time.Millisecond)
	if got := sentCount(dispatcher); got != 0 {
		t.Fatalf("config fired %d times while re-reads were failing", got)
	}
	s.mu.Lock()
	_, armed := s.handles[ConfigKey{Kind: cfg.Kind, ID: cfg.ID}]
	s.mu.Unlock()
	if !armed {
		t.Fatal("timer dropped on re-read failure")
	}

	resolver.setErr(nil)
	deadline := time.Now().Add(2 * time.Second)
	for sentCount(dispatcher) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sentCount(dispatcher); got < 1 {
		t.Fatal("timer never recovered after the failure cleared")
	}
}
