package service

import (
	"context"
	"testing"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

func event(ruleID, noticeID string) rulesdom.AlertEvent {
	return rulesdom.AlertEvent{
		RuleID:    ruleID,
		RuleName:  "rule " + ruleID,
		NoticeID:  noticeID,
		MatchedAt: fixedNow.Add(-time.Minute),
	}
}

func TestEmit_ConsoleBooksOnce(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodConsole, IsActive: true})

	evs := []rulesdom.AlertEvent{event("r1", "N-1"), event("r1", "N-2")}
	if err := h.svc.Emit(context.Background(), evs); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if h.repo.deliveryCount() != 2 {
		t.Fatalf("deliveries = %d, want 2", h.repo.deliveryCount())
	}
	d, ok := h.repo.delivery("r1", "N-1", "d1")
	if !ok || d.Status != domain.DeliveryLogged {
		t.Fatalf("delivery = %+v, want logged", d)
	}
	if !d.EmittedAt.Equal(fixedNow) {
		t.Fatalf("EmittedAt = %v, want %v", d.EmittedAt, fixedNow)
	}

	// a re-run after a crash books nothing new
	if err := h.svc.Emit(context.Background(), evs); err != nil {
		t.Fatalf("Emit again: %v", err)
	}
	if h.repo.deliveryCount() != 2 {
		t.Fatalf("deliveries after re-run = %d, want 2", h.repo.deliveryCount())
	}
}

func TestEmit_ScopedDestinationFilters(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", RuleID: strPtr("r1"), Method: domain.MethodConsole, IsActive: true})

	evs := []rulesdom.AlertEvent{event("r1", "N-1"), event("r2", "N-2")}
	if err := h.svc.Emit(context.Background(), evs); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if h.repo.deliveryCount() != 1 {
		t.Fatalf("deliveries = %d, want just the scoped rule's", h.repo.deliveryCount())
	}
	if _, ok := h.repo.delivery("r1", "N-1", "d1"); !ok {
		t.Fatal("missing the scoped delivery")
	}
}

func TestEmit_CatchAllSeesEveryRule(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodConsole, IsActive: true})

	evs := []rulesdom.AlertEvent{event("r1", "N-1"), event("r2", "N-2")}
	if err := h.svc.Emit(context.Background(), evs); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if h.repo.deliveryCount() != 2 {
		t.Fatalf("deliveries = %d, want 2", h.repo.deliveryCount())
	}
}

func TestEmit_WebhookBookedNotShipped(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodWebhook, IsActive: true})

	if err := h.svc.Emit(context.Background(), []rulesdom.AlertEvent{event("r1", "N-1")}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	d, ok := h.repo.delivery("r1", "N-1", "d1")
	if !ok || d.Status != domain.DeliveryRecorded {
		t.Fatalf("delivery = %+v, want recorded", d)
	}
}

func TestEmit_InactiveDestinationIgnored(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodConsole, IsActive: false})

	if err := h.svc.Emit(context.Background(), []rulesdom.AlertEvent{event("r1", "N-1")}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if h.repo.deliveryCount() != 0 {
		t.Fatalf("deliveries = %d, want none", h.repo.deliveryCount())
	}
}

func TestEmit_UnknownMethodSkipped(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.Method("pigeon"), IsActive: true})

	if err := h.svc.Emit(context.Background(), []rulesdom.AlertEvent{event("r1", "N-1")}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if h.repo.deliveryCount() != 0 {
		t.Fatalf("deliveries = %d, want none for an unknown method", h.repo.deliveryCount())
	}
}

func TestEmit_EmptyBatch(t *testing.T) {
	t.Parallel()
	h := newHarness()

	if err := h.svc.Emit(context.Background(), nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(h.repo.activeCalls) != 0 {
		t.Fatal("an empty batch must not hit the repo")
	}
}

func TestEmit_LooksUpOncePerRule(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodConsole, IsActive: true})

	evs := []rulesdom.AlertEvent{event("r1", "N-1"), event("r1", "N-2"), event("r2", "N-3")}
	if err := h.svc.Emit(context.Background(), evs); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got := h.repo.activeCalls; len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Fatalf("activeCalls = %v, want one lookup per rule", got)
	}
}

func TestEmit_RecordFailureSurfaces(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedDest(domain.Destination{ID: "d1", Method: domain.MethodConsole, IsActive: true})
	h.repo.recordErr = perr.Newf(perr.ErrorCodeDB, "alerts: record delivery: boom")

	err := h.svc.Emit(context.Background(), []rulesdom.AlertEvent{event("r1", "N-1")})
	testkit.MustCode(t, err, perr.ErrorCodeDB)
}
