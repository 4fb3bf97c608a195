package scheduling

import (
	"context"
	"testing"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *repository.Memory
	bus   *events.InMemoryBus
	lead  repository.Lead
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := repository.NewMemory(repository.WithClock(func() time.Time { return now }))
	lead, err := store.CreateLead(context.Background(), repository.CreateLeadParams{Name: "Ravi", Mobile: "+919876543210"})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	bus := events.NewInMemoryBus(logger.NewNop())
	svc := New(store, bus, logger.NewNop()).WithClock(func() time.Time { return now })
	return fixture{svc: svc, store: store, bus: bus, lead: lead}
}

func TestScheduleBumpsActivityAndPublishes(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	if _, err := f.store.UpdateLead(context.Background(), f.lead.ID, repository.UpdateLeadParams{AssignedUserID: &owner, AssignedUserIDSet: true}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	var got events.FollowUpScheduled
	f.bus.Subscribe(events.FollowUpScheduled{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = e.(events.FollowUpScheduled)
		return nil
	}))

	later := now.Add(36 * time.Hour)
	bumped := now.Add(time.Minute)
	f.svc.WithClock(func() time.Time { return bumped })
	resp, err := f.svc.Schedule(context.Background(), f.lead.ID, transport.ScheduleFollowUpRequest{ScheduledAt: later, Notes: "confirm site visit"}, domain.Actor{Name: "tester"})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	f.bus.Wait()

	if resp.Completed || !resp.ScheduledAt.Equal(later) {
		t.Fatalf("unexpected follow-up %+v", resp)
	}
	if got.FollowUpID != resp.ID || got.AssignedUserID == nil || *got.AssignedUserID != owner {
		t.Fatalf("expected event with owner, got %+v", got)
	}
	lead, _ := f.store.GetLead(context.Background(), f.lead.ID)
	if !lead.LastActivityAt.Equal(bumped) {
		t.Fatalf("expected last activity bumped to %s, got %s", bumped, lead.LastActivityAt)
	}
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Schedule(context.Background(), f.lead.ID, transport.ScheduleFollowUpRequest{}, domain.SystemActor()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected missing time rejected, got %v", err)
	}
	if _, err := f.svc.Schedule(context.Background(), uuid.New(), transport.ScheduleFollowUpRequest{ScheduledAt: now}, domain.SystemActor()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected unknown lead, got %v", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	followUp, err := f.svc.Schedule(ctx, f.lead.ID, transport.ScheduleFollowUpRequest{ScheduledAt: now.Add(time.Hour)}, domain.SystemActor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	first, err := f.svc.Complete(ctx, followUp.ID, transport.CompleteFollowUpRequest{}, domain.SystemActor())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !first.Completed || first.CompletedAt == nil || !first.CompletedAt.Equal(now) {
		t.Fatalf("expected completion at %s, got %+v", now, first)
	}

	f.svc.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	notes := "spoke to spouse"
	second, err := f.svc.Complete(ctx, followUp.ID, transport.CompleteFollowUpRequest{Notes: &notes}, domain.SystemActor())
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if !second.CompletedAt.Equal(now) || second.Notes != notes {
		t.Fatalf("expected original completion time with new notes, got %+v", second)
	}

	entries, _ := f.store.ListActivityLog(ctx, domain.EntityLead, f.lead.ID)
	completions := 0
	for _, e := range entries {
		if e.Action == domain.ActionFollowUpCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("expected one completion entry, got %d", completions)
	}

	if _, err := f.svc.Complete(ctx, uuid.New(), transport.CompleteFollowUpRequest{}, domain.SystemActor()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected unknown follow-up, got %v", err)
	}
}

func TestNextReportsOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.svc.Next(ctx, f.lead.ID)
	if err != nil || next.FollowUp != nil {
		t.Fatalf("expected nothing pending, got %+v err=%v", next, err)
	}

	early, _ := f.svc.Schedule(ctx, f.lead.ID, transport.ScheduleFollowUpRequest{ScheduledAt: now.Add(time.Hour)}, domain.SystemActor())
	if _, err := f.svc.Schedule(ctx, f.lead.ID, transport.ScheduleFollowUpRequest{ScheduledAt: now.Add(48 * time.Hour)}, domain.SystemActor()); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	next, _ = f.svc.Next(ctx, f.lead.ID)
	if next.FollowUp == nil || next.FollowUp.ID != early.ID || next.Overdue {
		t.Fatalf("expected earliest pending, not overdue, got %+v", next)
	}

	f.svc.WithClock(func() time.Time { return now.Add(3 * time.Hour) })
	next, _ = f.svc.Next(ctx, f.lead.ID)
	if !next.Overdue {
		t.Fatalf("expected overdue once the clock passes it")
	}
}
