package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

func newFixture(t *testing.T, clock func() time.Time) (*Service, *repository.Memory, repository.Lead) {
	t.Helper()
	store := repository.NewMemory(repository.WithClock(clock))
	lead, err := store.CreateLead(context.Background(), repository.CreateLeadParams{Name: "Ravi", Mobile: "+919876543210"})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return New(store, logger.NewNop()), store, lead
}

func TestAddNoteValidatesBodyAndType(t *testing.T) {
	svc, _, lead := newFixture(t, time.Now)
	ctx := context.Background()
	actor := domain.Actor{Name: "tester"}

	cases := []struct {
		name string
		req  transport.CreateLeadNoteRequest
	}{
		{"empty body", transport.CreateLeadNoteRequest{Body: "  <b></b> "}},
		{"too long", transport.CreateLeadNoteRequest{Body: strings.Repeat("a", maxNoteLength+1)}},
		{"system type", transport.CreateLeadNoteRequest{Body: "merged", Type: domain.NoteTypeSystem}},
		{"unknown type", transport.CreateLeadNoteRequest{Body: "hi", Type: "sms"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, lead.ID, tc.req, actor); !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := svc.Add(ctx, uuid.New(), transport.CreateLeadNoteRequest{Body: "hi"}, actor); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected unknown lead, got %v", err)
	}
}

func TestAddNoteDefaultsTypeAndTouchesLead(t *testing.T) {
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	current := base
	svc, store, lead := newFixture(t, func() time.Time { return current })
	ctx := context.Background()
	author := uuid.New()

	current = base.Add(2 * time.Hour)
	note, err := svc.Add(ctx, lead.ID, transport.CreateLeadNoteRequest{Body: "Asked for <i>brochure</i>"}, domain.Actor{UserID: &author})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if note.Type != domain.NoteTypeNote || note.Body != "Asked for brochure" || note.AuthorID == nil || *note.AuthorID != author {
		t.Fatalf("unexpected note %+v", note)
	}

	updated, _ := store.GetLead(ctx, lead.ID)
	if !updated.LastActivityAt.Equal(current) {
		t.Fatalf("expected last activity %s, got %s", current, updated.LastActivityAt)
	}

	list, err := svc.List(ctx, lead.ID)
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("expected one note, got %+v err=%v", list, err)
	}
}

func TestLogCallRejectsFutureAndKeepsLatestActivity(t *testing.T) {
	svc, store, lead := newFixture(t, time.Now)
	ctx := context.Background()
	actor := domain.Actor{Name: "tester"}

	future := time.Now().Add(time.Hour)
	if _, err := svc.LogCall(ctx, lead.ID, transport.LogCallRequest{CalledAt: &future}, actor); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected future call rejected, got %v", err)
	}
	if _, err := svc.LogCall(ctx, lead.ID, transport.LogCallRequest{DurationSeconds: -1}, actor); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected negative duration rejected, got %v", err)
	}

	before, _ := store.GetLead(ctx, lead.ID)
	past := before.LastActivityAt.Add(-24 * time.Hour)
	call, err := svc.LogCall(ctx, lead.ID, transport.LogCallRequest{DurationSeconds: 90, Outcome: "no answer", CalledAt: &past}, actor)
	if err != nil {
		t.Fatalf("log call: %v", err)
	}
	if !call.CalledAt.Equal(past.UTC()) || call.DurationSeconds != 90 {
		t.Fatalf("unexpected call %+v", call)
	}

	after, _ := store.GetLead(ctx, lead.ID)
	if !after.LastActivityAt.Equal(before.LastActivityAt) {
		t.Fatalf("expected backdated call to leave last activity alone, got %s", after.LastActivityAt)
	}

	calls, _ := svc.ListCalls(ctx, lead.ID)
	if len(calls.Items) != 1 {
		t.Fatalf("expected one call, got %d", len(calls.Items))
	}
}
