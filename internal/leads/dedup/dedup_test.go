package dedup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func lead(mobile string, email *string) repository.Lead {
	return repository.Lead{ID: uuid.New(), Mobile: mobile, Email: email}
}

func TestFindDuplicateGroupsSharedEmail(t *testing.T) {
	a := lead("+911111111111", strPtr("a@b.com"))
	b := lead("+912222222222", strPtr("a@b.com"))
	c := lead("+913333333333", nil)

	groups := FindDuplicateGroups([]repository.Lead{a, b, c})
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Primary.ID != a.ID || len(groups[0].Matches) != 1 || groups[0].Matches[0].ID != b.ID {
		t.Fatalf("unexpected group %+v", groups[0])
	}
}

func TestFindDuplicateGroupsIgnoresMissingEmail(t *testing.T) {
	a := lead("+911111111111", nil)
	b := lead("+912222222222", nil)
	empty := lead("+913333333333", strPtr(""))
	empty2 := lead("+914444444444", strPtr(""))

	if groups := FindDuplicateGroups([]repository.Lead{a, b, empty, empty2}); len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}

func TestFindDuplicateGroupsIsPartition(t *testing.T) {
	shared := "+919876543210"
	leads := []repository.Lead{
		lead(shared, strPtr("x@example.com")),
		lead(shared, nil),
		lead("+910000000001", strPtr("x@example.com")),
		lead("+910000000002", strPtr("y@example.com")),
		lead("+910000000002", strPtr("z@example.com")),
		lead("+910000000003", strPtr("z@example.com")),
	}

	groups := FindDuplicateGroups(leads)
	seen := map[uuid.UUID]int{}
	for _, g := range groups {
		seen[g.Primary.ID]++
		for _, m := range g.Matches {
			seen[m.ID]++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("lead %s appears %d times", id, count)
		}
	}
	if len(groups) != 2 || len(groups[0].Matches) != 2 {
		t.Fatalf("unexpected grouping %+v", groups)
	}
}

func TestGuardMobilePrecedence(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	existing, err := store.CreateLead(ctx, repository.CreateLeadParams{Name: "A", Mobile: "9876543210", Email: strPtr("a@example.com")})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	other, _ := store.CreateLead(ctx, repository.CreateLeadParams{Name: "B", Mobile: "1111111111", Email: strPtr("b@example.com")})

	guard := NewGuard(store)

	err = guard.Check(ctx, "9876543210", strPtr("b@example.com"), nil)
	if apperr.DuplicateField(err) != domain.FieldMobile {
		t.Fatalf("expected mobile duplicate, got %v", err)
	}
	appErr, _ := apperr.As(err)
	if details := appErr.Details.(apperr.DuplicateDetails); details.ExistingLeadID != existing.ID {
		t.Fatalf("expected existing lead %s, got %s", existing.ID, details.ExistingLeadID)
	}

	err = guard.Check(ctx, "2222222222", strPtr("b@example.com"), nil)
	if apperr.DuplicateField(err) != domain.FieldEmail {
		t.Fatalf("expected email duplicate, got %v", err)
	}

	if err := guard.Check(ctx, "1111111111", strPtr("b@example.com"), &other.ID); err != nil {
		t.Fatalf("expected self excluded, got %v", err)
	}
}

func TestGuardTranslateStoreViolation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	existing, _ := store.CreateLead(ctx, repository.CreateLeadParams{Name: "A", Mobile: "9876543210"})

	guard := NewGuard(store)
	_, writeErr := store.CreateLead(ctx, repository.CreateLeadParams{Name: "B", Mobile: "9876543210"})

	err := guard.Translate(ctx, writeErr, "9876543210", nil, nil)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if appErr.Details.(apperr.DuplicateDetails).ExistingLeadID != existing.ID {
		t.Fatalf("expected existing id resolved")
	}

	infra := guard.Translate(ctx, errors.New("connection reset"), "1", nil, nil)
	if !apperr.Is(infra, apperr.KindInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", infra)
	}
}

func seedLeadWithHistory(t *testing.T, store *repository.Memory, mobile string, followUps, notes int) repository.Lead {
	t.Helper()
	ctx := context.Background()
	l, err := store.CreateLead(ctx, repository.CreateLeadParams{Name: "Lead " + mobile, Mobile: mobile})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	for i := 0; i < followUps; i++ {
		if _, err := store.CreateFollowUp(ctx, repository.CreateFollowUpParams{LeadID: l.ID, ScheduledAt: time.Now().Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("seed follow-up: %v", err)
		}
	}
	for i := 0; i < notes; i++ {
		if _, err := store.CreateNote(ctx, repository.CreateNoteParams{LeadID: l.ID, Type: domain.NoteTypeNote, Body: "called back"}); err != nil {
			t.Fatalf("seed note: %v", err)
		}
	}
	return l
}

func TestMergePreservesFollowUpsAndDeletesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	primary := seedLeadWithHistory(t, store, "+911", 1, 0)
	dupA := seedLeadWithHistory(t, store, "+912", 2, 1)
	dupB := seedLeadWithHistory(t, store, "+913", 3, 2)

	merger := NewMerger(store, logger.NewNop())
	_, result, err := merger.Merge(ctx, primary.ID, []uuid.UUID{dupA.ID, dupB.ID}, "tester")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.Err() != nil || len(result.Succeeded()) != 2 {
		t.Fatalf("expected full success, got %+v", result)
	}

	followUps, _ := store.ListFollowUps(ctx, primary.ID)
	if len(followUps) != 1+2+3 {
		t.Fatalf("expected 6 follow-ups on primary, got %d", len(followUps))
	}

	notes, _ := store.ListNotes(ctx, primary.ID)
	if len(notes) != 3 {
		t.Fatalf("expected 3 copied notes, got %d", len(notes))
	}
	for _, n := range notes {
		if !strings.HasPrefix(n.Body, domain.MergedNotePrefix) {
			t.Fatalf("expected merged prefix, got %q", n.Body)
		}
	}

	for _, id := range []uuid.UUID{dupA.ID, dupB.ID} {
		if _, err := store.GetLead(ctx, id); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected duplicate %s deleted, got %v", id, err)
		}
	}

	entries, _ := store.ListActivityLog(ctx, domain.EntityLead, primary.ID)
	if len(entries) != 1 || entries[0].Action != domain.ActionLeadsMerged || !strings.Contains(entries[0].Detail, "merged 2") {
		t.Fatalf("expected one merge entry, got %+v", entries)
	}
}

func TestMergeUnknownPrimary(t *testing.T) {
	merger := NewMerger(repository.NewMemory(), logger.NewNop())
	_, _, err := merger.Merge(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, "tester")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// failingNotes fails note copies for one lead to simulate a mid-batch error.
type failingNotes struct {
	*repository.Memory
	failFor uuid.UUID
}

func (f *failingNotes) ListNotes(ctx context.Context, leadID uuid.UUID) ([]repository.LeadNote, error) {
	if leadID == f.failFor {
		return nil, errors.New("read timeout")
	}
	return f.Memory.ListNotes(ctx, leadID)
}

func TestMergeContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	primary := seedLeadWithHistory(t, store, "+911", 0, 0)
	bad := seedLeadWithHistory(t, store, "+912", 1, 1)
	good := seedLeadWithHistory(t, store, "+913", 1, 1)

	merger := NewMerger(&failingNotes{Memory: store, failFor: bad.ID}, logger.NewNop())
	_, result, err := merger.Merge(ctx, primary.ID, []uuid.UUID{bad.ID, good.ID, primary.ID}, "tester")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	failed := result.Failed()
	if len(failed) != 2 || failed[0] != bad.ID || failed[1] != primary.ID {
		t.Fatalf("expected bad and self to fail, got %v", failed)
	}
	if !apperr.Is(result.Err(), apperr.KindPartialFailure) {
		t.Fatalf("expected partial failure, got %v", result.Err())
	}
	if _, err := store.GetLead(ctx, bad.ID); err != nil {
		t.Fatalf("failed duplicate should survive, got %v", err)
	}
	if _, err := store.GetLead(ctx, good.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("good duplicate should be merged, got %v", err)
	}
}

// flakyMerge fails a set number of note reads and call writes, then
// behaves like the memory store.
type flakyMerge struct {
	*repository.Memory
	noteReadFailures  int
	callWriteFailures int
}

func (f *flakyMerge) ListNotes(ctx context.Context, leadID uuid.UUID) ([]repository.LeadNote, error) {
	if f.noteReadFailures > 0 {
		f.noteReadFailures--
		return nil, errors.New("read timeout")
	}
	return f.Memory.ListNotes(ctx, leadID)
}

func (f *flakyMerge) CreateCallLog(ctx context.Context, params repository.CreateCallLogParams) (repository.CallLog, error) {
	if f.callWriteFailures > 0 {
		f.callWriteFailures--
		return repository.CallLog{}, errors.New("write timeout")
	}
	return f.Memory.CreateCallLog(ctx, params)
}

func TestMergeRetryAfterReadFailureKeepsFollowUpCount(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()
	primary := seedLeadWithHistory(t, mem, "+911", 0, 0)
	dup := seedLeadWithHistory(t, mem, "+912", 2, 1)

	merger := NewMerger(&flakyMerge{Memory: mem, noteReadFailures: 1}, logger.NewNop())
	if _, result, _ := merger.Merge(ctx, primary.ID, []uuid.UUID{dup.ID}, "tester"); len(result.Failed()) != 1 {
		t.Fatalf("expected first merge to fail, got %+v", result)
	}
	if followUps, _ := mem.ListFollowUps(ctx, primary.ID); len(followUps) != 0 {
		t.Fatalf("expected nothing copied before the failed read, got %d follow-ups", len(followUps))
	}

	if _, result, _ := merger.Merge(ctx, primary.ID, []uuid.UUID{dup.ID}, "tester"); result.Err() != nil {
		t.Fatalf("retry: %v", result.Err())
	}
	if followUps, _ := mem.ListFollowUps(ctx, primary.ID); len(followUps) != 2 {
		t.Fatalf("expected 2 follow-ups on primary after retry, got %d", len(followUps))
	}
}

func TestMergeRetryAfterPartialCopyDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()
	primary := seedLeadWithHistory(t, mem, "+911", 1, 0)
	dup := seedLeadWithHistory(t, mem, "+912", 2, 1)
	if _, err := mem.CreateCallLog(ctx, repository.CreateCallLogParams{LeadID: dup.ID, DurationSeconds: 60, Outcome: "connected"}); err != nil {
		t.Fatalf("seed call: %v", err)
	}

	merger := NewMerger(&flakyMerge{Memory: mem, callWriteFailures: 1}, logger.NewNop())
	if _, result, _ := merger.Merge(ctx, primary.ID, []uuid.UUID{dup.ID}, "tester"); len(result.Failed()) != 1 {
		t.Fatalf("expected first merge to fail on the call copy, got %+v", result)
	}
	if _, err := mem.GetLead(ctx, dup.ID); err != nil {
		t.Fatalf("duplicate should survive the failed merge, got %v", err)
	}

	if _, result, _ := merger.Merge(ctx, primary.ID, []uuid.UUID{dup.ID}, "tester"); result.Err() != nil {
		t.Fatalf("retry: %v", result.Err())
	}

	followUps, _ := mem.ListFollowUps(ctx, primary.ID)
	if len(followUps) != 1+2 {
		t.Fatalf("expected 3 follow-ups on primary, got %d", len(followUps))
	}
	notes, _ := mem.ListNotes(ctx, primary.ID)
	if len(notes) != 1 {
		t.Fatalf("expected 1 copied note, got %d", len(notes))
	}
	calls, _ := mem.ListCallLogs(ctx, primary.ID)
	if len(calls) != 1 {
		t.Fatalf("expected 1 copied call, got %d", len(calls))
	}
	if _, err := mem.GetLead(ctx, dup.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected duplicate deleted after retry, got %v", err)
	}
}
