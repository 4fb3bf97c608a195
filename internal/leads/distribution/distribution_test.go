package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var base = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func seedUsers(store *repository.Memory, n int) []repository.User {
	users := make([]repository.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, store.AddUser(repository.User{
			Name:      "Sales " + string(rune('A'+i)),
			Role:      domain.RoleSales,
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return users
}

func seedLeads(t *testing.T, store *repository.Memory, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := store.CreateLead(context.Background(), repository.CreateLeadParams{
			Name:   "Lead",
			Mobile: uuid.NewString(),
		}); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
	}
}

func TestEligibleUsersFiltersAndOrders(t *testing.T) {
	early := repository.User{ID: uuid.New(), Role: domain.RoleAdmin, IsActive: true, CreatedAt: base}
	late := repository.User{ID: uuid.New(), Role: domain.RoleSales, IsActive: true, CreatedAt: base.Add(time.Hour)}
	client := repository.User{ID: uuid.New(), Role: domain.RoleClient, IsActive: true, CreatedAt: base}
	inactive := repository.User{ID: uuid.New(), Role: domain.RoleSales, IsActive: false, CreatedAt: base}

	got := EligibleUsers([]repository.User{late, client, inactive, early})
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		t.Fatalf("unexpected eligible users %+v", got)
	}
}

func TestNextAssigneeWrapsAndRestarts(t *testing.T) {
	users := []repository.User{{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()}}

	if got, _ := NextAssignee(users, nil); got.ID != users[0].ID {
		t.Fatalf("expected first user when no history")
	}
	if got, _ := NextAssignee(users, &users[2].ID); got.ID != users[0].ID {
		t.Fatalf("expected wrap to first user")
	}
	unknown := uuid.New()
	if got, _ := NextAssignee(users, &unknown); got.ID != users[0].ID {
		t.Fatalf("expected restart when last user is gone")
	}
	if _, ok := NextAssignee(nil, nil); ok {
		t.Fatalf("expected no assignee without users")
	}
}

func TestDistributeUnassignedCyclesUsers(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(repository.WithClock(func() time.Time { return base }))
	users := seedUsers(store, 3)
	seedLeads(t, store, 7)

	sched := New(store, nil, nil, logger.NewNop())
	count, err := sched.DistributeUnassigned(ctx, domain.ActorSystem)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 assignments, got %d", count)
	}

	leads, _ := store.ListLeads(ctx)
	// ListLeads is most-recent-first; assignment ran oldest-first.
	for i := range leads {
		lead := leads[len(leads)-1-i]
		want := users[i%3].ID
		if lead.AssignedUserID == nil || *lead.AssignedUserID != want {
			t.Fatalf("lead %d: expected user %d", i, i%3)
		}
		if lead.DistributedAt == nil {
			t.Fatalf("lead %d missing distribution timestamp", i)
		}
	}

	state, _ := store.GetDistributionState(ctx)
	if state.LastAssignedUserID == nil || *state.LastAssignedUserID != users[0].ID {
		t.Fatalf("expected last assigned to be first user after 7 leads")
	}

	// A second run continues the rotation.
	seedLeads(t, store, 1)
	if _, err := sched.DistributeUnassigned(ctx, domain.ActorSystem); err != nil {
		t.Fatalf("second distribute: %v", err)
	}
	state, _ = store.GetDistributionState(ctx)
	if *state.LastAssignedUserID != users[1].ID {
		t.Fatalf("expected rotation to continue with second user")
	}
}

func TestDistributeUnassignedSingleUser(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	users := seedUsers(store, 1)
	seedLeads(t, store, 3)

	count, err := New(store, nil, nil, logger.NewNop()).DistributeUnassigned(ctx, domain.ActorSystem)
	if err != nil || count != 3 {
		t.Fatalf("expected 3 assignments, got %d err=%v", count, err)
	}
	leads, _ := store.ListLeads(ctx)
	for _, l := range leads {
		if *l.AssignedUserID != users[0].ID {
			t.Fatalf("expected sole user assigned")
		}
	}
}

func TestDistributeUnassignedWithoutEligibleUsers(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	store.AddUser(repository.User{Role: domain.RoleClient, IsActive: true})
	store.AddUser(repository.User{Role: domain.RoleSales, IsActive: false})
	seedLeads(t, store, 2)

	count, err := New(store, nil, nil, logger.NewNop()).DistributeUnassigned(ctx, domain.ActorSystem)
	if err != nil || count != 0 {
		t.Fatalf("expected zero assignments without error, got %d err=%v", count, err)
	}
	unassigned, _ := store.ListUnassignedLeads(ctx)
	if len(unassigned) != 2 {
		t.Fatalf("expected leads to stay unassigned")
	}
}

// staleOnce rejects the first state save to simulate a concurrent writer.
type staleOnce struct {
	*repository.Memory
	rejected bool
}

func (s *staleOnce) SaveDistributionState(ctx context.Context, state repository.DistributionState) (repository.DistributionState, error) {
	if !s.rejected {
		s.rejected = true
		return repository.DistributionState{}, repository.ErrStaleDistributionState
	}
	return s.Memory.SaveDistributionState(ctx, state)
}

func TestDistributeRetriesStaleState(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()
	users := seedUsers(mem, 2)
	seedLeads(t, mem, 1)

	store := &staleOnce{Memory: mem}
	count, err := New(store, nil, nil, logger.NewNop()).DistributeUnassigned(ctx, domain.ActorSystem)
	if err != nil || count != 1 || !store.rejected {
		t.Fatalf("expected retry to succeed, got %d err=%v", count, err)
	}
	state, _ := mem.GetDistributionState(ctx)
	if *state.LastAssignedUserID != users[0].ID {
		t.Fatalf("expected first user after retry")
	}
}

// failingWrite rejects lead writes for one id until cleared.
type failingWrite struct {
	*repository.Memory
	failID uuid.UUID
}

func (s *failingWrite) UpdateLead(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	if id == s.failID {
		return repository.Lead{}, errors.New("write timeout")
	}
	return s.Memory.UpdateLead(ctx, id, params)
}

func TestDistributeSkipsFailedLeadWithoutSpendingTurn(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()
	users := seedUsers(mem, 2)
	first, _ := mem.CreateLead(ctx, repository.CreateLeadParams{Name: "First", Mobile: "+919876500001"})
	second, _ := mem.CreateLead(ctx, repository.CreateLeadParams{Name: "Second", Mobile: "+919876500002"})

	store := &failingWrite{Memory: mem, failID: first.ID}
	sched := New(store, nil, nil, logger.NewNop())

	count, err := sched.DistributeUnassigned(ctx, domain.ActorSystem)
	if !apperr.Is(err, apperr.KindPartialFailure) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the second lead to be assigned, got %d", count)
	}

	got, _ := mem.GetLead(ctx, second.ID)
	if got.AssignedUserID == nil || *got.AssignedUserID != users[0].ID {
		t.Fatalf("expected second lead to take the first turn, got %v", got.AssignedUserID)
	}
	state, _ := mem.GetDistributionState(ctx)
	if state.LastAssignedUserID == nil || *state.LastAssignedUserID != users[0].ID {
		t.Fatalf("expected rotation to record only the successful assignment, got %v", state.LastAssignedUserID)
	}
	unassigned, _ := mem.ListUnassignedLeads(ctx)
	if len(unassigned) != 1 || unassigned[0].ID != first.ID {
		t.Fatalf("expected only the failed lead to remain unassigned, got %d", len(unassigned))
	}

	store.failID = uuid.Nil
	if count, err := sched.DistributeUnassigned(ctx, domain.ActorSystem); err != nil || count != 1 {
		t.Fatalf("expected rerun to assign the skipped lead, got %d err=%v", count, err)
	}
	got, _ = mem.GetLead(ctx, first.ID)
	if got.AssignedUserID == nil || *got.AssignedUserID != users[1].ID {
		t.Fatalf("expected skipped lead to go to the next user, got %v", got.AssignedUserID)
	}
}

func TestSetEnabledTogglesState(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	sched := New(store, nil, nil, logger.NewNop())

	state, err := sched.SetEnabled(ctx, false, "admin")
	if err != nil || state.Enabled {
		t.Fatalf("expected disabled state, got %+v err=%v", state, err)
	}
	settings, _ := sched.Settings(ctx)
	if settings.Enabled {
		t.Fatalf("expected persisted disabled flag")
	}
}

func TestAssignLeadSkipsOwnedLead(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	users := seedUsers(store, 2)
	owner := users[1].ID
	lead, _ := store.CreateLead(ctx, repository.CreateLeadParams{Name: "Owned", Mobile: "+91", AssignedUserID: &owner})

	got, assigned, err := New(store, nil, nil, logger.NewNop()).AssignLead(ctx, lead.ID, domain.ActorSystem)
	if err != nil || assigned || *got.AssignedUserID != owner {
		t.Fatalf("expected owned lead untouched, got assigned=%v err=%v", assigned, err)
	}
}

func TestRedisLockerSerializesRuns(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	release, err := locker.Acquire(ctx, lockKey, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := locker.Acquire(ctx, lockKey, time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected lock held, got %v", err)
	}

	store := repository.NewMemory()
	seedUsers(store, 1)
	seedLeads(t, store, 1)
	_, err = New(store, locker, nil, logger.NewNop()).DistributeUnassigned(ctx, domain.ActorSystem)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict while locked, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	count, err := New(store, locker, nil, logger.NewNop()).DistributeUnassigned(ctx, domain.ActorSystem)
	if err != nil || count != 1 {
		t.Fatalf("expected run after release, got %d err=%v", count, err)
	}
	if mr.Exists(lockKey) {
		t.Fatalf("expected lock released after run")
	}
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	release, err := locker.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Lock expired and was taken by someone else.
	mr.FastForward(2 * time.Second)
	if err := mr.Set("k", "other-token"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got, _ := mr.Get("k"); got != "other-token" {
		t.Fatalf("expected foreign lock kept, got %q", got)
	}
}
