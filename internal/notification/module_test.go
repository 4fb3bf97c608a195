package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/leads"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/notification/inapp"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testSender struct {
	assignedTo  []string
	followUpsTo []string
	err         error
}

func (s *testSender) SendLeadAssignedEmail(_ context.Context, toEmail, _, _, _, _ string) error {
	s.assignedTo = append(s.assignedTo, toEmail)
	return s.err
}

func (s *testSender) SendFollowUpScheduledEmail(_ context.Context, toEmail, _, _ string, _ time.Time) error {
	s.followUpsTo = append(s.followUpsTo, toEmail)
	return s.err
}

var _ email.Sender = (*testSender)(nil)

type fixture struct {
	module *Module
	store  *inapp.MemoryStore
	sender *testSender
	leads  *repository.Memory
	owner  repository.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := inapp.NewMemoryStore()
	sender := &testSender{}
	memory := repository.NewMemory()
	owner := memory.AddUser(repository.User{Name: "Priya", Email: "priya@example.com", IsActive: true})
	log := logger.NewNop()
	m := New(inapp.NewService(store, log), sender, leads.NewDirectory(memory), log)
	return fixture{module: m, store: store, sender: sender, leads: memory, owner: owner}
}

func unread(t *testing.T, store *inapp.MemoryStore, userID uuid.UUID) int {
	t.Helper()
	count, err := store.CountUnread(context.Background(), userID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	return count
}

func TestHandleLeadAssignedSendsInAppAndEmail(t *testing.T) {
	f := newFixture(t)

	err := f.module.handleLeadAssigned(context.Background(), events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		LeadName:  "Ravi",
		Mobile:    "+919876543210",
		UserID:    f.owner.ID,
		UserName:  f.owner.Name,
		UserEmail: f.owner.Email,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := unread(t, f.store, f.owner.ID); got != 1 {
		t.Fatalf("expected 1 unread notification, got %d", got)
	}
	if len(f.sender.assignedTo) != 1 || f.sender.assignedTo[0] != f.owner.Email {
		t.Fatalf("expected email to owner, got %v", f.sender.assignedTo)
	}
}

func TestHandleLeadAssignedReturnsEmailError(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp down")

	err := f.module.handleLeadAssigned(context.Background(), events.LeadAssigned{
		LeadID:    uuid.New(),
		LeadName:  "Ravi",
		UserID:    f.owner.ID,
		UserEmail: f.owner.Email,
	})
	if err == nil {
		t.Fatal("expected email error to surface")
	}
	if got := unread(t, f.store, f.owner.ID); got != 1 {
		t.Fatalf("expected in-app notification despite email failure, got %d", got)
	}
}

func TestHandleFollowUpScheduledSkipsSelfScheduled(t *testing.T) {
	f := newFixture(t)
	ownerID := f.owner.ID

	err := f.module.handleFollowUpScheduled(context.Background(), events.FollowUpScheduled{
		LeadID:         uuid.New(),
		LeadName:       "Ravi",
		ScheduledAt:    time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		AssignedUserID: &ownerID,
		ActorID:        &ownerID,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := unread(t, f.store, ownerID); got != 0 {
		t.Fatalf("expected no notification, got %d", got)
	}
	if len(f.sender.followUpsTo) != 0 {
		t.Fatalf("expected no email, got %v", f.sender.followUpsTo)
	}
}

func TestHandleFollowUpScheduledNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	ownerID := f.owner.ID
	otherID := uuid.New()

	err := f.module.handleFollowUpScheduled(context.Background(), events.FollowUpScheduled{
		LeadID:         uuid.New(),
		LeadName:       "Ravi",
		ScheduledAt:    time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		AssignedUserID: &ownerID,
		ActorID:        &otherID,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := unread(t, f.store, ownerID); got != 1 {
		t.Fatalf("expected 1 notification, got %d", got)
	}
	if len(f.sender.followUpsTo) != 1 || f.sender.followUpsTo[0] != f.owner.Email {
		t.Fatalf("expected email to owner, got %v", f.sender.followUpsTo)
	}
}

func TestHandleFollowUpScheduledUnknownOwner(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()

	err := f.module.handleFollowUpScheduled(context.Background(), events.FollowUpScheduled{
		LeadID:         uuid.New(),
		LeadName:       "Ravi",
		AssignedUserID: &stranger,
	})
	if err != nil {
		t.Fatalf("expected unknown owner to be ignored, got %v", err)
	}
	if len(f.sender.followUpsTo) != 0 {
		t.Fatalf("expected no email, got %v", f.sender.followUpsTo)
	}
}

func TestHandleLeadsMergedUsesPrimaryName(t *testing.T) {
	f := newFixture(t)
	ownerID := f.owner.ID
	primary, err := f.leads.CreateLead(context.Background(), repository.CreateLeadParams{Name: "Asha", Mobile: "+919876543210"})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	err = f.module.handleLeadsMerged(context.Background(), events.LeadsMerged{
		PrimaryLeadID:  primary.ID,
		MergedLeadIDs:  []uuid.UUID{uuid.New(), uuid.New()},
		AssignedUserID: &ownerID,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	items, _, err := f.store.List(context.Background(), ownerID, 10, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one notification, got %d err=%v", len(items), err)
	}
	if items[0].Content != "2 duplicate(s) were merged into Asha." || items[0].Category != inapp.CategoryWarning {
		t.Fatalf("unexpected notification %+v", items[0])
	}
}

func TestHandleLeadConvertedWithoutOwnerIsNoop(t *testing.T) {
	f := newFixture(t)

	if err := f.module.handleLeadConverted(context.Background(), events.LeadConverted{LeadID: uuid.New(), LeadName: "Ravi"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	items, total, _ := f.store.List(context.Background(), f.owner.ID, 10, 0)
	if total != 0 || len(items) != 0 {
		t.Fatalf("expected no notifications, got %d", total)
	}
}

func TestRegisterHandlersDeliversThroughBus(t *testing.T) {
	f := newFixture(t)
	bus := events.NewInMemoryBus(logger.NewNop())
	f.module.RegisterHandlers(bus)
	ownerID := f.owner.ID

	bus.Publish(context.Background(), events.LeadConverted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         uuid.New(),
		LeadName:       "Ravi",
		AssignedUserID: &ownerID,
	})
	bus.Wait()

	if got := unread(t, f.store, ownerID); got != 1 {
		t.Fatalf("expected converted notification, got %d", got)
	}
}

func newRouter(f fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1", httpkit.ActorHeaders())
	f.module.RegisterRoutes(&apphttp.RouterContext{Engine: engine, V1: api, Public: api.Group("/public")})
	return engine
}

func TestNotificationRoutesRequireActor(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNotificationRoutesMarkRead(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	n, err := f.store.Create(context.Background(), inapp.CreateParams{UserID: f.owner.ID, Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+n.ID.String()+"/read", nil)
	req.Header.Set(httpkit.HeaderActorID, f.owner.ID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := unread(t, f.store, f.owner.ID); got != 0 {
		t.Fatalf("expected notification read, got %d unread", got)
	}

	other := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/"+n.ID.String(), nil)
	other.Header.Set(httpkit.HeaderActorID, uuid.NewString())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, other)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's notification, got %d", rec.Code)
	}
}
