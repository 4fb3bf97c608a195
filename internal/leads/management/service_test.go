package management

import (
	"context"
	"errors"
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

var testActor = domain.Actor{Name: "tester"}

func newTestService(opts ...repository.MemoryOption) (*Service, *repository.Memory) {
	store := repository.NewMemory(opts...)
	return New(store, events.NewInMemoryBus(logger.NewNop()), logger.NewNop(), "IN"), store
}

func mustCapture(t *testing.T, svc *Service, req transport.CaptureLeadRequest) transport.LeadResponse {
	t.Helper()
	lead, err := svc.Capture(context.Background(), req, testActor)
	if err != nil {
		t.Fatalf("capture %q: %v", req.Name, err)
	}
	return lead
}

func TestCaptureDefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService()

	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "  Ravi  ", Mobile: "98765 43210", Email: " Ravi@Example.com "})
	if lead.Name != "Ravi" || lead.Mobile != "+919876543210" {
		t.Fatalf("expected sanitized contact, got %q %q", lead.Name, lead.Mobile)
	}
	if lead.Email == nil || *lead.Email != "ravi@example.com" {
		t.Fatalf("expected lowercased email, got %v", lead.Email)
	}
	if lead.Source != domain.SourceOther || lead.Status != domain.LeadStatusNew || lead.PipelineStage != domain.PipelineStageNewLead {
		t.Fatalf("unexpected defaults %+v", lead)
	}

	_, err := svc.Capture(context.Background(), transport.CaptureLeadRequest{Name: "X", Mobile: "9876543211", Source: "tv"}, testActor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown source, got %v", err)
	}

	negative := -1.0
	_, err = svc.Capture(context.Background(), transport.CaptureLeadRequest{Name: "X", Mobile: "9876543211", Budget: &negative}, testActor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative budget, got %v", err)
	}
}

func TestListFiltersSortsAndPages(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	current := base
	svc, _ := newTestService(repository.WithClock(func() time.Time { return current }))

	names := []string{"Charu", "asha", "Bela", "Dev"}
	captured := make(map[string]transport.LeadResponse, len(names))
	for i, name := range names {
		current = base.Add(time.Duration(i) * time.Hour)
		city := "Pune"
		if i%2 == 1 {
			city = "Mumbai"
		}
		captured[name] = mustCapture(t, svc, transport.CaptureLeadRequest{Name: name, Mobile: "987654321" + string(rune('0'+i)), City: city})
	}
	if _, err := svc.ChangeStage(context.Background(), captured["Dev"].ID, domain.PipelineStageQualified, testActor); err != nil {
		t.Fatalf("change stage: %v", err)
	}

	ctx := context.Background()

	page, err := svc.List(ctx, transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || page.Items[0].Name != "Dev" {
		t.Fatalf("expected newest first by default, got %+v", page.Items)
	}

	page, _ = svc.List(ctx, transport.ListLeadsRequest{SortBy: "name", SortOrder: "asc", PageSize: 3, Page: 2})
	if page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].Name != "Dev" {
		t.Fatalf("expected last page with Dev, got %+v", page)
	}
	page, _ = svc.List(ctx, transport.ListLeadsRequest{SortBy: "name", SortOrder: "asc"})
	if page.Items[0].Name != "asha" || page.Items[1].Name != "Bela" {
		t.Fatalf("expected case-insensitive name order, got %s, %s", page.Items[0].Name, page.Items[1].Name)
	}

	page, _ = svc.List(ctx, transport.ListLeadsRequest{Search: "MUMBAI"})
	if page.Total != 2 {
		t.Fatalf("expected two Mumbai leads, got %d", page.Total)
	}

	page, _ = svc.List(ctx, transport.ListLeadsRequest{Stage: "Qualified"})
	if page.Total != 1 || page.Items[0].ID != captured["Dev"].ID {
		t.Fatalf("expected stage filter to match Dev, got %+v", page.Items)
	}

	page, _ = svc.List(ctx, transport.ListLeadsRequest{Page: 9})
	if len(page.Items) != 0 || page.Total != 4 {
		t.Fatalf("expected empty page past the end, got %+v", page)
	}

	if _, err := svc.List(ctx, transport.ListLeadsRequest{SortBy: "mobile"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected unknown sort field rejected, got %v", err)
	}
	if _, err := svc.List(ctx, transport.ListLeadsRequest{Stage: "archived"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected unknown stage rejected, got %v", err)
	}
}

func TestSortLeadsBudgetPlacesMissingLowest(t *testing.T) {
	high, low := 50000.0, 1000.0
	leads := []repository.Lead{
		{ID: uuid.New(), Name: "none"},
		{ID: uuid.New(), Name: "high", Budget: &high},
		{ID: uuid.New(), Name: "low", Budget: &low},
	}

	SortLeads(leads, domain.SortBudget, domain.SortDesc)
	if leads[0].Name != "high" || leads[1].Name != "low" || leads[2].Name != "none" {
		t.Fatalf("unexpected order %s, %s, %s", leads[0].Name, leads[1].Name, leads[2].Name)
	}
}

func TestUpdateGuardsContactAndStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210", Email: "ravi@example.com"})
	second := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Asha", Mobile: "9876543211"})

	taken := "+91 98765 43210"
	_, err := svc.Update(ctx, second.ID, transport.UpdateLeadRequest{Mobile: &taken}, testActor)
	if apperr.DuplicateField(err) != domain.FieldMobile {
		t.Fatalf("expected mobile duplicate, got %v", err)
	}

	// Re-saving its own mobile is not a collision.
	own := "9876543210"
	if _, err := svc.Update(ctx, first.ID, transport.UpdateLeadRequest{Mobile: &own}, testActor); err != nil {
		t.Fatalf("update own mobile: %v", err)
	}

	empty := ""
	updated, err := svc.Update(ctx, first.ID, transport.UpdateLeadRequest{Email: &empty}, testActor)
	if err != nil || updated.Email != nil {
		t.Fatalf("expected email cleared, got %v err=%v", updated.Email, err)
	}

	converted := transport.LeadStatus(domain.LeadStatusConverted)
	if _, err := svc.Update(ctx, first.ID, transport.UpdateLeadRequest{Status: &converted}, testActor); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected converted status rejected, got %v", err)
	}

	if _, err := svc.Convert(ctx, first.ID, transport.ConvertLeadRequest{}, testActor); err != nil {
		t.Fatalf("convert: %v", err)
	}
	interested := transport.LeadStatus(domain.LeadStatusInterested)
	if _, err := svc.Update(ctx, first.ID, transport.UpdateLeadRequest{Status: &interested}, testActor); !apperr.Is(err, apperr.KindAlreadyConverted) {
		t.Fatalf("expected converted lead status locked, got %v", err)
	}
}

func TestConvertCopiesOverrides(t *testing.T) {
	svc, store := newTestService()
	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210", City: "Pune"})

	name := "Ravi Traders"
	resp, err := svc.Convert(context.Background(), lead.ID, transport.ConvertLeadRequest{Name: &name, Company: "Ravi Traders Pvt"}, testActor)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if resp.Lead.Status != domain.LeadStatusConverted {
		t.Fatalf("expected converted status, got %s", resp.Lead.Status)
	}
	if resp.Client.Name != name || resp.Client.City != "Pune" || resp.Client.LeadID != lead.ID || resp.Client.Company != "Ravi Traders Pvt" {
		t.Fatalf("unexpected client %+v", resp.Client)
	}
	if len(store.Clients()) != 1 {
		t.Fatalf("expected one client, got %d", len(store.Clients()))
	}
}

func TestUpdateRejectsUnknownInterest(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210", InterestLevel: transport.InterestLevelLow})

	bogus := transport.InterestLevel("urgent")
	if _, err := svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{InterestLevel: &bogus}, testActor); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := store.GetLead(ctx, lead.ID)
	if stored.InterestLevel != domain.InterestLow {
		t.Fatalf("expected interest level untouched, got %q", stored.InterestLevel)
	}

	high := transport.InterestLevelHigh
	updated, err := svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{InterestLevel: &high}, testActor)
	if err != nil || updated.InterestLevel != domain.InterestHigh {
		t.Fatalf("expected interest level updated, got %q err=%v", updated.InterestLevel, err)
	}
}

// statusWriteFails rejects the next status write, then passes through.
type statusWriteFails struct {
	*repository.Memory
	failures int
}

func (s *statusWriteFails) UpdateLead(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	if params.Status != nil && s.failures > 0 {
		s.failures--
		return repository.Lead{}, errors.New("write timeout")
	}
	return s.Memory.UpdateLead(ctx, id, params)
}

func TestConvertRepeatsAfterStatusWriteFailure(t *testing.T) {
	mem := repository.NewMemory()
	store := &statusWriteFails{Memory: mem, failures: 1}
	svc := New(store, events.NewInMemoryBus(logger.NewNop()), logger.NewNop(), "IN")
	ctx := context.Background()
	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210"})

	if _, err := svc.Convert(ctx, lead.ID, transport.ConvertLeadRequest{}, testActor); !apperr.Is(err, apperr.KindInfrastructure) {
		t.Fatalf("expected first convert to fail, got %v", err)
	}
	stored, _ := mem.GetLead(ctx, lead.ID)
	if stored.Status == domain.LeadStatusConverted {
		t.Fatal("expected lead to stay unconverted after the failed write")
	}

	resp, err := svc.Convert(ctx, lead.ID, transport.ConvertLeadRequest{Company: "Ravi Traders"}, testActor)
	if err != nil {
		t.Fatalf("repeat convert: %v", err)
	}
	if resp.Lead.Status != domain.LeadStatusConverted {
		t.Fatalf("expected converted status, got %s", resp.Lead.Status)
	}
	clients := mem.Clients()
	if len(clients) != 1 {
		t.Fatalf("expected one client for the lead, got %d", len(clients))
	}
	if clients[0].ID != resp.Client.ID || clients[0].Company != "Ravi Traders" {
		t.Fatalf("expected the existing client to be reused and updated, got %+v", clients[0])
	}

	if _, err := svc.Convert(ctx, lead.ID, transport.ConvertLeadRequest{}, testActor); !apperr.Is(err, apperr.KindAlreadyConverted) {
		t.Fatalf("expected already converted, got %v", err)
	}
}

func TestDeleteReleasesContact(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210"})

	check, err := svc.CheckDuplicate(ctx, "98765 43210", "")
	if err != nil || !check.IsDuplicate || check.Field != domain.FieldMobile || *check.ExistingLeadID != lead.ID {
		t.Fatalf("expected duplicate hit, got %+v err=%v", check, err)
	}

	if err := svc.Delete(ctx, lead.ID, testActor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, lead.ID, testActor); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}

	check, err = svc.CheckDuplicate(ctx, "9876543210", "")
	if err != nil || check.IsDuplicate {
		t.Fatalf("expected contact released, got %+v err=%v", check, err)
	}
}

func TestChangeStageSameStageIsNoop(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	lead := mustCapture(t, svc, transport.CaptureLeadRequest{Name: "Ravi", Mobile: "9876543210"})

	if _, err := svc.ChangeStage(ctx, lead.ID, " NEW_LEAD ", testActor); err != nil {
		t.Fatalf("change stage: %v", err)
	}
	entries, _ := store.ListActivityLog(ctx, domain.EntityLead, lead.ID)
	for _, e := range entries {
		if e.Action == domain.ActionStageChanged {
			t.Fatalf("expected no stage change entry, got %+v", e)
		}
	}
}
