package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"leadcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Memory is an in-process LeadStore. It enforces the same active-contact
// uniqueness as the Postgres indexes and is used by tests and by the
// memory store backend.
type Memory struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	leads     map[uuid.UUID]*memLead
	followUps map[uuid.UUID]FollowUp
	notes     []LeadNote
	calls     []CallLog
	users     []User
	state     *DistributionState
	activity  []ActivityLog
	clients   map[uuid.UUID]Client
}

type memLead struct {
	lead    Lead
	seq     int64
	deleted bool
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:       time.Now,
		leads:     make(map[uuid.UUID]*memLead),
		followUps: make(map[uuid.UUID]FollowUp),
		clients:   make(map[uuid.UUID]Client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddUser seeds a user. A zero ID or CreatedAt is filled in.
func (m *Memory) AddUser(u User) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users = append(m.users, u)
	return u
}

// SetUserActive toggles a seeded user's active flag.
func (m *Memory) SetUserActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].IsActive = active
		}
	}
}

func (m *Memory) nextSeq() int64 {
	m.seq++
	return m.seq
}

// conflictLocked returns the field an active lead other than self already
// owns, or "" when the contact is free.
func (m *Memory) conflictLocked(mobile string, email *string, self uuid.UUID) string {
	for id, entry := range m.leads {
		if entry.deleted || id == self {
			continue
		}
		if mobile != "" && entry.lead.Mobile == mobile {
			return domain.FieldMobile
		}
	}
	if email == nil || *email == "" {
		return ""
	}
	for id, entry := range m.leads {
		if entry.deleted || id == self {
			continue
		}
		if entry.lead.HasEmail() && *entry.lead.Email == *email {
			return domain.FieldEmail
		}
	}
	return ""
}

func (m *Memory) CreateLead(_ context.Context, params CreateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if field := m.conflictLocked(params.Mobile, params.Email, uuid.Nil); field != "" {
		return Lead{}, &DuplicateContactError{Field: field}
	}

	now := m.now()
	lead := Lead{
		ID:             uuid.New(),
		Name:           params.Name,
		Mobile:         params.Mobile,
		Email:          cloneString(params.Email),
		City:           params.City,
		Source:         params.Source,
		Status:         params.Status,
		PipelineStage:  params.PipelineStage,
		Temperature:    domain.TemperatureCold,
		AssignedUserID: cloneUUID(params.AssignedUserID),
		Budget:         cloneFloat(params.Budget),
		InterestLevel:  params.InterestLevel,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if lead.AssignedUserID != nil {
		lead.DistributedAt = &now
	}
	m.leads[lead.ID] = &memLead{lead: lead, seq: m.nextSeq()}
	return cloneLead(lead), nil
}

func (m *Memory) GetLead(_ context.Context, id uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.leads[id]
	if !ok || entry.deleted {
		return Lead{}, ErrNotFound
	}
	return cloneLead(entry.lead), nil
}

func (m *Memory) FindLeadByContact(_ context.Context, mobile string, email *string, excludeID *uuid.UUID) (ContactMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	self := uuid.Nil
	if excludeID != nil {
		self = *excludeID
	}
	field := m.conflictLocked(mobile, email, self)
	if field == "" {
		return ContactMatch{}, ErrNotFound
	}

	var best *memLead
	for id, entry := range m.leads {
		if entry.deleted || id == self {
			continue
		}
		matches := false
		switch field {
		case domain.FieldMobile:
			matches = entry.lead.Mobile == mobile
		case domain.FieldEmail:
			matches = entry.lead.HasEmail() && *entry.lead.Email == *email
		}
		if matches && (best == nil || entry.seq < best.seq) {
			best = entry
		}
	}
	return ContactMatch{Lead: cloneLead(best.lead), Field: field}, nil
}

func (m *Memory) activeSortedLocked(desc bool) []*memLead {
	entries := make([]*memLead, 0, len(m.leads))
	for _, entry := range m.leads {
		if !entry.deleted {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.lead.CreatedAt.Equal(b.lead.CreatedAt) {
			if desc {
				return a.lead.CreatedAt.After(b.lead.CreatedAt)
			}
			return a.lead.CreatedAt.Before(b.lead.CreatedAt)
		}
		if desc {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	return entries
}

func (m *Memory) ListLeads(_ context.Context) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.activeSortedLocked(true)
	leads := make([]Lead, 0, len(entries))
	for _, entry := range entries {
		leads = append(leads, cloneLead(entry.lead))
	}
	return leads, nil
}

func (m *Memory) ListUnassignedLeads(_ context.Context) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leads := make([]Lead, 0)
	for _, entry := range m.activeSortedLocked(false) {
		if entry.lead.AssignedUserID == nil {
			leads = append(leads, cloneLead(entry.lead))
		}
	}
	return leads, nil
}

func (m *Memory) UpdateLead(_ context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.leads[id]
	if !ok || entry.deleted {
		return Lead{}, ErrNotFound
	}

	next := entry.lead
	if params.Name != nil {
		next.Name = *params.Name
	}
	if params.Mobile != nil {
		next.Mobile = *params.Mobile
	}
	if params.EmailSet || params.Email != nil {
		next.Email = cloneString(params.Email)
	}
	if params.City != nil {
		next.City = *params.City
	}
	if params.Source != nil {
		next.Source = *params.Source
	}
	if params.Status != nil {
		next.Status = *params.Status
	}
	if params.PipelineStage != nil {
		next.PipelineStage = *params.PipelineStage
	}
	if params.Score != nil {
		next.Score = *params.Score
	}
	if params.Temperature != nil {
		next.Temperature = *params.Temperature
	}
	if params.ScoreReason != nil {
		next.ScoreReason = *params.ScoreReason
	}
	if params.ScoredAt != nil {
		t := *params.ScoredAt
		next.ScoredAt = &t
	}
	if params.AssignedUserIDSet || params.AssignedUserID != nil {
		next.AssignedUserID = cloneUUID(params.AssignedUserID)
	}
	if params.DistributedAt != nil {
		t := *params.DistributedAt
		next.DistributedAt = &t
	}
	if params.BudgetSet || params.Budget != nil {
		next.Budget = cloneFloat(params.Budget)
	}
	if params.InterestLevel != nil {
		next.InterestLevel = *params.InterestLevel
	}
	if params.LastActivityAt != nil {
		next.LastActivityAt = *params.LastActivityAt
	}

	if params.Mobile != nil || params.Email != nil {
		if field := m.conflictLocked(next.Mobile, next.Email, id); field != "" {
			return Lead{}, &DuplicateContactError{Field: field}
		}
	}

	next.UpdatedAt = m.now()
	entry.lead = next
	return cloneLead(next), nil
}

func (m *Memory) DeleteLead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.leads[id]
	if !ok || entry.deleted {
		return ErrNotFound
	}
	entry.deleted = true
	entry.lead.UpdatedAt = m.now()
	return nil
}

func (m *Memory) ListFollowUps(_ context.Context, leadID uuid.UUID) ([]FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]FollowUp, 0)
	for _, f := range m.followUps {
		if f.LeadID == leadID {
			items = append(items, cloneFollowUp(f))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledAt.Equal(items[j].ScheduledAt) {
			return items[i].ScheduledAt.Before(items[j].ScheduledAt)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (m *Memory) GetFollowUp(_ context.Context, id uuid.UUID) (FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followUps[id]
	if !ok {
		return FollowUp{}, ErrFollowUpNotFound
	}
	return cloneFollowUp(f), nil
}

func (m *Memory) CreateFollowUp(_ context.Context, params CreateFollowUpParams) (FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.MergedFromID != nil {
		for _, existing := range m.followUps {
			if existing.LeadID == params.LeadID && sameUUID(existing.MergedFromID, params.MergedFromID) {
				return cloneFollowUp(existing), nil
			}
		}
	}
	f := FollowUp{
		ID:           uuid.New(),
		LeadID:       params.LeadID,
		UserID:       cloneUUID(params.UserID),
		ScheduledAt:  params.ScheduledAt,
		Completed:    params.Completed,
		CompletedAt:  cloneTime(params.CompletedAt),
		Notes:        params.Notes,
		MergedFromID: cloneUUID(params.MergedFromID),
		CreatedAt:    m.now(),
	}
	m.followUps[f.ID] = f
	return cloneFollowUp(f), nil
}

func (m *Memory) UpdateFollowUp(_ context.Context, id uuid.UUID, params UpdateFollowUpParams) (FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followUps[id]
	if !ok {
		return FollowUp{}, ErrFollowUpNotFound
	}
	if params.Completed != nil {
		f.Completed = *params.Completed
	}
	if params.CompletedAt != nil {
		f.CompletedAt = cloneTime(params.CompletedAt)
	}
	if params.Notes != nil {
		f.Notes = *params.Notes
	}
	m.followUps[id] = f
	return cloneFollowUp(f), nil
}

func (m *Memory) ListNotes(_ context.Context, leadID uuid.UUID) ([]LeadNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]LeadNote, 0)
	for i := len(m.notes) - 1; i >= 0; i-- {
		if m.notes[i].LeadID == leadID {
			items = append(items, m.notes[i])
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *Memory) CreateNote(_ context.Context, params CreateNoteParams) (LeadNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.MergedFromID != nil {
		for _, existing := range m.notes {
			if existing.LeadID == params.LeadID && sameUUID(existing.MergedFromID, params.MergedFromID) {
				return existing, nil
			}
		}
	}
	note := LeadNote{
		ID:           uuid.New(),
		LeadID:       params.LeadID,
		AuthorID:     cloneUUID(params.AuthorID),
		Type:         params.Type,
		Body:         params.Body,
		MergedFromID: cloneUUID(params.MergedFromID),
		CreatedAt:    m.now(),
	}
	if params.CreatedAt != nil {
		note.CreatedAt = *params.CreatedAt
	}
	m.notes = append(m.notes, note)
	return note, nil
}

func (m *Memory) ListCallLogs(_ context.Context, leadID uuid.UUID) ([]CallLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]CallLog, 0)
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].LeadID == leadID {
			items = append(items, m.calls[i])
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CalledAt.After(items[j].CalledAt) })
	return items, nil
}

func (m *Memory) CreateCallLog(_ context.Context, params CreateCallLogParams) (CallLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.MergedFromID != nil {
		for _, existing := range m.calls {
			if existing.LeadID == params.LeadID && sameUUID(existing.MergedFromID, params.MergedFromID) {
				return existing, nil
			}
		}
	}
	call := CallLog{
		ID:              uuid.New(),
		LeadID:          params.LeadID,
		UserID:          cloneUUID(params.UserID),
		DurationSeconds: params.DurationSeconds,
		Outcome:         params.Outcome,
		CalledAt:        params.CalledAt,
		MergedFromID:    cloneUUID(params.MergedFromID),
	}
	if call.CalledAt.IsZero() {
		call.CalledAt = m.now()
	}
	m.calls = append(m.calls, call)
	return call, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, len(m.users))
	copy(users, m.users)
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

func (m *Memory) GetDistributionState(_ context.Context) (DistributionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = &DistributionState{
			Method:    domain.DistributionRoundRobin,
			Enabled:   true,
			UpdatedAt: m.now(),
		}
	}
	state := *m.state
	state.LastAssignedUserID = cloneUUID(m.state.LastAssignedUserID)
	return state, nil
}

func (m *Memory) SaveDistributionState(_ context.Context, state DistributionState) (DistributionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := int64(0)
	if m.state != nil {
		current = m.state.Version
	}
	if state.Version != current {
		return DistributionState{}, ErrStaleDistributionState
	}
	saved := DistributionState{
		LastAssignedUserID: cloneUUID(state.LastAssignedUserID),
		Method:             state.Method,
		Enabled:            state.Enabled,
		Version:            current + 1,
		UpdatedAt:          m.now(),
	}
	m.state = &saved
	return saved, nil
}

func (m *Memory) AppendActivityLog(_ context.Context, params AppendActivityParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, ActivityLog{
		ID:         uuid.New(),
		Actor:      params.Actor,
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   cloneUUID(params.EntityID),
		Detail:     params.Detail,
		CreatedAt:  m.now(),
	})
	return nil
}

func (m *Memory) ListActivityLog(_ context.Context, entityType string, entityID uuid.UUID) ([]ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]ActivityLog, 0)
	for i := len(m.activity) - 1; i >= 0; i-- {
		e := m.activity[i]
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// CreateClient keeps one client per lead: a repeated call for the same lead
// updates the existing record and keeps its id.
func (m *Memory) CreateClient(_ context.Context, params CreateClientParams) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, createdAt := uuid.New(), m.now()
	for _, existing := range m.clients {
		if existing.LeadID == params.LeadID {
			id, createdAt = existing.ID, existing.CreatedAt
			break
		}
	}
	c := Client{
		ID:          id,
		LeadID:      params.LeadID,
		Name:        params.Name,
		Mobile:      params.Mobile,
		Email:       cloneString(params.Email),
		City:        params.City,
		Company:     params.Company,
		Address:     params.Address,
		OwnerUserID: cloneUUID(params.OwnerUserID),
		CreatedAt:   createdAt,
	}
	m.clients[c.ID] = c
	return c, nil
}

// Clients returns every stored client.
func (m *Memory) Clients() []Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

func cloneLead(l Lead) Lead {
	l.Email = cloneString(l.Email)
	l.ScoredAt = cloneTime(l.ScoredAt)
	l.AssignedUserID = cloneUUID(l.AssignedUserID)
	l.DistributedAt = cloneTime(l.DistributedAt)
	l.Budget = cloneFloat(l.Budget)
	return l
}

func cloneFollowUp(f FollowUp) FollowUp {
	f.UserID = cloneUUID(f.UserID)
	f.CompletedAt = cloneTime(f.CompletedAt)
	f.MergedFromID = cloneUUID(f.MergedFromID)
	return f
}

func sameUUID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneUUID(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	id := *v
	return &id
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
