package inapp

import (
	"context"
	"slices"
	"sync"
	"time"

	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryStore keeps notifications in process. It backs the memory store
// backend and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	if err := validateCreate(p); err != nil {
		return Notification{}, err
	}
	category := p.Category
	if category == "" {
		category = CategoryInfo
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := Notification{
		ID:           uuid.New(),
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: p.ResourceType,
		Category:     category,
		CreatedAt:    m.now().UTC(),
	}
	m.items = append(m.items, n)
	return n, nil
}

func (m *MemoryStore) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	own := make([]Notification, 0)
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			own = append(own, m.items[i])
		}
	}
	total := len(own)
	start := min(offset, total)
	end := min(start+limit, total)
	return slices.Clone(own[start:end]), total, nil
}

func (m *MemoryStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification not found").WithOp(opMarkRead)
}

func (m *MemoryStore) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].UserID == userID {
			m.items[i].IsRead = true
		}
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, notificationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].UserID == userID {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return apperr.NotFound("notification not found").WithOp(opDelete)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
