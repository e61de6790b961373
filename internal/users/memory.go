package users

import (
	"context"
	"sync"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/internal/models"
)

// MemoryRepository keeps users in process memory. Used by tests and when no
// DATABASE_URL is configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	m.nextID++
	u.ID = m.nextID
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MemoryRepository) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range m.byID {
		if id != u.ID && existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	cur.Username = u.Username
	cur.Email = u.Email
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	return nil
}
