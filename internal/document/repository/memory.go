package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
)

// MemoryRepo is an in-memory Repository used by unit tests and for running
// the API without Postgres.
type MemoryRepo struct {
	mu         sync.RWMutex
	nextCat    int64
	nextDoc    int64
	categories map[int64]*document.Category
	documents  map[int64]*document.Document
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		categories: make(map[int64]*document.Category),
		documents:  make(map[int64]*document.Document),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyCategory(c *document.Category) *document.Category {
	cp := *c
	cp.ParentID = copyID(c.ParentID)
	return &cp
}

func copyDocument(d *document.Document) *document.Document {
	cp := *d
	cp.CategoryID = copyID(d.CategoryID)
	return &cp
}

func (m *MemoryRepo) CreateCategory(ctx context.Context, c *document.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ParentID != nil {
		if _, ok := m.categories[*c.ParentID]; !ok {
			return document.Invalid("parent", "category does not exist")
		}
	}
	m.nextCat++
	c.ID = m.nextCat
	c.CreatedAt = m.now()
	m.categories[c.ID] = copyCategory(c)
	return nil
}

func (m *MemoryRepo) GetCategory(ctx context.Context, id int64) (*document.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return copyCategory(c), nil
}

func (m *MemoryRepo) GetCategories(ctx context.Context, ids []int64) (map[int64]*document.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]*document.Category, len(ids))
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			out[id] = copyCategory(c)
		}
	}
	return out, nil
}

func (m *MemoryRepo) ListCategories(ctx context.Context, q document.CategoryQuery) ([]*document.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := document.SearchTerms(q.Search)
	out := make([]*document.Category, 0, len(m.categories))
	for _, c := range m.categories {
		if q.RootsOnly && c.ParentID != nil {
			continue
		}
		if !matchesAll(terms, c.Name, c.Description) {
			continue
		}
		out = append(out, copyCategory(c))
	}
	order := q.Ordering
	if len(order) == 0 {
		order = document.DefaultCategoryOrder
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, t := range order {
			var cmp int
			switch t.Field {
			case "name":
				cmp = strings.Compare(out[i].Name, out[j].Name)
			case "created_at":
				cmp = out[i].CreatedAt.Compare(out[j].CreatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) != t.Desc
			}
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) UpdateCategory(ctx context.Context, c *document.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.categories[c.ID]
	if !ok {
		return document.ErrNotFound
	}
	if c.ParentID != nil {
		if _, ok := m.categories[*c.ParentID]; !ok {
			return document.Invalid("parent", "category does not exist")
		}
	}
	cur.Name = c.Name
	cur.Description = c.Description
	cur.ParentID = copyID(c.ParentID)
	return nil
}

// DeleteCategory removes the category and every descendant, then clears
// category on documents that referenced any of them.
func (m *MemoryRepo) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return document.ErrNotFound
	}
	doomed := map[int64]bool{id: true}
	for queue := []int64{id}; len(queue) > 0; queue = queue[1:] {
		for cid, c := range m.categories {
			if c.ParentID != nil && *c.ParentID == queue[0] && !doomed[cid] {
				doomed[cid] = true
				queue = append(queue, cid)
			}
		}
	}
	for cid := range doomed {
		delete(m.categories, cid)
	}
	for _, d := range m.documents {
		if d.CategoryID != nil && doomed[*d.CategoryID] {
			d.CategoryID = nil
		}
	}
	return nil
}

func (m *MemoryRepo) CreateDocument(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.CategoryID != nil {
		if _, ok := m.categories[*d.CategoryID]; !ok {
			return document.Invalid("category_id", "category does not exist")
		}
	}
	m.nextDoc++
	d.ID = m.nextDoc
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	m.documents[d.ID] = copyDocument(d)
	return nil
}

func (m *MemoryRepo) GetDocument(ctx context.Context, id int64) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return copyDocument(d), nil
}

func matchesAll(terms []string, fields ...string) bool {
	for _, term := range terms {
		term = strings.ToLower(term)
		hit := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func matchesID(filter *int64, v *int64) bool {
	if filter == nil {
		return true
	}
	return v != nil && *v == *filter
}

func (m *MemoryRepo) ListDocuments(ctx context.Context, q document.DocumentQuery) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := document.SearchTerms(q.Search)
	out := make([]*document.Document, 0, len(m.documents))
	for _, d := range m.documents {
		author := d.AuthorID
		if !matchesID(q.OwnerID, &author) || !matchesID(q.AuthorID, &author) || !matchesID(q.CategoryID, d.CategoryID) {
			continue
		}
		if !matchesAll(search, d.Title, d.Content) {
			continue
		}
		out = append(out, copyDocument(d))
	}
	terms := q.Ordering
	if len(terms) == 0 {
		terms = document.DefaultDocumentOrder
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, t := range terms {
			var cmp int
			switch t.Field {
			case "created_at":
				cmp = out[i].CreatedAt.Compare(out[j].CreatedAt)
			case "updated_at":
				cmp = out[i].UpdatedAt.Compare(out[j].UpdatedAt)
			case "title":
				cmp = strings.Compare(out[i].Title, out[j].Title)
			}
			if cmp != 0 {
				return (cmp < 0) != t.Desc
			}
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) UpdateDocument(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.documents[d.ID]
	if !ok {
		return document.ErrNotFound
	}
	if d.CategoryID != nil {
		if _, ok := m.categories[*d.CategoryID]; !ok {
			return document.Invalid("category_id", "category does not exist")
		}
	}
	cur.Title = d.Title
	cur.Content = d.Content
	cur.CategoryID = copyID(d.CategoryID)
	cur.UpdatedAt = m.now()
	d.UpdatedAt = cur.UpdatedAt
	d.CreatedAt = cur.CreatedAt
	d.AuthorID = cur.AuthorID
	return nil
}

func (m *MemoryRepo) DeleteDocument(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return document.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}
