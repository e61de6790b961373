package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/internal/models"
)

const (
	MaxTitleLength        = 200
	MaxCategoryNameLength = 100
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError lists per-field problems. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a single-field ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Category is a node in the category hierarchy.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is the stored record. Author and category are foreign keys here;
// the service expands them into nested summaries for responses.
type Document struct {
	ID         int64
	Title      string
	Content    string
	AuthorID   int64
	CategoryID *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListItem is the list shape: no content, nested author and category.
type ListItem struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Author    models.Summary `json:"author"`
	Category  *Category      `json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Detail is the full shape returned by retrieve/create/update.
type Detail struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Author    models.Summary `json:"author"`
	Category  *Category      `json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// OrderTerm is one ordering field with direction.
type OrderTerm struct {
	Field string
	Desc  bool
}

var (
	DocumentOrderFields = []string{"created_at", "updated_at", "title"}
	CategoryOrderFields = []string{"name", "created_at"}

	DefaultDocumentOrder = []OrderTerm{{Field: "created_at", Desc: true}}
	DefaultCategoryOrder = []OrderTerm{{Field: "name"}}
)

// ParseOrdering reads a comma separated list like "-updated_at,title".
// Unknown fields are dropped; when nothing valid remains def is returned.
func ParseOrdering(raw string, allowed []string, def []OrderTerm) []OrderTerm {
	var out []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		for _, a := range allowed {
			if field == a {
				out = append(out, OrderTerm{Field: field, Desc: desc})
				break
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// DocumentQuery filters a document listing. OwnerID is the access-control
// scope; AuthorID/CategoryID are client filters.
type DocumentQuery struct {
	OwnerID    *int64
	AuthorID   *int64
	CategoryID *int64
	Search     string
	Ordering   []OrderTerm
}

// SearchTerms splits a search string on whitespace. A row matches when every
// term occurs, case-insensitively, in at least one of the searched fields.
func SearchTerms(search string) []string {
	return strings.Fields(search)
}

// CategoryQuery filters a category listing.
type CategoryQuery struct {
	RootsOnly bool
	Search    string
	Ordering  []OrderTerm
}

// OptionalID distinguishes an absent JSON field from an explicit null.
type OptionalID struct {
	Set bool
	ID  *int64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.ID = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("expected integer id or null: %w", err)
	}
	o.ID = &id
	return nil
}
