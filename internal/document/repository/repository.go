package repository

import (
	"context"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
)

// Repository persists categories and documents. Implementations must honour
// the relational semantics: deleting a category deletes its descendants and
// clears category on documents that pointed at any deleted category.
type Repository interface {
	CreateCategory(ctx context.Context, c *document.Category) error
	GetCategory(ctx context.Context, id int64) (*document.Category, error)
	GetCategories(ctx context.Context, ids []int64) (map[int64]*document.Category, error)
	ListCategories(ctx context.Context, q document.CategoryQuery) ([]*document.Category, error)
	UpdateCategory(ctx context.Context, c *document.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateDocument(ctx context.Context, d *document.Document) error
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	ListDocuments(ctx context.Context, q document.DocumentQuery) ([]*document.Document, error)
	UpdateDocument(ctx context.Context, d *document.Document) error
	DeleteDocument(ctx context.Context, id int64) error
}
