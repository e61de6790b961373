package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
)

// PostgresRepo stores categories and documents in Postgres. Cascade and
// set-null behaviour come from the foreign keys in the migrations.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const (
	categoryColumns = `id, name, description, parent_id, created_at`
	documentColumns = `id, title, content, author_id, category_id, created_at, updated_at`
)

type scanner interface{ Scan(...any) error }

func scanCategory(row scanner) (*document.Category, error) {
	var c document.Category
	var parent sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &parent, &c.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return &c, nil
}

func scanDocument(row scanner) (*document.Document, error) {
	var d document.Document
	var cat sql.NullInt64
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.AuthorID, &cat, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if cat.Valid {
		d.CategoryID = &cat.Int64
	}
	return &d, nil
}

func nullableID(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// mapFKError turns a foreign key violation into a field validation error.
func mapFKError(err error, field string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return document.Invalid(field, "referenced object does not exist")
	}
	return err
}

// likePattern escapes LIKE metacharacters and wraps s in wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func orderClause(terms []document.OrderTerm, columns map[string]string, tiebreak string) string {
	parts := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		col, ok := columns[t.Field]
		if !ok {
			continue
		}
		if t.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	parts = append(parts, tiebreak)
	return " ORDER BY " + strings.Join(parts, ", ")
}

var (
	categoryOrderColumns = map[string]string{"name": "name", "created_at": "created_at"}
	documentOrderColumns = map[string]string{"created_at": "created_at", "updated_at": "updated_at", "title": "title"}
)

func (r *PostgresRepo) CreateCategory(ctx context.Context, c *document.Category) error {
	const query = `
INSERT INTO document_categories (name, description, parent_id)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Description, nullableID(c.ParentID)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapFKError(err, "parent"))
	}
	return nil
}

func (r *PostgresRepo) GetCategory(ctx context.Context, id int64) (*document.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM document_categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) GetCategories(ctx context.Context, ids []int64) (map[int64]*document.Category, error) {
	out := make(map[int64]*document.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM document_categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListCategories(ctx context.Context, q document.CategoryQuery) ([]*document.Category, error) {
	var where []string
	var args []any
	if q.RootsOnly {
		where = append(where, "parent_id IS NULL")
	}
	for _, term := range document.SearchTerms(q.Search) {
		args = append(args, likePattern(term))
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + categoryColumns + ` FROM document_categories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	terms := q.Ordering
	if len(terms) == 0 {
		terms = document.DefaultCategoryOrder
	}
	query += orderClause(terms, categoryOrderColumns, "id ASC")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	out := []*document.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateCategory(ctx context.Context, c *document.Category) error {
	const query = `
UPDATE document_categories SET name = $2, description = $3, parent_id = $4
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Description, nullableID(c.ParentID))
	if err != nil {
		return fmt.Errorf("update category: %w", mapFKError(err, "parent"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) CreateDocument(ctx context.Context, d *document.Document) error {
	const query = `
INSERT INTO documents (title, content, author_id, category_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, d.Title, d.Content, d.AuthorID, nullableID(d.CategoryID)).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", mapFKError(err, "category_id"))
	}
	return nil
}

func (r *PostgresRepo) GetDocument(ctx context.Context, id int64) (*document.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	return d, err
}

func (r *PostgresRepo) ListDocuments(ctx context.Context, q document.DocumentQuery) ([]*document.Document, error) {
	var where []string
	var args []any
	if q.OwnerID != nil {
		args = append(args, *q.OwnerID)
		where = append(where, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if q.AuthorID != nil {
		args = append(args, *q.AuthorID)
		where = append(where, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if q.CategoryID != nil {
		args = append(args, *q.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	for _, term := range document.SearchTerms(q.Search) {
		args = append(args, likePattern(term))
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	terms := q.Ordering
	if len(terms) == 0 {
		terms = document.DefaultDocumentOrder
	}
	query += orderClause(terms, documentOrderColumns, "id DESC")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := []*document.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateDocument(ctx context.Context, d *document.Document) error {
	const query = `
UPDATE documents SET title = $2, content = $3, category_id = $4, updated_at = now()
WHERE id = $1
RETURNING author_id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.Title, d.Content, nullableID(d.CategoryID)).
		Scan(&d.AuthorID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return document.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update document: %w", mapFKError(err, "category_id"))
	}
	return nil
}

func (r *PostgresRepo) DeleteDocument(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}
	return nil
}
