package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
)

var (
	categoryCols = []string{"id", "name", "description", "parent_id", "created_at"}
	documentCols = []string{"id", "title", "content", "author_id", "category_id", "created_at", "updated_at"}
)

func TestPostgresRepo_CreateDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("Plan", "body", int64(3), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	d := &document.Document{Title: "Plan", Content: "body", AuthorID: 3}
	require.NoError(t, NewPostgresRepo(db).CreateDocument(context.Background(), d))
	require.Equal(t, int64(11), d.ID)
	require.Equal(t, now, d.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CreateDocumentForeignKeyViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO documents").WillReturnError(&pgconn.PgError{Code: "23503"})

	cat := int64(9)
	err = NewPostgresRepo(db).CreateDocument(context.Background(), &document.Document{Title: "x", AuthorID: 1, CategoryID: &cat})
	require.ErrorIs(t, err, document.ErrValidation)
}

func TestPostgresRepo_GetDocumentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM documents WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(documentCols))

	_, err = NewPostgresRepo(db).GetDocument(context.Background(), 5)
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestPostgresRepo_ListDocumentsBuildsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	query := regexp.QuoteMeta(`FROM documents WHERE author_id = $1 AND category_id = $2 AND (title ILIKE $3 OR content ILIKE $3) ORDER BY title ASC, id DESC`)
	mock.ExpectQuery(query).
		WithArgs(int64(1), int64(4), `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow(int64(2), "Sale", "50%_off", int64(1), int64(4), now, now))

	owner, cat := int64(1), int64(4)
	docs, err := NewPostgresRepo(db).ListDocuments(context.Background(), document.DocumentQuery{
		OwnerID:    &owner,
		CategoryID: &cat,
		Search:     "50%_off",
		Ordering:   []document.OrderTerm{{Field: "title"}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(4), *docs[0].CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListDocumentsSearchTerms(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	query := regexp.QuoteMeta(`FROM documents WHERE (title ILIKE $1 OR content ILIKE $1) AND (title ILIKE $2 OR content ILIKE $2) ORDER BY created_at DESC, id DESC`)
	mock.ExpectQuery(query).
		WithArgs("%quarterly%", "%report%").
		WillReturnRows(sqlmock.NewRows(documentCols))

	docs, err := NewPostgresRepo(db).ListDocuments(context.Background(), document.DocumentQuery{Search: " quarterly   report "})
	require.NoError(t, err)
	require.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListCategoriesRootsDefaultOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	query := regexp.QuoteMeta(`FROM document_categories WHERE parent_id IS NULL ORDER BY name ASC, id ASC`)
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow(int64(1), "Alpha", "", nil, now).
			AddRow(int64(2), "Beta", "", nil, now))

	cats, err := NewPostgresRepo(db).ListCategories(context.Background(), document.CategoryQuery{RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, cats, 2)
	require.Nil(t, cats[0].ParentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_DeleteCategoryMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM document_categories").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, NewPostgresRepo(db).DeleteCategory(context.Background(), 3), document.ErrNotFound)
}

func TestPostgresRepo_UpdateDocumentReturnsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	mock.ExpectQuery("UPDATE documents SET").
		WithArgs(int64(8), "New", "text", nil).
		WillReturnRows(sqlmock.NewRows([]string{"author_id", "created_at", "updated_at"}).AddRow(int64(2), created, updated))

	d := &document.Document{ID: 8, Title: "New", Content: "text"}
	require.NoError(t, NewPostgresRepo(db).UpdateDocument(context.Background(), d))
	require.Equal(t, int64(2), d.AuthorID)
	require.Equal(t, updated, d.UpdatedAt)
}

func TestLikePatternEscapes(t *testing.T) {
	require.Equal(t, `%a\\b\%c\_d%`, likePattern(`a\b%c_d`))
}
