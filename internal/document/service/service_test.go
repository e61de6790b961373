package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/repository"
	"github.com/docdesk/docdesk/backend/go-services/internal/models"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

type fakeDirectory map[int64]models.Summary

func (f fakeDirectory) Summaries(_ context.Context, ids []int64) (map[int64]models.Summary, error) {
	out := map[int64]models.Summary{}
	for _, id := range ids {
		if s, ok := f[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

var (
	alice = &models.User{ID: 1, Username: "alice", IsActive: true}
	bob   = &models.User{ID: 2, Username: "bob", IsActive: true}
	admin = &models.User{ID: 3, Username: "admin", IsActive: true, IsSuperuser: true}
)

func newService(t *testing.T) (*DocumentService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	dir := fakeDirectory{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
		3: {ID: 3, Username: "admin"},
	}
	return New(repository.NewMemoryRepo(), dir, logger.New("info", &buf)), &buf
}

func str(s string) *string { return &s }
func id(v int64) *int64    { return &v }

func TestCreateDocumentSetsAuthorAndLogs(t *testing.T) {
	ctx := context.Background()
	svc, buf := newService(t)

	d, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("Notes"), Content: str("body")})
	require.NoError(t, err)
	require.Equal(t, "alice", d.Author.Username)
	require.Nil(t, d.Category)
	require.Contains(t, buf.String(), "document created by user alice")
}

func TestCreateDocumentValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateDocument(ctx, nil, DocumentInput{Title: str("x")})
	require.ErrorIs(t, err, document.ErrUnauthenticated)

	_, err = svc.CreateDocument(ctx, alice, DocumentInput{})
	require.ErrorIs(t, err, document.ErrValidation)

	_, err = svc.CreateDocument(ctx, alice, DocumentInput{Title: str("   ")})
	require.ErrorIs(t, err, document.ErrValidation)

	_, err = svc.CreateDocument(ctx, alice, DocumentInput{Title: str(strings.Repeat("a", 201))})
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields["title"], "200")

	_, err = svc.CreateDocument(ctx, alice, DocumentInput{Title: str(strings.Repeat("é", 200))})
	require.NoError(t, err)
}

func TestCreateDocumentUnknownCategoryIsIgnored(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	d, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("x"), CategoryID: id(404)})
	require.NoError(t, err)
	require.Nil(t, d.Category)
}

func TestDocumentScoping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	mine, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("alice doc")})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, bob, DocumentInput{Title: str("bob doc")})
	require.NoError(t, err)

	list, err := svc.ListDocuments(ctx, alice, document.DocumentQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "alice doc", list[0].Title)

	list, err = svc.ListDocuments(ctx, nil, document.DocumentQuery{})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = svc.ListDocuments(ctx, admin, document.DocumentQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = svc.GetDocument(ctx, bob, mine.ID)
	require.ErrorIs(t, err, document.ErrNotFound)
	_, err = svc.GetDocument(ctx, nil, mine.ID)
	require.ErrorIs(t, err, document.ErrNotFound)
	_, err = svc.UpdateDocument(ctx, bob, mine.ID, DocumentInput{Title: str("stolen")}, false)
	require.ErrorIs(t, err, document.ErrNotFound)
	require.ErrorIs(t, svc.DeleteDocument(ctx, bob, mine.ID), document.ErrNotFound)

	got, err := svc.GetDocument(ctx, admin, mine.ID)
	require.NoError(t, err)
	require.Equal(t, "alice doc", got.Title)
}

func TestListDocumentsIgnoresCallerOwnerFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.CreateDocument(ctx, bob, DocumentInput{Title: str("bob doc")})
	require.NoError(t, err)

	list, err := svc.ListDocuments(ctx, alice, document.DocumentQuery{OwnerID: id(bob.ID)})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMyDocumentsIgnoresSuperuser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("alice doc")})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, admin, DocumentInput{Title: str("admin doc")})
	require.NoError(t, err)

	list, err := svc.MyDocuments(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "admin doc", list[0].Title)

	_, err = svc.MyDocuments(ctx, nil)
	require.ErrorIs(t, err, document.ErrUnauthenticated)
}

func TestUpdateDocument(t *testing.T) {
	ctx := context.Background()
	svc, buf := newService(t)

	cat, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Reports")})
	require.NoError(t, err)
	d, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("Draft"), Content: str("v1"), CategoryID: id(cat.ID)})
	require.NoError(t, err)
	require.Equal(t, "Reports", d.Category.Name)

	_, err = svc.UpdateDocument(ctx, alice, d.ID, DocumentInput{Content: str("v2")}, true)
	require.ErrorIs(t, err, document.ErrValidation, "full update requires title")

	upd, err := svc.UpdateDocument(ctx, alice, d.ID, DocumentInput{Content: str("v2"), CategoryID: id(999)}, false)
	require.NoError(t, err)
	require.Equal(t, "Draft", upd.Title)
	require.Equal(t, "v2", upd.Content)
	require.NotNil(t, upd.Category, "unknown category leaves the current one")
	require.Equal(t, cat.ID, upd.Category.ID)
	require.False(t, upd.UpdatedAt.Before(d.UpdatedAt))
	require.Contains(t, buf.String(), "updated by user alice")
}

// deletingRepo removes a category between the service reading it and the
// service writing the document that references it.
type deletingRepo struct {
	*repository.MemoryRepo
	onGetCategory int64
	onGetDocument int64
}

func (r *deletingRepo) GetCategory(ctx context.Context, id int64) (*document.Category, error) {
	c, err := r.MemoryRepo.GetCategory(ctx, id)
	if err == nil && id == r.onGetCategory {
		r.onGetCategory = 0
		_ = r.MemoryRepo.DeleteCategory(ctx, id)
	}
	return c, err
}

func (r *deletingRepo) GetDocument(ctx context.Context, id int64) (*document.Document, error) {
	d, err := r.MemoryRepo.GetDocument(ctx, id)
	if err == nil && r.onGetDocument != 0 {
		_ = r.MemoryRepo.DeleteCategory(ctx, r.onGetDocument)
		r.onGetDocument = 0
	}
	return d, err
}

func TestCategoryDeletedDuringDocumentWrite(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryRepo()
	repo := &deletingRepo{MemoryRepo: mem}
	svc := New(repo, fakeDirectory{1: {ID: 1, Username: "alice"}}, logger.Nop())

	gone := &document.Category{Name: "Gone"}
	require.NoError(t, mem.CreateCategory(ctx, gone))
	repo.onGetCategory = gone.ID

	d, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("Memo"), CategoryID: id(gone.ID)})
	require.NoError(t, err)
	require.Nil(t, d.Category)

	kept := &document.Category{Name: "Kept"}
	require.NoError(t, mem.CreateCategory(ctx, kept))
	withCat, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("Plan"), CategoryID: id(kept.ID)})
	require.NoError(t, err)
	require.Equal(t, kept.ID, withCat.Category.ID)

	repo.onGetDocument = kept.ID
	upd, err := svc.UpdateDocument(ctx, alice, withCat.ID, DocumentInput{Title: str("Plan v2")}, false)
	require.NoError(t, err)
	require.Equal(t, "Plan v2", upd.Title)
	require.Nil(t, upd.Category)

	stored, err := mem.GetDocument(ctx, withCat.ID)
	require.NoError(t, err)
	require.Equal(t, "Plan v2", stored.Title)
	require.Nil(t, stored.CategoryID)
}

func TestCategoryCycleRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	root, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Root")})
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Child"), Parent: document.OptionalID{Set: true, ID: id(root.ID)}})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, alice, root.ID, CategoryInput{Parent: document.OptionalID{Set: true, ID: id(child.ID)}}, false)
	require.ErrorIs(t, err, document.ErrValidation)

	_, err = svc.UpdateCategory(ctx, alice, root.ID, CategoryInput{Parent: document.OptionalID{Set: true, ID: id(root.ID)}}, false)
	require.ErrorIs(t, err, document.ErrValidation)

	_, err = svc.UpdateCategory(ctx, alice, root.ID, CategoryInput{Parent: document.OptionalID{Set: true, ID: id(77)}}, false)
	require.ErrorIs(t, err, document.ErrValidation)

	detached, err := svc.UpdateCategory(ctx, alice, child.ID, CategoryInput{Parent: document.OptionalID{Set: true}}, false)
	require.NoError(t, err)
	require.Nil(t, detached.ParentID)
}

func TestCategoryTreeAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	b, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Beta")})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Alpha")})
	require.NoError(t, err)
	sub, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: str("Sub"), Parent: document.OptionalID{Set: true, ID: id(b.ID)}})
	require.NoError(t, err)
	d, err := svc.CreateDocument(ctx, alice, DocumentInput{Title: str("doc"), CategoryID: id(sub.ID)})
	require.NoError(t, err)

	tree, err := svc.CategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Equal(t, "Alpha", tree[0].Name)

	require.ErrorIs(t, svc.DeleteCategory(ctx, nil, b.ID), document.ErrUnauthenticated)
	require.NoError(t, svc.DeleteCategory(ctx, alice, b.ID))

	_, err = svc.GetCategory(ctx, sub.ID)
	require.ErrorIs(t, err, document.ErrNotFound)
	got, err := svc.GetDocument(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Nil(t, got.Category)
}

func TestCreateCategoryRequiresName(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateCategory(context.Background(), alice, CategoryInput{Name: str(strings.Repeat("n", 101))})
	require.ErrorIs(t, err, document.ErrValidation)
	_, err = svc.CreateCategory(context.Background(), alice, CategoryInput{})
	require.ErrorIs(t, err, document.ErrValidation)
}
