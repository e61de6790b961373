package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
)

func ptr(v int64) *int64 { return &v }

// newClockedRepo returns a repo whose clock advances a second per call.
func newClockedRepo() *MemoryRepo {
	r := NewMemoryRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r
}

func TestMemoryRepoDocumentCRUD(t *testing.T) {
	ctx := context.Background()
	r := newClockedRepo()

	d := &document.Document{Title: "Report", Content: "hello", AuthorID: 1}
	require.NoError(t, r.CreateDocument(ctx, d))
	require.NotZero(t, d.ID)
	require.Equal(t, d.CreatedAt, d.UpdatedAt)

	got, err := r.GetDocument(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Content)

	got.Content = "changed"
	again, _ := r.GetDocument(ctx, d.ID)
	require.Equal(t, "hello", again.Content, "reads must not alias stored records")

	upd := &document.Document{ID: d.ID, Title: "Report v2", Content: "new"}
	require.NoError(t, r.UpdateDocument(ctx, upd))
	require.Equal(t, int64(1), upd.AuthorID)
	require.Equal(t, d.CreatedAt, upd.CreatedAt)
	require.True(t, upd.UpdatedAt.After(upd.CreatedAt))

	require.NoError(t, r.DeleteDocument(ctx, d.ID))
	_, err = r.GetDocument(ctx, d.ID)
	require.ErrorIs(t, err, document.ErrNotFound)
	require.ErrorIs(t, r.DeleteDocument(ctx, d.ID), document.ErrNotFound)
	require.ErrorIs(t, r.UpdateDocument(ctx, &document.Document{ID: 99}), document.ErrNotFound)
}

func TestMemoryRepoUnknownCategoryIsValidationError(t *testing.T) {
	ctx := context.Background()
	r := newClockedRepo()
	err := r.CreateDocument(ctx, &document.Document{Title: "x", AuthorID: 1, CategoryID: ptr(42)})
	require.ErrorIs(t, err, document.ErrValidation)

	err = r.CreateCategory(ctx, &document.Category{Name: "child", ParentID: ptr(42)})
	require.ErrorIs(t, err, document.ErrValidation)
}

func TestMemoryRepoDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	r := newClockedRepo()

	root := &document.Category{Name: "Root"}
	require.NoError(t, r.CreateCategory(ctx, root))
	child := &document.Category{Name: "Child", ParentID: ptr(root.ID)}
	require.NoError(t, r.CreateCategory(ctx, child))
	grandchild := &document.Category{Name: "Grandchild", ParentID: ptr(child.ID)}
	require.NoError(t, r.CreateCategory(ctx, grandchild))
	other := &document.Category{Name: "Other"}
	require.NoError(t, r.CreateCategory(ctx, other))

	inGrandchild := &document.Document{Title: "a", AuthorID: 1, CategoryID: ptr(grandchild.ID)}
	require.NoError(t, r.CreateDocument(ctx, inGrandchild))
	inOther := &document.Document{Title: "b", AuthorID: 1, CategoryID: ptr(other.ID)}
	require.NoError(t, r.CreateDocument(ctx, inOther))

	require.NoError(t, r.DeleteCategory(ctx, root.ID))

	for _, id := range []int64{root.ID, child.ID, grandchild.ID} {
		_, err := r.GetCategory(ctx, id)
		require.ErrorIs(t, err, document.ErrNotFound)
	}
	_, err := r.GetCategory(ctx, other.ID)
	require.NoError(t, err)

	got, err := r.GetDocument(ctx, inGrandchild.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID, "document survives with category cleared")

	got, err = r.GetDocument(ctx, inOther.ID)
	require.NoError(t, err)
	require.Equal(t, other.ID, *got.CategoryID)
}

func TestMemoryRepoListCategories(t *testing.T) {
	ctx := context.Background()
	r := newClockedRepo()

	b := &document.Category{Name: "Beta", Description: "second"}
	require.NoError(t, r.CreateCategory(ctx, b))
	a := &document.Category{Name: "Alpha", Description: "first"}
	require.NoError(t, r.CreateCategory(ctx, a))
	sub := &document.Category{Name: "Aardvark", Description: "nested", ParentID: ptr(b.ID)}
	require.NoError(t, r.CreateCategory(ctx, sub))

	all, err := r.ListCategories(ctx, document.CategoryQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"Aardvark", "Alpha", "Beta"}, categoryNames(all))

	roots, err := r.ListCategories(ctx, document.CategoryQuery{RootsOnly: true})
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha", "Beta"}, categoryNames(roots))

	found, err := r.ListCategories(ctx, document.CategoryQuery{Search: "NEST"})
	require.NoError(t, err)
	require.Equal(t, []string{"Aardvark"}, categoryNames(found))

	byAge, err := r.ListCategories(ctx, document.CategoryQuery{
		Ordering: []document.OrderTerm{{Field: "created_at", Desc: true}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Aardvark", "Alpha", "Beta"}, categoryNames(byAge))

	got, err := r.GetCategories(ctx, []int64{a.ID, 999})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Alpha", got[a.ID].Name)
}

func TestMemoryRepoListDocumentsFiltersAndOrdering(t *testing.T) {
	ctx := context.Background()
	r := newClockedRepo()

	cat := &document.Category{Name: "Reports"}
	require.NoError(t, r.CreateCategory(ctx, cat))

	first := &document.Document{Title: "Budget", Content: "numbers", AuthorID: 1, CategoryID: ptr(cat.ID)}
	second := &document.Document{Title: "Agenda", Content: "meeting notes", AuthorID: 2}
	third := &document.Document{Title: "Minutes", Content: "more notes", AuthorID: 1}
	for _, d := range []*document.Document{first, second, third} {
		require.NoError(t, r.CreateDocument(ctx, d))
	}

	newestFirst, err := r.ListDocuments(ctx, document.DocumentQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"Minutes", "Agenda", "Budget"}, documentTitles(newestFirst))

	owned, err := r.ListDocuments(ctx, document.DocumentQuery{OwnerID: ptr(1)})
	require.NoError(t, err)
	require.Equal(t, []string{"Minutes", "Budget"}, documentTitles(owned))

	owned, err = r.ListDocuments(ctx, document.DocumentQuery{OwnerID: ptr(1), AuthorID: ptr(2)})
	require.NoError(t, err)
	require.Empty(t, owned)

	inCat, err := r.ListDocuments(ctx, document.DocumentQuery{CategoryID: ptr(cat.ID)})
	require.NoError(t, err)
	require.Equal(t, []string{"Budget"}, documentTitles(inCat))

	notes, err := r.ListDocuments(ctx, document.DocumentQuery{Search: "Notes"})
	require.NoError(t, err)
	require.Equal(t, []string{"Minutes", "Agenda"}, documentTitles(notes))

	both, err := r.ListDocuments(ctx, document.DocumentQuery{Search: "notes  MEETING"})
	require.NoError(t, err)
	require.Equal(t, []string{"Agenda"}, documentTitles(both), "every term must match a field")

	split, err := r.ListDocuments(ctx, document.DocumentQuery{Search: "agenda notes"})
	require.NoError(t, err)
	require.Equal(t, []string{"Agenda"}, documentTitles(split), "terms may match different fields")

	byTitle, err := r.ListDocuments(ctx, document.DocumentQuery{
		Ordering: []document.OrderTerm{{Field: "title"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Agenda", "Budget", "Minutes"}, documentTitles(byTitle))
}

func categoryNames(cs []*document.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func documentTitles(ds []*document.Document) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Title)
	}
	return out
}
