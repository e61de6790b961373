package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/repository"
	"github.com/docdesk/docdesk/backend/go-services/internal/models"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

// Service defines the document and category operations used by the handler
// layer. A nil actor is an anonymous caller.
type Service interface {
	ListDocuments(ctx context.Context, actor *models.User, q document.DocumentQuery) ([]document.ListItem, error)
	MyDocuments(ctx context.Context, actor *models.User) ([]document.ListItem, error)
	GetDocument(ctx context.Context, actor *models.User, id int64) (*document.Detail, error)
	CreateDocument(ctx context.Context, actor *models.User, in DocumentInput) (*document.Detail, error)
	UpdateDocument(ctx context.Context, actor *models.User, id int64, in DocumentInput, full bool) (*document.Detail, error)
	DeleteDocument(ctx context.Context, actor *models.User, id int64) error

	ListCategories(ctx context.Context, q document.CategoryQuery) ([]*document.Category, error)
	CategoryTree(ctx context.Context) ([]*document.Category, error)
	GetCategory(ctx context.Context, id int64) (*document.Category, error)
	CreateCategory(ctx context.Context, actor *models.User, in CategoryInput) (*document.Category, error)
	UpdateCategory(ctx context.Context, actor *models.User, id int64, in CategoryInput, full bool) (*document.Category, error)
	DeleteCategory(ctx context.Context, actor *models.User, id int64) error
}

// UserDirectory resolves author summaries for responses.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []int64) (map[int64]models.Summary, error)
}

// DocumentInput carries writable document fields; nil means not supplied.
type DocumentInput struct {
	Title      *string
	Content    *string
	CategoryID *int64
}

// CategoryInput carries writable category fields. Parent distinguishes an
// explicit null (detach) from an absent field.
type CategoryInput struct {
	Name        *string
	Description *string
	Parent      document.OptionalID
}

// DocumentService implements Service on top of a Repository.
type DocumentService struct {
	repo  repository.Repository
	users UserDirectory
	log   *logger.Logger
}

func New(repo repository.Repository, users UserDirectory, log *logger.Logger) *DocumentService {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentService{repo: repo, users: users, log: log}
}

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return document.Invalid("title", msgBlank)
	}
	if utf8.RuneCountInString(title) > document.MaxTitleLength {
		return document.Invalid("title", fmt.Sprintf("Ensure this field has no more than %d characters.", document.MaxTitleLength))
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return document.Invalid("name", msgBlank)
	}
	if utf8.RuneCountInString(name) > document.MaxCategoryNameLength {
		return document.Invalid("name", fmt.Sprintf("Ensure this field has no more than %d characters.", document.MaxCategoryNameLength))
	}
	return nil
}

// visible reports whether actor may see d.
func visible(actor *models.User, d *document.Document) bool {
	if actor == nil {
		return false
	}
	return actor.IsSuperuser || d.AuthorID == actor.ID
}

func (s *DocumentService) ListDocuments(ctx context.Context, actor *models.User, q document.DocumentQuery) ([]document.ListItem, error) {
	if actor == nil {
		return []document.ListItem{}, nil
	}
	q.OwnerID = nil
	if !actor.IsSuperuser {
		id := actor.ID
		q.OwnerID = &id
	}
	docs, err := s.repo.ListDocuments(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, docs)
}

func (s *DocumentService) MyDocuments(ctx context.Context, actor *models.User) ([]document.ListItem, error) {
	if actor == nil {
		return nil, document.ErrUnauthenticated
	}
	id := actor.ID
	docs, err := s.repo.ListDocuments(ctx, document.DocumentQuery{OwnerID: &id, Ordering: document.DefaultDocumentOrder})
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, docs)
}

func (s *DocumentService) GetDocument(ctx context.Context, actor *models.User, id int64) (*document.Detail, error) {
	d, err := s.scopedDocument(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, d)
}

func (s *DocumentService) CreateDocument(ctx context.Context, actor *models.User, in DocumentInput) (*document.Detail, error) {
	if actor == nil {
		return nil, document.ErrUnauthenticated
	}
	if in.Title == nil {
		return nil, document.Invalid("title", msgRequired)
	}
	if err := validateTitle(*in.Title); err != nil {
		return nil, err
	}
	d := &document.Document{Title: *in.Title, AuthorID: actor.ID}
	if in.Content != nil {
		d.Content = *in.Content
	}
	cat, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	d.CategoryID = cat
	err = s.repo.CreateDocument(ctx, d)
	if d.CategoryID != nil && categoryVanished(err) {
		d.CategoryID = nil
		err = s.repo.CreateDocument(ctx, d)
	}
	if err != nil {
		return nil, err
	}
	s.log.Infof("document created by user %s", actor.Username)
	return s.detail(ctx, d)
}

func (s *DocumentService) UpdateDocument(ctx context.Context, actor *models.User, id int64, in DocumentInput, full bool) (*document.Detail, error) {
	if actor == nil {
		return nil, document.ErrUnauthenticated
	}
	d, err := s.scopedDocument(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if full && in.Title == nil {
		return nil, document.Invalid("title", msgRequired)
	}
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		d.Title = *in.Title
	}
	if in.Content != nil {
		d.Content = *in.Content
	}
	if in.CategoryID != nil {
		cat, err := s.resolveCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			d.CategoryID = cat
		}
	}
	err = s.repo.UpdateDocument(ctx, d)
	if d.CategoryID != nil && categoryVanished(err) {
		// The category was deleted after it was read; keep whatever the row holds now.
		cur, gerr := s.repo.GetDocument(ctx, d.ID)
		if gerr != nil {
			return nil, gerr
		}
		d.CategoryID = cur.CategoryID
		err = s.repo.UpdateDocument(ctx, d)
	}
	if err != nil {
		return nil, err
	}
	s.log.Infof("document %d updated by user %s", d.ID, actor.Username)
	return s.detail(ctx, d)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return document.ErrUnauthenticated
	}
	if _, err := s.scopedDocument(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteDocument(ctx, id)
}

// scopedDocument loads a document and hides it when the actor may not see it.
func (s *DocumentService) scopedDocument(ctx context.Context, actor *models.User, id int64) (*document.Document, error) {
	d, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, d) {
		return nil, document.ErrNotFound
	}
	return d, nil
}

// resolveCategory returns id when it names an existing category and nil
// when it does not.
func (s *DocumentService) resolveCategory(ctx context.Context, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	if _, err := s.repo.GetCategory(ctx, *id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	v := *id
	return &v, nil
}

// categoryVanished reports whether a write failed because its category_id
// no longer references a row.
func categoryVanished(err error) bool {
	var ve *document.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	_, ok := ve.Fields["category_id"]
	return ok
}

func (s *DocumentService) lookups(ctx context.Context, docs []*document.Document) (map[int64]models.Summary, map[int64]*document.Category, error) {
	authorIDs := make([]int64, 0, len(docs))
	catIDs := make([]int64, 0, len(docs))
	seenA, seenC := map[int64]bool{}, map[int64]bool{}
	for _, d := range docs {
		if !seenA[d.AuthorID] {
			seenA[d.AuthorID] = true
			authorIDs = append(authorIDs, d.AuthorID)
		}
		if d.CategoryID != nil && !seenC[*d.CategoryID] {
			seenC[*d.CategoryID] = true
			catIDs = append(catIDs, *d.CategoryID)
		}
	}
	authors, err := s.users.Summaries(ctx, authorIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load authors: %w", err)
	}
	cats, err := s.repo.GetCategories(ctx, catIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}
	return authors, cats, nil
}

func author(authors map[int64]models.Summary, id int64) models.Summary {
	if a, ok := authors[id]; ok {
		return a
	}
	return models.Summary{ID: id}
}

func category(cats map[int64]*document.Category, id *int64) *document.Category {
	if id == nil {
		return nil
	}
	return cats[*id]
}

func (s *DocumentService) listItems(ctx context.Context, docs []*document.Document) ([]document.ListItem, error) {
	authors, cats, err := s.lookups(ctx, docs)
	if err != nil {
		return nil, err
	}
	out := make([]document.ListItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, document.ListItem{
			ID:        d.ID,
			Title:     d.Title,
			Author:    author(authors, d.AuthorID),
			Category:  category(cats, d.CategoryID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return out, nil
}

func (s *DocumentService) detail(ctx context.Context, d *document.Document) (*document.Detail, error) {
	authors, cats, err := s.lookups(ctx, []*document.Document{d})
	if err != nil {
		return nil, err
	}
	return &document.Detail{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		Author:    author(authors, d.AuthorID),
		Category:  category(cats, d.CategoryID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
