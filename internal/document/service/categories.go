package service

import (
	"context"
	"errors"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
	"github.com/docdesk/docdesk/backend/go-services/internal/models"
)

func (s *DocumentService) ListCategories(ctx context.Context, q document.CategoryQuery) ([]*document.Category, error) {
	return s.repo.ListCategories(ctx, q)
}

// CategoryTree returns the root categories ordered by name.
func (s *DocumentService) CategoryTree(ctx context.Context) ([]*document.Category, error) {
	return s.repo.ListCategories(ctx, document.CategoryQuery{RootsOnly: true, Ordering: document.DefaultCategoryOrder})
}

func (s *DocumentService) GetCategory(ctx context.Context, id int64) (*document.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *DocumentService) CreateCategory(ctx context.Context, actor *models.User, in CategoryInput) (*document.Category, error) {
	if actor == nil {
		return nil, document.ErrUnauthenticated
	}
	if in.Name == nil {
		return nil, document.Invalid("name", msgRequired)
	}
	if err := validateName(*in.Name); err != nil {
		return nil, err
	}
	c := &document.Category{Name: *in.Name, ParentID: in.Parent.ID}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DocumentService) UpdateCategory(ctx context.Context, actor *models.User, id int64, in CategoryInput, full bool) (*document.Category, error) {
	if actor == nil {
		return nil, document.ErrUnauthenticated
	}
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if full && in.Name == nil {
		return nil, document.Invalid("name", msgRequired)
	}
	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Parent.Set {
		if err := s.checkParent(ctx, id, in.Parent.ID); err != nil {
			return nil, err
		}
		c.ParentID = in.Parent.ID
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DocumentService) DeleteCategory(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return document.ErrUnauthenticated
	}
	return s.repo.DeleteCategory(ctx, id)
}

// checkParent rejects a parent that is the category itself or one of its
// descendants. A missing parent is reported by the repository.
func (s *DocumentService) checkParent(ctx context.Context, id int64, parent *int64) error {
	seen := map[int64]bool{}
	for cur := parent; cur != nil; {
		if *cur == id {
			return document.Invalid("parent", "A category cannot be its own ancestor.")
		}
		if seen[*cur] {
			return nil
		}
		seen[*cur] = true
		c, err := s.repo.GetCategory(ctx, *cur)
		if errors.Is(err, document.ErrNotFound) {
			return document.Invalid("parent", "category does not exist")
		}
		if err != nil {
			return err
		}
		cur = c.ParentID
	}
	return nil
}
