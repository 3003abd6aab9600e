package library

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/user/vidnest/internal/model"
	"github.com/user/vidnest/internal/store"
)

const maxCategoryName = 100

// CategoryInput is a request to create a category
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Categories lists all categories
func (s *Service) Categories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []*model.Category{}
	}
	return categories, nil
}

// CreateCategory adds a global category; names are unique case-insensitively
func (s *Service) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*model.Category, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	v := validator{}
	v.check(name != "", "name", "name is required")
	v.check(utf8.RuneCountInString(name) <= maxCategoryName, "name", "name is too long")
	v.check(len(in.Description) <= 500, "description", "description is too long")
	if err := v.err(); err != nil {
		return nil, err
	}

	c := &model.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   &userID,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category; only admins may do so. The role is read
// from the store so a demotion applies before older sessions expire. Videos
// in the category become uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, userID uint, id uint) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return s.store.DeleteCategory(ctx, id)
}
