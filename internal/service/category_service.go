package service

import (
	"context"
	"fmt"
	"strings"

	"sipelan-service/internal/db"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
)

type CategoryService struct {
	store repository.CategoryStore
}

func NewCategoryService(store repository.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

type CategoryInput struct {
	Name        string `json:"nama_kategori" validate:"required,max=255"`
	Description string `json:"deskripsi"`
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) Create(ctx context.Context, principal model.Principal, input CategoryInput) (*model.Category, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	category := &model.Category{Name: input.Name, Description: input.Description}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: kategori %s sudah ada", ErrConflict, input.Name)
		}
		return nil, err
	}
	return category, nil
}
