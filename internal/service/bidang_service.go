package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sipelan-service/internal/db"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
)

type BidangService struct {
	store repository.BidangStore
}

func NewBidangService(store repository.BidangStore) *BidangService {
	return &BidangService{store: store}
}

type BidangInput struct {
	Name        string `json:"nama_bidang" validate:"required,max=255"`
	Code        string `json:"kode_bidang" validate:"required,max=32"`
	Description string `json:"deskripsi"`
}

func (in *BidangInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Description = strings.TrimSpace(in.Description)
}

func (s *BidangService) List(ctx context.Context) ([]model.BidangSummary, error) {
	return s.store.ListBidangWithUsage(ctx)
}

func (s *BidangService) Create(ctx context.Context, principal model.Principal, input BidangInput) (*model.Bidang, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	bidang := &model.Bidang{
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
	}
	if err := s.store.CreateBidang(ctx, bidang); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: kode_bidang %s sudah digunakan", ErrConflict, input.Code)
		}
		return nil, err
	}
	return bidang, nil
}

func (s *BidangService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input BidangInput) (*model.Bidang, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	bidang := &model.Bidang{
		ID:          id,
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
	}
	if err := s.store.UpdateBidang(ctx, bidang); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		case db.IsUniqueViolation(err):
			return nil, fmt.Errorf("%w: kode_bidang %s sudah digunakan", ErrConflict, input.Code)
		default:
			return nil, err
		}
	}
	return s.store.GetBidang(ctx, id)
}

// Delete refuses to remove a department that still has users or complaints.
func (s *BidangService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}
	if _, err := s.store.GetBidang(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	users, complaints, err := s.store.CountBidangUsage(ctx, id)
	if err != nil {
		return err
	}
	if users > 0 || complaints > 0 {
		return fmt.Errorf("%w: bidang masih memiliki %d user dan %d pengaduan", ErrConflict, users, complaints)
	}

	if err := s.store.DeleteBidang(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: bidang masih digunakan", ErrConflict)
		}
		return err
	}
	return nil
}
