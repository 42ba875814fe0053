package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sipelan-service/internal/db"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user model.User) (string, time.Time, error)
}

type AuthService struct {
	users    repository.UserStore
	bidang   repository.BidangStore
	issuer   TokenIssuer
	hashCost int
}

func NewAuthService(users repository.UserStore, bidang repository.BidangStore, issuer TokenIssuer) *AuthService {
	return &AuthService{users: users, bidang: bidang, issuer: issuer, hashCost: bcrypt.DefaultCost}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        model.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email atau password salah", ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: email atau password salah", ErrUnauthorized)
	}

	token, expiresAt, err := s.issuer.Issue(*user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        *user,
	}, nil
}

func (s *AuthService) Me(ctx context.Context, principal model.Principal) (*model.User, error) {
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

type CreateUserInput struct {
	Name     string `json:"nama" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin petugas"`
	BidangID string `json:"bidang_id" validate:"omitempty,uuid"`
}

func (s *AuthService) CreateUser(ctx context.Context, principal model.Principal, input CreateUserInput) (*model.User, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	role := model.UserRole(input.Role)
	var bidangID *uuid.UUID
	if input.BidangID != "" {
		id := uuid.MustParse(input.BidangID)
		if _, err := s.bidang.GetBidang(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: bidang_id tidak ditemukan", ErrInvalidInput)
			}
			return nil, err
		}
		bidangID = &id
	}
	if role == model.UserRolePetugas && bidangID == nil {
		return nil, fmt.Errorf("%w: petugas wajib memiliki bidang_id", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		BidangID:     bidangID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %s sudah terdaftar", ErrConflict, input.Email)
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when no user owns email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	bootstrap := model.Principal{Role: model.UserRoleAdmin}
	_, err := s.CreateUser(ctx, bootstrap, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(model.UserRoleAdmin),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
