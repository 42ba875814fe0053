package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sipelan-service/internal/model"
)

type ComplaintFilter struct {
	Statuses   []model.ComplaintStatus
	BidangID   *uuid.UUID
	CategoryID *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// StateChange is the mutable part of a complaint written by a transition.
// A nil BidangID keeps the current department.
type StateChange struct {
	Status   model.ComplaintStatus
	BidangID *uuid.UUID
	At       time.Time
}

// LifecycleStore is everything the complaint lifecycle reads and writes.
// Transaction calls nest: an inner call is a savepoint whose failure does
// not abort the outer transaction.
type LifecycleStore interface {
	Transaction(ctx context.Context, fn func(tx LifecycleStore) error) error

	NextTicketSequence(ctx context.Context, period string) (int64, error)
	CreateComplaint(ctx context.Context, complaint *model.Complaint) error
	GetComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error)
	LockComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error)
	GetComplaintByCode(ctx context.Context, code string) (*model.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, int64, error)
	CountByStatus(ctx context.Context, filter ComplaintFilter) (map[model.ComplaintStatus]int64, error)
	UpdateComplaintState(ctx context.Context, id uuid.UUID, change StateChange) error

	AppendHistory(ctx context.Context, entry *model.StatusHistory) error
	ListHistory(ctx context.Context, complaintID uuid.UUID) ([]model.StatusHistory, error)

	CreateDisposition(ctx context.Context, disposition *model.Disposition) error
	ListDispositions(ctx context.Context, complaintID uuid.UUID) ([]model.Disposition, error)

	EnqueueOutbox(ctx context.Context, msg *model.OutboxMessage) error

	GetBidang(ctx context.Context, id uuid.UUID) (*model.Bidang, error)
	GetBidangByCode(ctx context.Context, code string) (*model.Bidang, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
}

type BidangStore interface {
	ListBidangWithUsage(ctx context.Context) ([]model.BidangSummary, error)
	GetBidang(ctx context.Context, id uuid.UUID) (*model.Bidang, error)
	CreateBidang(ctx context.Context, bidang *model.Bidang) error
	UpdateBidang(ctx context.Context, bidang *model.Bidang) error
	CountBidangUsage(ctx context.Context, id uuid.UUID) (users int64, complaints int64, err error)
	DeleteBidang(ctx context.Context, id uuid.UUID) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}

type OutboxStore interface {
	// ClaimDueOutbox marks up to limit due messages as processing and returns
	// them. Messages stuck in processing since before staleBefore are reclaimed.
	ClaimDueOutbox(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkOutboxRetry(ctx context.Context, id uuid.UUID, update OutboxRetry) error
}

type OutboxRetry struct {
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	Failed        bool
}
