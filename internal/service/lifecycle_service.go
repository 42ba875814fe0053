package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sipelan-service/internal/db"
	"sipelan-service/internal/events"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
	"sipelan-service/internal/storage"
)

const (
	maxTicketAttempts = 3
	defaultPageLimit  = 10
	maxPageLimit      = 100
	maxListOffset     = math.MaxInt32
)

// NotificationRenderer turns lifecycle changes into reporter emails.
type NotificationRenderer interface {
	SubmissionReceipt(complaint model.Complaint) (subject string, html string, err error)
	StatusChange(complaint model.Complaint, from, to model.ComplaintStatus, note string) (subject string, html string, err error)
}

// OutboxKicker wakes the outbox dispatcher after new rows are committed.
type OutboxKicker interface {
	Kick()
}

type LifecycleOptions struct {
	Location          *time.Location
	Policy            TransitionPolicy
	SubmissionReceipt bool
	PublishEvents     bool
	OperationTimeout  time.Duration
}

type LifecycleService struct {
	store    repository.LifecycleStore
	evidence storage.EvidenceStore
	renderer NotificationRenderer
	kicker   OutboxKicker
	logger   zerolog.Logger
	opts     LifecycleOptions
	now      func() time.Time
}

func NewLifecycleService(
	store repository.LifecycleStore,
	evidence storage.EvidenceStore,
	renderer NotificationRenderer,
	kicker OutboxKicker,
	logger zerolog.Logger,
	opts LifecycleOptions,
) *LifecycleService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Policy == nil {
		opts.Policy = PermissivePolicy{}
	}
	return &LifecycleService{
		store:    store,
		evidence: evidence,
		renderer: renderer,
		kicker:   kicker,
		logger:   logger.With().Str("component", "lifecycle").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

type SubmitComplaintInput struct {
	CategoryID    string `json:"kategori_id" validate:"required,uuid"`
	Title         string `json:"judul_pengaduan" validate:"required,max=255"`
	Body          string `json:"isi_pengaduan" validate:"required"`
	Location      string `json:"lokasi_kejadian"`
	IncidentDate  string `json:"tanggal_kejadian" validate:"omitempty,datetime=2006-01-02"`
	ReporterName  string `json:"nama_pelapor" validate:"required,max=255"`
	ReporterEmail string `json:"email_pelapor" validate:"required,email,max=255"`
	ReporterPhone string `json:"telepon_pelapor" validate:"required,max=32"`
	Anonymous     bool   `json:"anonim"`

	Evidence *storage.Upload `json:"-"`
}

func (in *SubmitComplaintInput) normalize() {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Location = strings.TrimSpace(in.Location)
	in.IncidentDate = strings.TrimSpace(in.IncidentDate)
	in.ReporterName = strings.TrimSpace(in.ReporterName)
	in.ReporterEmail = strings.TrimSpace(in.ReporterEmail)
	in.ReporterPhone = strings.TrimSpace(in.ReporterPhone)
}

func (s *LifecycleService) Submit(ctx context.Context, input SubmitComplaintInput) (*model.SubmissionReceipt, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}
	categoryID := uuid.MustParse(input.CategoryID)

	var incidentDate *time.Time
	if input.IncidentDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", input.IncidentDate, s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: tanggal_kejadian harus berformat 2006-01-02", ErrInvalidInput)
		}
		incidentDate = &parsed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: kategori tidak ditemukan", ErrInvalidInput)
		}
		return nil, err
	}

	var evidencePath *string
	if input.Evidence != nil {
		path, err := s.evidence.Save(ctx, *input.Evidence)
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, fmt.Errorf("%w: ukuran bukti_file melebihi batas", ErrInvalidInput)
			}
			return nil, fmt.Errorf("store evidence: %w", err)
		}
		evidencePath = &path
	}

	now := s.now().UTC()
	complaint := &model.Complaint{
		CategoryID:    categoryID,
		Title:         input.Title,
		Body:          input.Body,
		Location:      optionalString(input.Location),
		IncidentDate:  incidentDate,
		ReporterName:  input.ReporterName,
		ReporterEmail: input.ReporterEmail,
		ReporterPhone: input.ReporterPhone,
		Anonymous:     input.Anonymous,
		EvidencePath:  evidencePath,
		Status:        model.ComplaintStatusMasuk,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	complaint.Redact()

	period := TicketPeriod(now, s.opts.Location)
	var err error
	for attempt := 1; attempt <= maxTicketAttempts; attempt++ {
		err = s.store.Transaction(ctx, func(tx repository.LifecycleStore) error {
			return s.createComplaint(ctx, tx, complaint, period)
		})
		if err == nil || !db.IsUniqueViolation(err) {
			break
		}
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("kode_pengaduan", complaint.Code).
			Msg("ticket code collision, retrying")
	}
	if err != nil {
		if evidencePath != nil {
			if cleanupErr := s.evidence.Delete(context.WithoutCancel(ctx), *evidencePath); cleanupErr != nil {
				RecordAuxiliaryFailure(s.logger, stepEvidenceClean, uuid.Nil, cleanupErr)
			}
		}
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: kode pengaduan tidak dapat dibuat", ErrConflict)
		}
		return nil, err
	}
	s.kick()

	s.logger.Info().
		Str("pengaduan_id", complaint.ID.String()).
		Str("kode_pengaduan", complaint.Code).
		Bool("anonim", complaint.Anonymous).
		Msg("complaint submitted")

	return &model.SubmissionReceipt{
		ID:        complaint.ID,
		Code:      complaint.Code,
		Title:     complaint.Title,
		CreatedAt: complaint.CreatedAt,
	}, nil
}

func (s *LifecycleService) createComplaint(ctx context.Context, tx repository.LifecycleStore, complaint *model.Complaint, period string) error {
	code, err := s.nextTicketCode(ctx, tx, period)
	if err != nil {
		return err
	}
	complaint.ID = uuid.New()
	complaint.Code = code
	if err := tx.CreateComplaint(ctx, complaint); err != nil {
		return err
	}

	s.appendHistory(ctx, tx, &model.StatusHistory{
		ComplaintID: complaint.ID,
		Status:      model.ComplaintStatusMasuk,
		Note:        statusNote(model.ComplaintStatusMasuk),
		CreatedAt:   complaint.CreatedAt,
	})

	if s.opts.SubmissionReceipt && complaint.Notifiable() {
		subject, html, renderErr := s.renderer.SubmissionReceipt(*complaint)
		if renderErr != nil {
			RecordAuxiliaryFailure(s.logger, stepOutboxEnqueue, complaint.ID, renderErr)
		} else {
			s.enqueueEmail(ctx, tx, complaint, subject, html)
		}
	}
	s.enqueueEvent(ctx, tx, complaint, events.ActionComplaintCreated, nil)
	return nil
}

// nextTicketCode advances the period counter past codes that already exist,
// e.g. rows imported before the counter was seeded.
func (s *LifecycleService) nextTicketCode(ctx context.Context, tx repository.LifecycleStore, period string) (string, error) {
	for attempt := 1; attempt <= maxTicketAttempts; attempt++ {
		seq, err := tx.NextTicketSequence(ctx, period)
		if err != nil {
			return "", fmt.Errorf("next ticket sequence: %w", err)
		}
		code := FormatTicketCode(period, seq)
		_, err = tx.GetComplaintByCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: kode pengaduan tidak dapat dibuat", ErrConflict)
}

type UpdateStatusInput struct {
	Status     string `json:"status" validate:"required"`
	BidangCode string `json:"kode_bidang"`
}

func (s *LifecycleService) UpdateStatus(ctx context.Context, principal model.Principal, complaintID uuid.UUID, input UpdateStatusInput) (*model.Complaint, error) {
	input.BidangCode = strings.TrimSpace(input.BidangCode)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	target, ok := model.ParseComplaintStatus(input.Status)
	if !ok {
		return nil, fmt.Errorf("%w: status %q tidak dikenal", ErrInvalidInput, input.Status)
	}
	if !principal.IsAdmin() && !principal.IsPetugas() {
		return nil, ErrPermissionDenied
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated *model.Complaint
	err := s.store.Transaction(ctx, func(tx repository.LifecycleStore) error {
		complaint, err := s.lockForStaff(ctx, tx, principal, complaintID)
		if err != nil {
			return err
		}

		var bidangID *uuid.UUID
		if input.BidangCode != "" {
			bidang, err := tx.GetBidangByCode(ctx, input.BidangCode)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: kode_bidang %q tidak ditemukan", ErrInvalidInput, input.BidangCode)
				}
				return err
			}
			if !principal.CanHandle(&bidang.ID) {
				return ErrPermissionDenied
			}
			bidangID = &bidang.ID
		}

		if err := s.transition(ctx, tx, complaint, transitionRequest{
			Target:   target,
			BidangID: bidangID,
			Note:     statusNote(target),
			ActorID:  actorID(principal),
			Notify:   true,
			Action:   events.ActionStatusChanged,
		}); err != nil {
			return err
		}

		updated, err = tx.GetComplaint(ctx, complaint.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.kick()
	return updated, nil
}

type DispositionInput struct {
	ComplaintID  string `json:"pengaduan_id" validate:"required,uuid"`
	FromBidangID string `json:"dari_bidang_id" validate:"omitempty,uuid"`
	ToBidangID   string `json:"ke_bidang_id" validate:"required,uuid"`
	Note         string `json:"keterangan" validate:"required"`
	UserID       string `json:"user_id" validate:"omitempty,uuid"`
}

func (s *LifecycleService) Disposition(ctx context.Context, principal model.Principal, input DispositionInput) (*model.Disposition, error) {
	input.Note = strings.TrimSpace(input.Note)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	complaintID := uuid.MustParse(input.ComplaintID)
	toID := uuid.MustParse(input.ToBidangID)
	fromID, err := parseOptionalUUID(input.FromBidangID, "dari_bidang_id")
	if err != nil {
		return nil, err
	}
	userID, err := parseOptionalUUID(input.UserID, "user_id")
	if err != nil {
		return nil, err
	}
	if userID == nil {
		userID = actorID(principal)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var disposition *model.Disposition
	err = s.store.Transaction(ctx, func(tx repository.LifecycleStore) error {
		complaint, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		to, err := s.lookupBidang(ctx, tx, toID, "ke_bidang_id")
		if err != nil {
			return err
		}
		var from *model.Bidang
		if fromID != nil {
			if from, err = s.lookupBidang(ctx, tx, *fromID, "dari_bidang_id"); err != nil {
				return err
			}
		}

		disposition = &model.Disposition{
			ComplaintID:  complaint.ID,
			FromBidangID: fromID,
			ToBidangID:   to.ID,
			Note:         input.Note,
			UserID:       userID,
			CreatedAt:    s.now().UTC(),
		}
		if err := tx.CreateDisposition(ctx, disposition); err != nil {
			if db.IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: user_id tidak terdaftar", ErrInvalidInput)
			}
			return fmt.Errorf("create disposition: %w", err)
		}
		disposition.ToBidang = to
		disposition.FromBidang = from

		return s.transition(ctx, tx, complaint, transitionRequest{
			Target:   model.ComplaintStatusTerdisposisi,
			BidangID: &to.ID,
			Note:     dispositionNote(to.Name, input.Note),
			ActorID:  userID,
			Action:   events.ActionComplaintDisposed,
			EventData: map[string]any{
				"ke_bidang_id":   to.ID,
				"ke_bidang":      to.Name,
				"dari_bidang_id": fromID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.kick()

	s.logger.Info().
		Str("pengaduan_id", complaintID.String()).
		Str("ke_bidang", disposition.ToBidang.Code).
		Msg("complaint disposed")
	return disposition, nil
}

type StaffResponseInput struct {
	Response  string `json:"tanggapan" validate:"required"`
	ActorName string `json:"petugas" validate:"required,max=255"`
	Status    string `json:"status"`
}

func (s *LifecycleService) RecordStaffResponse(ctx context.Context, principal model.Principal, complaintID uuid.UUID, input StaffResponseInput) (*model.StatusHistory, error) {
	input.Response = strings.TrimSpace(input.Response)
	input.ActorName = strings.TrimSpace(input.ActorName)
	input.Status = strings.TrimSpace(input.Status)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var target *model.ComplaintStatus
	if input.Status != "" {
		status, ok := model.ParseComplaintStatus(input.Status)
		if !ok {
			return nil, fmt.Errorf("%w: status %q tidak dikenal", ErrInvalidInput, input.Status)
		}
		target = &status
	}
	if !principal.IsAdmin() && !principal.IsPetugas() {
		return nil, ErrPermissionDenied
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var entry *model.StatusHistory
	err := s.store.Transaction(ctx, func(tx repository.LifecycleStore) error {
		complaint, err := s.lockForStaff(ctx, tx, principal, complaintID)
		if err != nil {
			return err
		}

		entryStatus := complaint.Status
		if target != nil {
			if !s.opts.Policy.Allow(complaint.Status, *target) {
				return invalidTransition(complaint.Status, *target)
			}
			entryStatus = *target
		}

		actorName := input.ActorName
		response := input.Response
		entry = &model.StatusHistory{
			ComplaintID: complaint.ID,
			Status:      entryStatus,
			Note:        responseNote(actorName),
			ActorID:     actorID(principal),
			ActorName:   &actorName,
			Response:    &response,
			CreatedAt:   s.now().UTC(),
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return fmt.Errorf("append response: %w", err)
		}
		s.enqueueEvent(ctx, tx, complaint, events.ActionResponseAdded, map[string]any{
			"petugas":   actorName,
			"tanggapan": response,
		})

		if target == nil {
			return nil
		}
		return s.transition(ctx, tx, complaint, transitionRequest{
			Target:  *target,
			Note:    statusNote(*target),
			ActorID: actorID(principal),
			Notify:  true,
			Action:  events.ActionStatusChanged,
		})
	})
	if err != nil {
		return nil, err
	}
	s.kick()
	return entry, nil
}

func (s *LifecycleService) TrackByCode(ctx context.Context, rawCode string) (*model.TrackingResult, error) {
	code := NormalizeTicketCode(rawCode)
	if code == "" {
		return nil, fmt.Errorf("%w: kode pengaduan wajib diisi", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	complaint, err := s.store.GetComplaintByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	history, err := s.store.ListHistory(ctx, complaint.ID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		// the initial entry is best effort; the timeline always starts at intake
		history = []model.StatusHistory{{
			ComplaintID: complaint.ID,
			Status:      model.ComplaintStatusMasuk,
			Note:        statusNote(model.ComplaintStatusMasuk),
			CreatedAt:   complaint.CreatedAt,
		}}
	}

	return &model.TrackingResult{Complaint: model.NewPublicComplaint(*complaint), History: history}, nil
}

func (s *LifecycleService) GetDetail(ctx context.Context, principal model.Principal, complaintID uuid.UUID) (*model.ComplaintDetail, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	complaint, err := s.getForStaff(ctx, principal, complaintID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListHistory(ctx, complaint.ID)
	if err != nil {
		return nil, err
	}
	dispositions, err := s.store.ListDispositions(ctx, complaint.ID)
	if err != nil {
		return nil, err
	}
	return &model.ComplaintDetail{
		Complaint:    *complaint,
		History:      history,
		Dispositions: dispositions,
	}, nil
}

type ListComplaintsOptions struct {
	Page       int
	Limit      int
	Status     string
	BidangID   string
	CategoryID string
	Search     string
}

func (s *LifecycleService) ListComplaints(ctx context.Context, principal model.Principal, opts ListComplaintsOptions) (*model.ComplaintPage, error) {
	filter, err := s.scopedFilter(principal, opts.Status, opts.BidangID)
	if err != nil {
		return nil, err
	}
	if filter.CategoryID, err = parseOptionalUUID(opts.CategoryID, "kategori_id"); err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(opts.Search)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page-1 > maxListOffset/limit {
		return nil, fmt.Errorf("%w: page terlalu besar", ErrInvalidInput)
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	result := &model.ComplaintPage{
		Items:      []model.Complaint{},
		Pagination: model.Pagination{Page: page, Limit: limit},
	}
	if filter.Statuses != nil && len(filter.Statuses) == 0 {
		return result, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, total, err := s.store.ListComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Redact()
	}
	result.Items = items
	result.Pagination.Total = total
	result.Pagination.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	return result, nil
}

func (s *LifecycleService) Statistics(ctx context.Context, principal model.Principal, bidangID string) (*model.StatusStatistics, error) {
	filter, err := s.scopedFilter(principal, "", bidangID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	counts, err := s.store.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &model.StatusStatistics{ByStatus: make(map[model.ComplaintStatus]int64, len(model.ComplaintStatuses))}
	for _, status := range model.ComplaintStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *LifecycleService) ListDispositions(ctx context.Context, principal model.Principal, rawComplaintID string) ([]model.Disposition, error) {
	complaintID, err := parseOptionalUUID(rawComplaintID, "pengaduan_id")
	if err != nil {
		return nil, err
	}
	if complaintID == nil {
		return nil, fmt.Errorf("%w: pengaduan_id wajib diisi", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.getForStaff(ctx, principal, *complaintID); err != nil {
		return nil, err
	}
	return s.store.ListDispositions(ctx, *complaintID)
}

type transitionRequest struct {
	Target    model.ComplaintStatus
	BidangID  *uuid.UUID
	Note      string
	ActorID   *uuid.UUID
	Notify    bool
	Action    string
	EventData map[string]any
}

// transition is the only place a complaint status changes. The state update
// is primary; history, email and event rows are best effort.
func (s *LifecycleService) transition(ctx context.Context, tx repository.LifecycleStore, complaint *model.Complaint, req transitionRequest) error {
	from := complaint.Status
	if !s.opts.Policy.Allow(from, req.Target) {
		return invalidTransition(from, req.Target)
	}
	if req.Target.Rank() < from.Rank() {
		s.logger.Warn().
			Str("pengaduan_id", complaint.ID.String()).
			Str("from", string(from)).
			Str("to", string(req.Target)).
			Msg("backward status transition")
	}

	now := s.now().UTC()
	if err := tx.UpdateComplaintState(ctx, complaint.ID, repository.StateChange{
		Status:   req.Target,
		BidangID: req.BidangID,
		At:       now,
	}); err != nil {
		return fmt.Errorf("update complaint state: %w", err)
	}
	complaint.Status = req.Target
	complaint.UpdatedAt = now
	if req.BidangID != nil {
		bidangID := *req.BidangID
		complaint.BidangID = &bidangID
	}

	s.appendHistory(ctx, tx, &model.StatusHistory{
		ComplaintID: complaint.ID,
		Status:      req.Target,
		Note:        req.Note,
		ActorID:     req.ActorID,
		CreatedAt:   now,
	})

	if req.Notify && complaint.Notifiable() && from != req.Target {
		subject, html, err := s.renderer.StatusChange(*complaint, from, req.Target, req.Note)
		if err != nil {
			RecordAuxiliaryFailure(s.logger, stepOutboxEnqueue, complaint.ID, err)
		} else {
			s.enqueueEmail(ctx, tx, complaint, subject, html)
		}
	}

	data := map[string]any{"status_lama": from}
	for k, v := range req.EventData {
		data[k] = v
	}
	s.enqueueEvent(ctx, tx, complaint, req.Action, data)
	return nil
}

func (s *LifecycleService) appendHistory(ctx context.Context, tx repository.LifecycleStore, entry *model.StatusHistory) {
	err := tx.Transaction(ctx, func(inner repository.LifecycleStore) error {
		return inner.AppendHistory(ctx, entry)
	})
	if err != nil {
		RecordAuxiliaryFailure(s.logger, stepHistoryAppend, entry.ComplaintID, err)
	}
}

func (s *LifecycleService) enqueueEmail(ctx context.Context, tx repository.LifecycleStore, complaint *model.Complaint, subject, html string) {
	payload, err := json.Marshal(model.EmailPayload{HTML: html})
	if err != nil {
		RecordAuxiliaryFailure(s.logger, stepOutboxEnqueue, complaint.ID, err)
		return
	}
	complaintID := complaint.ID
	s.enqueue(ctx, tx, &model.OutboxMessage{
		Kind:        model.OutboxKindEmail,
		ComplaintID: &complaintID,
		Recipient:   complaint.ReporterEmail,
		Subject:     subject,
		Payload:     datatypes.JSON(payload),
	})
}

func (s *LifecycleService) enqueueEvent(ctx context.Context, tx repository.LifecycleStore, complaint *model.Complaint, action string, data map[string]any) {
	if !s.opts.PublishEvents {
		return
	}
	payload, err := json.Marshal(model.EventPayload{
		Action:      action,
		ComplaintID: complaint.ID,
		Code:        complaint.Code,
		Status:      complaint.Status,
		Timestamp:   s.now().UTC(),
		Data:        data,
	})
	if err != nil {
		RecordAuxiliaryFailure(s.logger, stepOutboxEnqueue, complaint.ID, err)
		return
	}
	complaintID := complaint.ID
	s.enqueue(ctx, tx, &model.OutboxMessage{
		Kind:        model.OutboxKindEvent,
		ComplaintID: &complaintID,
		Subject:     action,
		Payload:     datatypes.JSON(payload),
	})
}

func (s *LifecycleService) enqueue(ctx context.Context, tx repository.LifecycleStore, msg *model.OutboxMessage) {
	now := s.now().UTC()
	msg.Status = model.OutboxStatusPending
	msg.NextAttemptAt = now
	msg.CreatedAt = now
	err := tx.Transaction(ctx, func(inner repository.LifecycleStore) error {
		return inner.EnqueueOutbox(ctx, msg)
	})
	if err != nil {
		var complaintID uuid.UUID
		if msg.ComplaintID != nil {
			complaintID = *msg.ComplaintID
		}
		RecordAuxiliaryFailure(s.logger, stepOutboxEnqueue, complaintID, err)
	}
}

func (s *LifecycleService) lockForStaff(ctx context.Context, tx repository.LifecycleStore, principal model.Principal, complaintID uuid.UUID) (*model.Complaint, error) {
	complaint, err := tx.LockComplaint(ctx, complaintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.CanHandle(complaint.BidangID) {
		return nil, ErrPermissionDenied
	}
	return complaint, nil
}

func (s *LifecycleService) getForStaff(ctx context.Context, principal model.Principal, complaintID uuid.UUID) (*model.Complaint, error) {
	complaint, err := s.store.GetComplaint(ctx, complaintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.CanHandle(complaint.BidangID) {
		return nil, ErrPermissionDenied
	}
	complaint.Redact()
	return complaint, nil
}

func (s *LifecycleService) lookupBidang(ctx context.Context, tx repository.LifecycleStore, id uuid.UUID, field string) (*model.Bidang, error) {
	bidang, err := tx.GetBidang(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s tidak ditemukan", ErrInvalidInput, field)
		}
		return nil, err
	}
	return bidang, nil
}

// scopedFilter applies the caller's department scope. A department filter
// only ever matches routed statuses; an empty non-nil Statuses slice means
// nothing can match.
func (s *LifecycleService) scopedFilter(principal model.Principal, rawStatus, rawBidangID string) (repository.ComplaintFilter, error) {
	var filter repository.ComplaintFilter

	var status *model.ComplaintStatus
	if strings.TrimSpace(rawStatus) != "" {
		parsed, ok := model.ParseComplaintStatus(rawStatus)
		if !ok {
			return filter, fmt.Errorf("%w: status %q tidak dikenal", ErrInvalidInput, rawStatus)
		}
		status = &parsed
	}

	bidangID, err := parseOptionalUUID(rawBidangID, "bidang_id")
	if err != nil {
		return filter, err
	}
	switch {
	case principal.IsAdmin():
	case principal.IsPetugas():
		if principal.BidangID == nil {
			return filter, ErrPermissionDenied
		}
		if bidangID != nil && *bidangID != *principal.BidangID {
			return filter, ErrPermissionDenied
		}
		own := *principal.BidangID
		bidangID = &own
	default:
		return filter, ErrPermissionDenied
	}
	filter.BidangID = bidangID

	switch {
	case bidangID != nil && status != nil:
		filter.Statuses = []model.ComplaintStatus{}
		for _, routed := range model.RoutedStatuses {
			if routed == *status {
				filter.Statuses = append(filter.Statuses, routed)
			}
		}
	case bidangID != nil:
		filter.Statuses = model.RoutedStatuses
	case status != nil:
		filter.Statuses = []model.ComplaintStatus{*status}
	}
	return filter, nil
}

func (s *LifecycleService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

func (s *LifecycleService) kick() {
	if s.kicker != nil {
		s.kicker.Kick()
	}
}

func invalidTransition(from, to model.ComplaintStatus) error {
	return fmt.Errorf("%w: %s ke %s tidak diizinkan", ErrInvalidStatus, from, to)
}

func actorID(principal model.Principal) *uuid.UUID {
	if principal.UserID == uuid.Nil {
		return nil
	}
	id := principal.UserID
	return &id
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
