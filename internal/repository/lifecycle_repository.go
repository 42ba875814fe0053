package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sipelan-service/internal/model"
)

type LifecycleRepository struct {
	db *gorm.DB
}

func NewLifecycleRepository(db *gorm.DB) *LifecycleRepository {
	return &LifecycleRepository{db: db}
}

func (r *LifecycleRepository) Transaction(ctx context.Context, fn func(tx LifecycleStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LifecycleRepository{db: tx})
	})
}

func (r *LifecycleRepository) NextTicketSequence(ctx context.Context, period string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`INSERT INTO ticket_sequences (period, last_value) VALUES (?, 1)
		ON CONFLICT (period) DO UPDATE SET last_value = ticket_sequences.last_value + 1
		RETURNING last_value`, period).
		Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *LifecycleRepository) CreateComplaint(ctx context.Context, complaint *model.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *LifecycleRepository) GetComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	var complaint model.Complaint
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Bidang").
		First(&complaint, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *LifecycleRepository) LockComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	var complaint model.Complaint
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&complaint, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *LifecycleRepository) GetComplaintByCode(ctx context.Context, code string) (*model.Complaint, error) {
	var complaint model.Complaint
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Bidang").
		First(&complaint, "kode_pengaduan = ?", code).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *LifecycleRepository) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, filter)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	} else {
		query = query.Limit(200)
	}

	var complaints []model.Complaint
	if err := query.
		Order("pengaduan.created_at DESC").
		Preload("Category").
		Preload("Bidang").
		Find(&complaints).Error; err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

func (r *LifecycleRepository) CountByStatus(ctx context.Context, filter ComplaintFilter) (map[model.ComplaintStatus]int64, error) {
	type row struct {
		Status model.ComplaintStatus
		Total  int64
	}
	var rows []row
	if err := r.filtered(ctx, filter).
		Select("pengaduan.status AS status, COUNT(*) AS total").
		Group("pengaduan.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[model.ComplaintStatus]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}

func (r *LifecycleRepository) UpdateComplaintState(ctx context.Context, id uuid.UUID, change StateChange) error {
	data := map[string]interface{}{
		"status":     change.Status,
		"updated_at": change.At,
	}
	if change.BidangID != nil {
		data["bidang_id"] = *change.BidangID
	}
	result := r.db.WithContext(ctx).
		Model(&model.Complaint{}).
		Where("id = ?", id).
		Updates(data)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *LifecycleRepository) AppendHistory(ctx context.Context, entry *model.StatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *LifecycleRepository) ListHistory(ctx context.Context, complaintID uuid.UUID) ([]model.StatusHistory, error) {
	var entries []model.StatusHistory
	if err := r.db.WithContext(ctx).
		Where("pengaduan_id = ?", complaintID).
		Order("created_at ASC, seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LifecycleRepository) CreateDisposition(ctx context.Context, disposition *model.Disposition) error {
	return r.db.WithContext(ctx).Create(disposition).Error
}

func (r *LifecycleRepository) ListDispositions(ctx context.Context, complaintID uuid.UUID) ([]model.Disposition, error) {
	var dispositions []model.Disposition
	if err := r.db.WithContext(ctx).
		Where("pengaduan_id = ?", complaintID).
		Order("created_at ASC").
		Preload("FromBidang").
		Preload("ToBidang").
		Find(&dispositions).Error; err != nil {
		return nil, err
	}
	return dispositions, nil
}

func (r *LifecycleRepository) EnqueueOutbox(ctx context.Context, msg *model.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *LifecycleRepository) GetBidang(ctx context.Context, id uuid.UUID) (*model.Bidang, error) {
	var bidang model.Bidang
	if err := r.db.WithContext(ctx).First(&bidang, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bidang, nil
}

func (r *LifecycleRepository) GetBidangByCode(ctx context.Context, code string) (*model.Bidang, error) {
	var bidang model.Bidang
	if err := r.db.WithContext(ctx).
		First(&bidang, "UPPER(kode_bidang) = ?", strings.ToUpper(code)).Error; err != nil {
		return nil, err
	}
	return &bidang, nil
}

func (r *LifecycleRepository) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *LifecycleRepository) filtered(ctx context.Context, filter ComplaintFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Complaint{})

	if len(filter.Statuses) > 0 {
		query = query.Where("pengaduan.status IN ?", filter.Statuses)
	}
	if filter.BidangID != nil {
		query = query.Where("pengaduan.bidang_id = ?", *filter.BidangID)
	}
	if filter.CategoryID != nil {
		query = query.Where("pengaduan.kategori_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("(pengaduan.kode_pengaduan ILIKE ? OR pengaduan.judul_pengaduan ILIKE ?)", search, search)
	}
	return query
}
