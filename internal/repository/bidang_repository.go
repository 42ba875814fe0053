package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sipelan-service/internal/model"
)

type BidangRepository struct {
	db *gorm.DB
}

func NewBidangRepository(db *gorm.DB) *BidangRepository {
	return &BidangRepository{db: db}
}

func (r *BidangRepository) ListBidangWithUsage(ctx context.Context) ([]model.BidangSummary, error) {
	var rows []model.BidangSummary
	err := r.db.WithContext(ctx).Raw(`SELECT b.*,
			(SELECT COUNT(*) FROM users u WHERE u.bidang_id = b.id) AS user_count,
			(SELECT COUNT(*) FROM pengaduan p WHERE p.bidang_id = b.id) AS complaint_count
		FROM bidang b
		ORDER BY b.nama_bidang ASC`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BidangRepository) GetBidang(ctx context.Context, id uuid.UUID) (*model.Bidang, error) {
	var bidang model.Bidang
	if err := r.db.WithContext(ctx).First(&bidang, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bidang, nil
}

func (r *BidangRepository) CreateBidang(ctx context.Context, bidang *model.Bidang) error {
	return r.db.WithContext(ctx).Create(bidang).Error
}

func (r *BidangRepository) UpdateBidang(ctx context.Context, bidang *model.Bidang) error {
	result := r.db.WithContext(ctx).
		Model(&model.Bidang{}).
		Where("id = ?", bidang.ID).
		Updates(map[string]interface{}{
			"nama_bidang": bidang.Name,
			"kode_bidang": bidang.Code,
			"deskripsi":   bidang.Description,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BidangRepository) CountBidangUsage(ctx context.Context, id uuid.UUID) (int64, int64, error) {
	var users, complaints int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("bidang_id = ?", id).Count(&users).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Complaint{}).Where("bidang_id = ?", id).Count(&complaints).Error; err != nil {
		return 0, 0, err
	}
	return users, complaints, nil
}

func (r *BidangRepository) DeleteBidang(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Bidang{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
