package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sipelan-service/internal/model"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) ClaimDueOutbox(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.OutboxMessage, error) {
	var claimed []model.OutboxMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND claimed_at < ?)",
				model.OutboxStatusPending, now, model.OutboxStatusProcessing, staleBefore).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(claimed))
		var reclaimed []uuid.UUID
		for i := range claimed {
			ids = append(ids, claimed[i].ID)
			// a stale claim means the previous try never finished; it counts as an attempt
			if claimed[i].Status == model.OutboxStatusProcessing {
				reclaimed = append(reclaimed, claimed[i].ID)
				claimed[i].Attempts++
			}
			claimed[i].Status = model.OutboxStatusProcessing
			claimed[i].ClaimedAt = &now
		}
		if err := tx.Model(&model.OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     model.OutboxStatusProcessing,
				"claimed_at": now,
			}).Error; err != nil {
			return err
		}
		if len(reclaimed) == 0 {
			return nil
		}
		return tx.Model(&model.OutboxMessage{}).
			Where("id IN ?", reclaimed).
			UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkOutboxSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusSent,
			"sent_at":    at,
			"last_error": nil,
		}).Error
}

func (r *OutboxRepository) MarkOutboxRetry(ctx context.Context, id uuid.UUID, update OutboxRetry) error {
	status := model.OutboxStatusPending
	if update.Failed {
		status = model.OutboxStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        update.Attempts,
			"next_attempt_at": update.NextAttemptAt,
			"last_error":      update.LastError,
			"claimed_at":      nil,
		}).Error
}
