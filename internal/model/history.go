package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusHistory is one append-only timeline entry of a complaint.
type StatusHistory struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ComplaintID uuid.UUID       `gorm:"column:pengaduan_id;type:uuid;not null" json:"pengaduan_id"`
	Status      ComplaintStatus `gorm:"type:pengaduan_status_enum;not null" json:"status"`
	Note        string          `gorm:"column:keterangan;type:text" json:"keterangan"`
	ActorID     *uuid.UUID      `gorm:"column:user_id;type:uuid" json:"user_id"`
	ActorName   *string         `gorm:"column:petugas;type:varchar(255)" json:"petugas"`
	Response    *string         `gorm:"column:tanggapan;type:text" json:"tanggapan"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Seq         int64           `gorm:"column:seq;->" json:"-"`
}

func (StatusHistory) TableName() string {
	return "pengaduan_status"
}

func (h *StatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
