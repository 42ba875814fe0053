package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Disposition struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ComplaintID  uuid.UUID  `gorm:"column:pengaduan_id;type:uuid;not null" json:"pengaduan_id"`
	FromBidangID *uuid.UUID `gorm:"column:dari_bidang_id;type:uuid" json:"dari_bidang_id"`
	ToBidangID   uuid.UUID  `gorm:"column:ke_bidang_id;type:uuid;not null" json:"ke_bidang_id"`
	Note         string     `gorm:"column:keterangan;type:text;not null" json:"keterangan"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid" json:"user_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	FromBidang *Bidang `gorm:"foreignKey:FromBidangID" json:"dari_bidang,omitempty"`
	ToBidang   *Bidang `gorm:"foreignKey:ToBidangID" json:"ke_bidang,omitempty"`
}

func (Disposition) TableName() string {
	return "disposisi"
}

func (d *Disposition) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
