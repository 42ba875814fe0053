package model

import (
	"time"

	"github.com/google/uuid"
)

// Bidang is a department complaints are routed to.
type Bidang struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name        string    `gorm:"column:nama_bidang;type:varchar(255);not null" json:"nama_bidang"`
	Code        string    `gorm:"column:kode_bidang;type:varchar(32);uniqueIndex;not null" json:"kode_bidang"`
	Description string    `gorm:"column:deskripsi;type:text" json:"deskripsi"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Bidang) TableName() string {
	return "bidang"
}

type BidangSummary struct {
	Bidang
	UserCount      int64 `json:"jumlah_user"`
	ComplaintCount int64 `json:"jumlah_pengaduan"`
}

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name        string    `gorm:"column:nama_kategori;type:varchar(255);uniqueIndex;not null" json:"nama_kategori"`
	Description string    `gorm:"column:deskripsi;type:text" json:"deskripsi"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "kategori_pengaduan"
}
