package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ComplaintStatus string

const (
	ComplaintStatusMasuk         ComplaintStatus = "masuk"
	ComplaintStatusTerverifikasi ComplaintStatus = "terverifikasi"
	ComplaintStatusTerdisposisi  ComplaintStatus = "terdisposisi"
	ComplaintStatusTindakLanjut  ComplaintStatus = "tindak_lanjut"
	ComplaintStatusSelesai       ComplaintStatus = "selesai"
)

// ComplaintStatuses lists every status in its canonical display order.
var ComplaintStatuses = []ComplaintStatus{
	ComplaintStatusMasuk,
	ComplaintStatusTerverifikasi,
	ComplaintStatusTerdisposisi,
	ComplaintStatusTindakLanjut,
	ComplaintStatusSelesai,
}

// RoutedStatuses are the statuses a department is allowed to see.
var RoutedStatuses = []ComplaintStatus{
	ComplaintStatusTerdisposisi,
	ComplaintStatusTindakLanjut,
	ComplaintStatusSelesai,
}

func ParseComplaintStatus(raw string) (ComplaintStatus, bool) {
	status := ComplaintStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

func (s ComplaintStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of the status in the canonical progression, -1 if unknown.
func (s ComplaintStatus) Rank() int {
	for i, candidate := range ComplaintStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Label is the human readable form used in emails and timelines.
func (s ComplaintStatus) Label() string {
	switch s {
	case ComplaintStatusMasuk:
		return "Masuk"
	case ComplaintStatusTerverifikasi:
		return "Terverifikasi"
	case ComplaintStatusTerdisposisi:
		return "Terdisposisi"
	case ComplaintStatusTindakLanjut:
		return "Tindak Lanjut"
	case ComplaintStatusSelesai:
		return "Selesai"
	default:
		return string(s)
	}
}

const AnonymousReporterName = "Anonim"

type Complaint struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Code          string          `gorm:"column:kode_pengaduan;type:varchar(32);uniqueIndex;not null" json:"kode_pengaduan"`
	CategoryID    uuid.UUID       `gorm:"column:kategori_id;type:uuid;not null" json:"kategori_id"`
	Title         string          `gorm:"column:judul_pengaduan;type:varchar(255);not null" json:"judul_pengaduan"`
	Body          string          `gorm:"column:isi_pengaduan;type:text;not null" json:"isi_pengaduan"`
	Location      *string         `gorm:"column:lokasi_kejadian;type:text" json:"lokasi_kejadian"`
	IncidentDate  *time.Time      `gorm:"column:tanggal_kejadian;type:date" json:"tanggal_kejadian"`
	ReporterName  string          `gorm:"column:nama_pelapor;type:varchar(255);not null" json:"nama_pelapor"`
	ReporterEmail string          `gorm:"column:email_pelapor;type:varchar(255)" json:"email_pelapor"`
	ReporterPhone string          `gorm:"column:telepon_pelapor;type:varchar(32)" json:"telepon_pelapor"`
	Anonymous     bool            `gorm:"column:anonim;not null;default:false" json:"anonim"`
	EvidencePath  *string         `gorm:"column:bukti_file;type:text" json:"bukti_file"`
	Status        ComplaintStatus `gorm:"type:pengaduan_status_enum;not null;default:'masuk'" json:"status"`
	BidangID      *uuid.UUID      `gorm:"column:bidang_id;type:uuid" json:"bidang_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"kategori,omitempty"`
	Bidang   *Bidang   `gorm:"foreignKey:BidangID" json:"bidang,omitempty"`
}

func (Complaint) TableName() string {
	return "pengaduan"
}

// Redact strips identifying contact data from anonymous complaints.
func (c *Complaint) Redact() {
	if !c.Anonymous {
		return
	}
	c.ReporterName = AnonymousReporterName
	c.ReporterEmail = ""
	c.ReporterPhone = ""
}

// Notifiable reports whether the reporter can be reached by email.
func (c Complaint) Notifiable() bool {
	return !c.Anonymous && strings.TrimSpace(c.ReporterEmail) != ""
}
