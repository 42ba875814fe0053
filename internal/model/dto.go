package model

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionReceipt struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"kode_pengaduan"`
	Title     string    `json:"judul_pengaduan"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicComplaint is the view of a complaint served without authentication.
// Reporter contact details and the evidence location are left out.
type PublicComplaint struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"kode_pengaduan"`
	Title        string          `json:"judul_pengaduan"`
	Body         string          `json:"isi_pengaduan"`
	Location     *string         `json:"lokasi_kejadian"`
	IncidentDate *time.Time      `json:"tanggal_kejadian"`
	ReporterName string          `json:"nama_pelapor"`
	Anonymous    bool            `json:"anonim"`
	HasEvidence  bool            `json:"ada_bukti"`
	Status       ComplaintStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Category *Category `json:"kategori,omitempty"`
	Bidang   *Bidang   `json:"bidang,omitempty"`
}

func NewPublicComplaint(c Complaint) PublicComplaint {
	c.Redact()
	return PublicComplaint{
		ID:           c.ID,
		Code:         c.Code,
		Title:        c.Title,
		Body:         c.Body,
		Location:     c.Location,
		IncidentDate: c.IncidentDate,
		ReporterName: c.ReporterName,
		Anonymous:    c.Anonymous,
		HasEvidence:  c.EvidencePath != nil,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Category:     c.Category,
		Bidang:       c.Bidang,
	}
}

type TrackingResult struct {
	Complaint PublicComplaint `json:"pengaduan"`
	History   []StatusHistory `json:"riwayat"`
}

type ComplaintDetail struct {
	Complaint    Complaint       `json:"pengaduan"`
	History      []StatusHistory `json:"riwayat"`
	Dispositions []Disposition   `json:"disposisi"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ComplaintPage struct {
	Items      []Complaint `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

type StatusStatistics struct {
	Total    int64                     `json:"total"`
	ByStatus map[ComplaintStatus]int64 `json:"per_status"`
}
