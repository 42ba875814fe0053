package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipelan-service/internal/model"
)

func TestNewTransitionPolicy(t *testing.T) {
	policy, err := NewTransitionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPermissive, policy.Name())

	policy, err = NewTransitionPolicy(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, policy.Name())

	_, err = NewTransitionPolicy("linear")
	assert.Error(t, err)
}

func TestPermissivePolicy(t *testing.T) {
	policy := PermissivePolicy{}
	for _, from := range model.ComplaintStatuses {
		for _, to := range model.ComplaintStatuses {
			assert.True(t, policy.Allow(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, policy.Allow(model.ComplaintStatusMasuk, "ditolak"))
}

func TestStrictPolicy(t *testing.T) {
	policy := NewStrictPolicy()
	tests := []struct {
		from, to model.ComplaintStatus
		allowed  bool
	}{
		{model.ComplaintStatusMasuk, model.ComplaintStatusTerverifikasi, true},
		{model.ComplaintStatusMasuk, model.ComplaintStatusTerdisposisi, true},
		{model.ComplaintStatusMasuk, model.ComplaintStatusSelesai, false},
		{model.ComplaintStatusTerverifikasi, model.ComplaintStatusTerdisposisi, true},
		{model.ComplaintStatusTerverifikasi, model.ComplaintStatusMasuk, false},
		{model.ComplaintStatusTerdisposisi, model.ComplaintStatusTindakLanjut, true},
		{model.ComplaintStatusTindakLanjut, model.ComplaintStatusTerdisposisi, true},
		{model.ComplaintStatusTindakLanjut, model.ComplaintStatusSelesai, true},
		{model.ComplaintStatusSelesai, model.ComplaintStatusTindakLanjut, false},
		{model.ComplaintStatusSelesai, model.ComplaintStatusSelesai, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, policy.Allow(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTicketCode(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	at := time.Date(2023, 12, 31, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, "202401", TicketPeriod(at, wib))
	assert.Equal(t, "202312", TicketPeriod(at, time.UTC))
	assert.Equal(t, "ADU-202401-0042", FormatTicketCode("202401", 42))
	assert.Equal(t, "ADU-202401-12345", FormatTicketCode("202401", 12345))
	assert.Equal(t, "ADU-202401-0042", NormalizeTicketCode(" adu-202401-0042 "))

	assert.True(t, ValidTicketCode("ADU-202401-0042"))
	assert.True(t, ValidTicketCode("ADU-202401-12345"))
	assert.False(t, ValidTicketCode("ADU-2024-0042"))
	assert.False(t, ValidTicketCode("adu-202401-0042"))
}

func TestStatusNotes(t *testing.T) {
	assert.Equal(t, "Pengaduan telah selesai ditangani", statusNote(model.ComplaintStatusSelesai))
	assert.Equal(t, "Status pengaduan diperbarui", statusNote("lainnya"))
}
