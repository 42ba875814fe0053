package service

import (
	"fmt"

	"sipelan-service/internal/model"
)

const genericStatusNote = "Status pengaduan diperbarui"

var statusNotes = map[model.ComplaintStatus]string{
	model.ComplaintStatusMasuk:         "Pengaduan diterima dan menunggu verifikasi",
	model.ComplaintStatusTerverifikasi: "Pengaduan telah diverifikasi oleh admin",
	model.ComplaintStatusTerdisposisi:  "Pengaduan telah didisposisikan ke bidang terkait",
	model.ComplaintStatusTindakLanjut:  "Pengaduan sedang ditindaklanjuti oleh bidang terkait",
	model.ComplaintStatusSelesai:       "Pengaduan telah selesai ditangani",
}

func statusNote(status model.ComplaintStatus) string {
	if note, ok := statusNotes[status]; ok {
		return note
	}
	return genericStatusNote
}

func dispositionNote(bidangName, justification string) string {
	return fmt.Sprintf("Pengaduan didisposisikan ke %s: %s", bidangName, justification)
}

func responseNote(actor string) string {
	return fmt.Sprintf("Tanggapan dari %s", actor)
}
