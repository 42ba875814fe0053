package service

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	stepHistoryAppend = "history_append"
	stepOutboxEnqueue = "outbox_enqueue"
	stepEvidenceClean = "evidence_cleanup"
)

var auxiliaryFailures atomic.Int64

// AuxiliaryFailures counts failed best-effort steps since process start.
func AuxiliaryFailures() int64 {
	return auxiliaryFailures.Load()
}

// RecordAuxiliaryFailure logs a failed best-effort step and counts it.
// The primary operation carries on.
func RecordAuxiliaryFailure(logger zerolog.Logger, step string, complaintID uuid.UUID, err error) {
	auxiliaryFailures.Add(1)
	event := logger.Warn().
		Err(err).
		Str("failure_class", "auxiliary").
		Str("step", step)
	if complaintID != uuid.Nil {
		event = event.Str("pengaduan_id", complaintID.String())
	}
	event.Msg("auxiliary step failed")
}
