package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sipelan-service/internal/model"
)

func seedComplaint(t *testing.T, store *MemoryStore, code string, status model.ComplaintStatus, bidangID *uuid.UUID, createdAt time.Time) model.Complaint {
	t.Helper()
	complaint := model.Complaint{
		Code:      code,
		Title:     "Pengaduan " + code,
		Status:    status,
		BidangID:  bidangID,
		CreatedAt: createdAt,
	}
	require.NoError(t, store.CreateComplaint(context.Background(), &complaint))
	return complaint
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx LifecycleStore) error {
		if _, err := tx.NextTicketSequence(ctx, "202404"); err != nil {
			return err
		}
		if err := tx.CreateComplaint(ctx, &model.Complaint{Code: "ADU-202404-0001"}); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	_, err = store.GetComplaintByCode(ctx, "ADU-202404-0001")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	seq, err := store.NextTicketSequence(ctx, "202404")
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq, "sequence rolled back with the transaction")
}

func TestNestedTransactionFailureKeepsOuterWork(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	complaint := seedComplaint(t, store, "ADU-202404-0001", model.ComplaintStatusMasuk, nil, time.Now())

	err := store.Transaction(ctx, func(tx LifecycleStore) error {
		if err := tx.UpdateComplaintState(ctx, complaint.ID, StateChange{Status: model.ComplaintStatusTerverifikasi, At: time.Now()}); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(inner LifecycleStore) error {
			if err := inner.AppendHistory(ctx, &model.StatusHistory{ComplaintID: complaint.ID, Status: model.ComplaintStatusTerverifikasi}); err != nil {
				return err
			}
			return errors.New("savepoint failed")
		})
		assert.Error(t, inner)
		return nil
	})

	require.NoError(t, err)
	stored, err := store.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerverifikasi, stored.Status)
	history, err := store.ListHistory(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListHistoryOrdersByTimeThenSequence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	at := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendHistory(ctx, &model.StatusHistory{ComplaintID: id, Status: model.ComplaintStatusTerdisposisi, CreatedAt: at.Add(time.Minute)}))
	require.NoError(t, store.AppendHistory(ctx, &model.StatusHistory{ComplaintID: id, Status: model.ComplaintStatusMasuk, CreatedAt: at}))
	require.NoError(t, store.AppendHistory(ctx, &model.StatusHistory{ComplaintID: id, Status: model.ComplaintStatusTerverifikasi, CreatedAt: at}))

	history, err := store.ListHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.ComplaintStatusMasuk, history[0].Status)
	assert.Equal(t, model.ComplaintStatusTerverifikasi, history[1].Status)
	assert.Equal(t, model.ComplaintStatusTerdisposisi, history[2].Status)
}

func TestListComplaintsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	bidangID := uuid.New()
	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	seedComplaint(t, store, "ADU-202404-0001", model.ComplaintStatusMasuk, nil, base)
	seedComplaint(t, store, "ADU-202404-0002", model.ComplaintStatusTerdisposisi, &bidangID, base.Add(time.Hour))
	seedComplaint(t, store, "ADU-202404-0003", model.ComplaintStatusSelesai, &bidangID, base.Add(2*time.Hour))

	items, total, err := store.ListComplaints(ctx, ComplaintFilter{BidangID: &bidangID, Statuses: model.RoutedStatuses, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "ADU-202404-0003", items[0].Code, "newest first")

	items, _, err = store.ListComplaints(ctx, ComplaintFilter{BidangID: &bidangID, Statuses: model.RoutedStatuses, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ADU-202404-0002", items[0].Code)

	items, total, err = store.ListComplaints(ctx, ComplaintFilter{Search: "0001"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.ComplaintStatusMasuk, items[0].Status)

	counts, err := store.CountByStatus(ctx, ComplaintFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[model.ComplaintStatusSelesai])
	assert.EqualValues(t, 1, counts[model.ComplaintStatusMasuk])
}

func TestClaimDueOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	due := &model.OutboxMessage{Kind: model.OutboxKindEmail, NextAttemptAt: now.Add(-time.Second), CreatedAt: now}
	later := &model.OutboxMessage{Kind: model.OutboxKindEmail, NextAttemptAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, store.EnqueueOutbox(ctx, due))
	require.NoError(t, store.EnqueueOutbox(ctx, later))

	claimed, err := store.ClaimDueOutbox(ctx, now, now.Add(-5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	assert.Zero(t, claimed[0].Attempts)

	claimed, err = store.ClaimDueOutbox(ctx, now, now.Add(-5*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed, "processing rows are not claimed twice")

	claimed, err = store.ClaimDueOutbox(ctx, now.Add(10*time.Minute), now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1, "stale processing row is reclaimed; the later row is not due yet")
	assert.Equal(t, 1, claimed[0].Attempts, "a reclaim counts the unfinished try")
	assert.Equal(t, 1, store.Outbox()[0].Attempts)

	require.NoError(t, store.MarkOutboxRetry(ctx, due.ID, OutboxRetry{Attempts: 3, NextAttemptAt: now, LastError: "smtp timeout", Failed: true}))
	for _, msg := range store.Outbox() {
		if msg.ID == due.ID {
			assert.Equal(t, model.OutboxStatusFailed, msg.Status)
			require.NotNil(t, msg.LastError)
			assert.Equal(t, "smtp timeout", *msg.LastError)
		}
	}
}

func TestFailInjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("db down")

	store.Fail("ListCategories", boom)
	_, err := store.ListCategories(ctx)
	assert.ErrorIs(t, err, boom)

	store.Fail("ListCategories", nil)
	_, err = store.ListCategories(ctx)
	assert.NoError(t, err)
}
