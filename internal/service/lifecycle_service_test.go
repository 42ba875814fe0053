package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipelan-service/internal/mailer"
	"sipelan-service/internal/model"
	"sipelan-service/internal/repository"
	"sipelan-service/internal/storage"
)

var wib = time.FixedZone("WIB", 7*60*60)

type fakeEvidence struct {
	saved   map[string]string
	deleted []string
	saveErr error
}

func (f *fakeEvidence) Save(_ context.Context, upload storage.Upload) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	path := storage.ObjectPath(time.Now(), upload.Filename)
	f.saved[path] = upload.Filename
	return path, nil
}

func (f *fakeEvidence) Delete(_ context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	delete(f.saved, path)
	return nil
}

type fixture struct {
	store    *repository.MemoryStore
	svc      *LifecycleService
	evidence *fakeEvidence
	category model.Category
	bidangA  model.Bidang
	bidangB  model.Bidang
	admin    model.Principal
	now      time.Time
}

func newFixture(t *testing.T, opts LifecycleOptions) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	category := model.Category{Name: "Upah dan Pesangon"}
	require.NoError(t, store.CreateCategory(ctx, &category))
	bidangA := model.Bidang{Name: "Hubungan Industrial", Code: "HI"}
	require.NoError(t, store.CreateBidang(ctx, &bidangA))
	bidangB := model.Bidang{Name: "Pengawasan Ketenagakerjaan", Code: "WAS"}
	require.NoError(t, store.CreateBidang(ctx, &bidangB))

	templates, err := mailer.NewTemplates("https://sipelan.test/lacak", wib)
	require.NoError(t, err)

	if opts.Location == nil {
		opts.Location = wib
	}
	evidence := &fakeEvidence{saved: map[string]string{}}
	svc := NewLifecycleService(store, evidence, templates, nil, zerolog.Nop(), opts)
	now := time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{
		store:    store,
		svc:      svc,
		evidence: evidence,
		category: category,
		bidangA:  bidangA,
		bidangB:  bidangB,
		admin:    model.Principal{UserID: uuid.New(), Name: "Admin", Role: model.UserRoleAdmin},
		now:      now,
	}
}

func (f *fixture) input() SubmitComplaintInput {
	return SubmitComplaintInput{
		CategoryID:    f.category.ID.String(),
		Title:         "Upah lembur tidak dibayar",
		Body:          "Sudah tiga bulan lembur tidak dibayar perusahaan.",
		Location:      "Kawasan Industri Pulogadung",
		IncidentDate:  "2024-03-01",
		ReporterName:  "Budi Santoso",
		ReporterEmail: "a@b.com",
		ReporterPhone: "081234567890",
	}
}

func (f *fixture) submit(t *testing.T, mutate func(*SubmitComplaintInput)) *model.SubmissionReceipt {
	t.Helper()
	input := f.input()
	if mutate != nil {
		mutate(&input)
	}
	receipt, err := f.svc.Submit(context.Background(), input)
	require.NoError(t, err)
	return receipt
}

func (f *fixture) petugas(bidang model.Bidang) model.Principal {
	id := bidang.ID
	return model.Principal{UserID: uuid.New(), Name: "Petugas " + bidang.Code, Role: model.UserRolePetugas, BidangID: &id}
}

func (f *fixture) history(t *testing.T, id uuid.UUID) []model.StatusHistory {
	t.Helper()
	entries, err := f.store.ListHistory(context.Background(), id)
	require.NoError(t, err)
	return entries
}

func (f *fixture) emails() []model.OutboxMessage {
	var out []model.OutboxMessage
	for _, msg := range f.store.Outbox() {
		if msg.Kind == model.OutboxKindEmail {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fixture) events() []model.EventPayload {
	var out []model.EventPayload
	for _, msg := range f.store.Outbox() {
		if msg.Kind != model.OutboxKindEvent {
			continue
		}
		var payload model.EventPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			out = append(out, payload)
		}
	}
	return out
}

func emailHTML(t *testing.T, msg model.OutboxMessage) string {
	t.Helper()
	var payload model.EmailPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload.HTML
}

func TestSubmitGeneratesUniqueTicketCodes(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})

	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		receipt := f.submit(t, nil)
		assert.True(t, ValidTicketCode(receipt.Code), receipt.Code)
		// 20:00 UTC on 31 March is already April in WIB
		assert.True(t, strings.HasPrefix(receipt.Code, "ADU-202404-"), receipt.Code)
		assert.False(t, seen[receipt.Code], "duplicate %s", receipt.Code)
		seen[receipt.Code] = true
	}
	assert.True(t, seen["ADU-202404-0001"])
	assert.True(t, seen["ADU-202404-0012"])
}

func TestSubmitSkipsCodesThatAlreadyExist(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	legacy := &model.Complaint{
		Code:         "ADU-202404-0001",
		CategoryID:   f.category.ID,
		Title:        "lama",
		Body:         "lama",
		ReporterName: "x",
	}
	require.NoError(t, f.store.CreateComplaint(context.Background(), legacy))

	receipt := f.submit(t, nil)

	assert.Equal(t, "ADU-202404-0002", receipt.Code)
}

func TestSubmitRecordsInitialHistoryAndStatus(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})

	receipt := f.submit(t, nil)

	complaint, err := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusMasuk, complaint.Status)
	assert.Nil(t, complaint.BidangID)
	require.NotNil(t, complaint.IncidentDate)
	assert.Equal(t, "2024-03-01", complaint.IncidentDate.Format("2006-01-02"))

	history := f.history(t, receipt.ID)
	require.Len(t, history, 1)
	assert.Equal(t, model.ComplaintStatusMasuk, history[0].Status)
	assert.Equal(t, "Pengaduan diterima dan menunggu verifikasi", history[0].Note)

	assert.Empty(t, f.emails(), "receipt email is off by default")
	assert.Empty(t, f.events(), "events are off by default")
}

func TestSubmitRedactsAnonymousReporter(t *testing.T) {
	f := newFixture(t, LifecycleOptions{SubmissionReceipt: true})

	receipt := f.submit(t, func(in *SubmitComplaintInput) {
		in.Anonymous = true
		in.ReporterName = "Nama Asli"
		in.ReporterEmail = "asli@contoh.id"
	})

	stored, err := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnonymousReporterName, stored.ReporterName)
	assert.Empty(t, stored.ReporterEmail)
	assert.Empty(t, stored.ReporterPhone)

	tracked, err := f.svc.TrackByCode(context.Background(), receipt.Code)
	require.NoError(t, err)
	assert.Equal(t, "Anonim", tracked.Complaint.ReporterName)
	assert.True(t, tracked.Complaint.Anonymous)

	assert.Empty(t, f.emails(), "anonymous reporters never get a receipt")
}

func TestSubmitReceiptEmailWhenEnabled(t *testing.T) {
	f := newFixture(t, LifecycleOptions{SubmissionReceipt: true})

	receipt := f.submit(t, nil)

	emails := f.emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "a@b.com", emails[0].Recipient)
	assert.Contains(t, emails[0].Subject, receipt.Code)
	assert.Contains(t, emailHTML(t, emails[0]), receipt.Code)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})

	cases := map[string]func(*SubmitComplaintInput){
		"missing title":    func(in *SubmitComplaintInput) { in.Title = "   " },
		"missing body":     func(in *SubmitComplaintInput) { in.Body = "" },
		"missing name":     func(in *SubmitComplaintInput) { in.ReporterName = "" },
		"missing email":    func(in *SubmitComplaintInput) { in.ReporterEmail = "" },
		"bad email":        func(in *SubmitComplaintInput) { in.ReporterEmail = "bukan-email" },
		"missing phone":    func(in *SubmitComplaintInput) { in.ReporterPhone = "" },
		"missing kategori": func(in *SubmitComplaintInput) { in.CategoryID = "" },
		"bad date":         func(in *SubmitComplaintInput) { in.IncidentDate = "01/03/2024" },
		"unknown kategori": func(in *SubmitComplaintInput) { in.CategoryID = uuid.NewString() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := f.input()
			mutate(&input)
			_, err := f.svc.Submit(context.Background(), input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	page, err := f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
}

func TestSubmitStoresEvidence(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})

	receipt := f.submit(t, func(in *SubmitComplaintInput) {
		in.Evidence = &storage.Upload{Filename: "slip gaji.pdf", Size: 3, Body: strings.NewReader("pdf")}
	})

	complaint, err := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, complaint.EvidencePath)
	assert.True(t, strings.HasPrefix(*complaint.EvidencePath, "bukti/"))
	assert.Contains(t, f.evidence.saved, *complaint.EvidencePath)
}

func TestSubmitFailsWhenEvidenceCannotBeStored(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	f.evidence.saveErr = errors.New("disk full")

	_, err := f.svc.Submit(context.Background(), func() SubmitComplaintInput {
		in := f.input()
		in.Evidence = &storage.Upload{Filename: "a.jpg", Body: strings.NewReader("x")}
		return in
	}())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSubmitDeletesEvidenceWhenInsertFails(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	f.store.Fail("CreateComplaint", errors.New("connection reset"))

	_, err := f.svc.Submit(context.Background(), func() SubmitComplaintInput {
		in := f.input()
		in.Evidence = &storage.Upload{Filename: "a.jpg", Body: strings.NewReader("x")}
		return in
	}())

	require.Error(t, err)
	require.Len(t, f.evidence.deleted, 1)
	assert.Empty(t, f.evidence.saved)
}

func TestSubmitSurvivesHistoryFailure(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	f.store.Fail("AppendHistory", errors.New("history table locked"))
	before := AuxiliaryFailures()

	receipt := f.submit(t, nil)

	assert.Greater(t, AuxiliaryFailures(), before)
	assert.Empty(t, f.history(t, receipt.ID))

	f.store.Fail("AppendHistory", nil)
	tracked, err := f.svc.TrackByCode(context.Background(), strings.ToLower(receipt.Code))
	require.NoError(t, err)
	require.Len(t, tracked.History, 1)
	assert.Equal(t, model.ComplaintStatusMasuk, tracked.History[0].Status)
}

func TestTrackByCode(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "terverifikasi"})
	require.NoError(t, err)

	tracked, err := f.svc.TrackByCode(context.Background(), "  "+strings.ToLower(receipt.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, tracked.Complaint.ID)
	assert.Equal(t, "Budi Santoso", tracked.Complaint.ReporterName)
	require.Len(t, tracked.History, 2)
	for i := 1; i < len(tracked.History); i++ {
		assert.False(t, tracked.History[i].CreatedAt.Before(tracked.History[i-1].CreatedAt))
	}

	raw, err := json.Marshal(tracked)
	require.NoError(t, err)
	for _, field := range []string{"email_pelapor", "telepon_pelapor", "bukti_file", "a@b.com", "081234567890"} {
		assert.NotContains(t, string(raw), field)
	}

	_, err = f.svc.TrackByCode(context.Background(), "ADU-199901-0001")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.TrackByCode(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusNotifiesOnlyOnChange(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)

	updated, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "terverifikasi"})
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerverifikasi, updated.Status)
	assert.Len(t, f.history(t, receipt.ID), 2)

	emails := f.emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "a@b.com", emails[0].Recipient)
	html := emailHTML(t, emails[0])
	assert.Contains(t, html, "Masuk")
	assert.Contains(t, html, "Terverifikasi")

	_, err = f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "TERVERIFIKASI"})
	require.NoError(t, err)

	history := f.history(t, receipt.ID)
	require.Len(t, history, 3)
	assert.Equal(t, "Pengaduan telah diverifikasi oleh admin", history[2].Note)
	assert.Len(t, f.emails(), 1)
}

func TestUpdateStatusNeverEmailsAnonymousReporter(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, func(in *SubmitComplaintInput) { in.Anonymous = true })

	for _, status := range []string{"terverifikasi", "tindak_lanjut", "selesai"} {
		_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: status})
		require.NoError(t, err)
	}

	assert.Empty(t, f.emails())
	assert.Len(t, f.history(t, receipt.ID), 4)
}

func TestUpdateStatusWithBidangCode(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)

	updated, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{
		Status:     "tindak_lanjut",
		BidangCode: "was",
	})

	require.NoError(t, err)
	require.NotNil(t, updated.BidangID)
	assert.Equal(t, f.bidangB.ID, *updated.BidangID)
	assert.Equal(t, model.ComplaintStatusTindakLanjut, updated.Status)

	_, err = f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{
		Status:     "selesai",
		BidangCode: "TIDAKADA",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "ditolak"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateStatus(context.Background(), f.admin, uuid.New(), UpdateStatusInput{Status: "selesai"})
	assert.ErrorIs(t, err, ErrNotFound)

	// not yet routed, so no department may touch it
	_, err = f.svc.UpdateStatus(context.Background(), f.petugas(f.bidangA), receipt.ID, UpdateStatusInput{Status: "selesai"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateStatusRollsBackWhenStateWriteFails(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.store.Fail("UpdateComplaintState", errors.New("deadlock detected"))

	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "selesai"})

	require.Error(t, err)
	assert.Len(t, f.history(t, receipt.ID), 1)
	assert.Empty(t, f.emails())
}

func TestUpdateStatusSurvivesOutboxFailure(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.store.Fail("EnqueueOutbox", errors.New("outbox full"))

	updated, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "terverifikasi"})

	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerverifikasi, updated.Status)
	assert.Len(t, f.history(t, receipt.ID), 2)
	assert.Empty(t, f.emails())
}

func TestStrictPolicyRejectsSkippingStates(t *testing.T) {
	f := newFixture(t, LifecycleOptions{Policy: NewStrictPolicy()})
	receipt := f.submit(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "selesai"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "terverifikasi"})
	assert.NoError(t, err)
}

func TestPermissivePolicyAllowsBackwardMoves(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "selesai"})
	require.NoError(t, err)
	updated, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "masuk"})
	require.NoError(t, err)

	assert.Equal(t, model.ComplaintStatusMasuk, updated.Status)
}

func TestDispositionFromIntake(t *testing.T) {
	f := newFixture(t, LifecycleOptions{PublishEvents: true})
	receipt := f.submit(t, nil)

	disposition, err := f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  f.bidangA.ID.String(),
		Note:        "Perselisihan hak",
	})

	require.NoError(t, err)
	assert.Nil(t, disposition.FromBidangID)
	assert.Equal(t, f.bidangA.ID, disposition.ToBidangID)
	require.NotNil(t, disposition.UserID)
	assert.Equal(t, f.admin.UserID, *disposition.UserID)

	complaint, err := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerdisposisi, complaint.Status)
	require.NotNil(t, complaint.BidangID)
	assert.Equal(t, f.bidangA.ID, *complaint.BidangID)

	history := f.history(t, receipt.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "Pengaduan didisposisikan ke Hubungan Industrial: Perselisihan hak", history[1].Note)
	assert.Contains(t, history[1].Note, f.bidangA.Name)

	dispositions, err := f.svc.ListDispositions(context.Background(), f.admin, receipt.ID.String())
	require.NoError(t, err)
	require.Len(t, dispositions, 1)
	assert.Nil(t, dispositions[0].FromBidangID)

	assert.Empty(t, f.emails(), "disposition does not email the reporter")

	var actions []string
	for _, event := range f.events() {
		actions = append(actions, event.Action)
	}
	assert.Equal(t, []string{"PENGADUAN_DIBUAT", "PENGADUAN_DIDISPOSISI"}, actions)
}

func TestDispositionOverridesAnyPriorStatus(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	_, err := f.svc.UpdateStatus(context.Background(), f.admin, receipt.ID, UpdateStatusInput{Status: "selesai"})
	require.NoError(t, err)

	_, err = f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID:  receipt.ID.String(),
		FromBidangID: f.bidangA.ID.String(),
		ToBidangID:   f.bidangB.ID.String(),
		Note:         "Perlu pemeriksaan",
	})
	require.NoError(t, err)

	complaint, err := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerdisposisi, complaint.Status)
	assert.Equal(t, f.bidangB.ID, *complaint.BidangID)
}

func TestDispositionErrors(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)

	_, err := f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  uuid.NewString(),
		Note:        "x",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  f.bidangA.ID.String(),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: uuid.NewString(),
		ToBidangID:  f.bidangA.ID.String(),
		Note:        "x",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Disposition(context.Background(), f.petugas(f.bidangA), DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  f.bidangA.ID.String(),
		Note:        "x",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	dispositions, err := f.svc.ListDispositions(context.Background(), f.admin, receipt.ID.String())
	require.NoError(t, err)
	assert.Empty(t, dispositions)
}

func TestDispositionUnknownUserIsInvalidInput(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.store.Fail("CreateDisposition", &pgconn.PgError{Code: "23503", ConstraintName: "disposisi_user_id_fkey"})

	_, err := f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  f.bidangA.ID.String(),
		Note:        "x",
		UserID:      uuid.NewString(),
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
	complaint, getErr := f.store.GetComplaint(context.Background(), receipt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.ComplaintStatusMasuk, complaint.Status)
}

func TestDispositionRollsBackRecordWhenStatusUpdateFails(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.store.Fail("UpdateComplaintState", errors.New("timeout"))

	_, err := f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: receipt.ID.String(),
		ToBidangID:  f.bidangA.ID.String(),
		Note:        "x",
	})
	require.Error(t, err)

	dispositions, err := f.store.ListDispositions(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Empty(t, dispositions)
}

func (f *fixture) dispose(t *testing.T, id uuid.UUID, bidang model.Bidang) {
	t.Helper()
	_, err := f.svc.Disposition(context.Background(), f.admin, DispositionInput{
		ComplaintID: id.String(),
		ToBidangID:  bidang.ID.String(),
		Note:        "Mohon ditindaklanjuti",
	})
	require.NoError(t, err)
}

func TestRecordStaffResponseWithStatus(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.dispose(t, receipt.ID, f.bidangA)
	staff := f.petugas(f.bidangA)

	entry, err := f.svc.RecordStaffResponse(context.Background(), staff, receipt.ID, StaffResponseInput{
		Response:  "Perusahaan telah dipanggil untuk klarifikasi.",
		ActorName: "Sari",
		Status:    "tindak_lanjut",
	})

	require.NoError(t, err)
	assert.Equal(t, "Tanggapan dari Sari", entry.Note)
	assert.Equal(t, model.ComplaintStatusTindakLanjut, entry.Status)
	require.NotNil(t, entry.Response)
	assert.Equal(t, "Perusahaan telah dipanggil untuk klarifikasi.", *entry.Response)

	history := f.history(t, receipt.ID)
	require.Len(t, history, 4)
	assert.Equal(t, "Tanggapan dari Sari", history[2].Note)
	assert.Equal(t, "Pengaduan sedang ditindaklanjuti oleh bidang terkait", history[3].Note)

	emails := f.emails()
	require.Len(t, emails, 1, "status change from a response notifies like UpdateStatus")
	assert.Contains(t, emailHTML(t, emails[0]), "Tindak Lanjut")
}

func TestRecordStaffResponseWithoutStatus(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.dispose(t, receipt.ID, f.bidangA)

	entry, err := f.svc.RecordStaffResponse(context.Background(), f.admin, receipt.ID, StaffResponseInput{
		Response:  "Sedang dijadwalkan mediasi.",
		ActorName: "Admin",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusTerdisposisi, entry.Status)
	assert.Len(t, f.history(t, receipt.ID), 3)
	assert.Empty(t, f.emails())
}

func TestRecordStaffResponseErrors(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.dispose(t, receipt.ID, f.bidangA)

	_, err := f.svc.RecordStaffResponse(context.Background(), f.admin, receipt.ID, StaffResponseInput{ActorName: "Sari"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.RecordStaffResponse(context.Background(), f.admin, receipt.ID, StaffResponseInput{Response: "x", ActorName: "Sari", Status: "ditolak"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.RecordStaffResponse(context.Background(), f.petugas(f.bidangB), receipt.ID, StaffResponseInput{Response: "x", ActorName: "Sari"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Len(t, f.history(t, receipt.ID), 2)
}

func TestListComplaintsDepartmentFilterOnlyShowsRoutedStatuses(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	routed := f.submit(t, nil)
	f.dispose(t, routed.ID, f.bidangA)

	// verified but pointed at bidang A without routing
	verified := f.submit(t, nil)
	_, err := f.svc.UpdateStatus(context.Background(), f.admin, verified.ID, UpdateStatusInput{Status: "terverifikasi", BidangCode: "HI"})
	require.NoError(t, err)

	f.submit(t, nil)

	page, err := f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{BidangID: f.bidangA.ID.String()})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, routed.ID, page.Items[0].ID)
	for _, item := range page.Items {
		assert.NotEqual(t, model.ComplaintStatusMasuk, item.Status)
		assert.NotEqual(t, model.ComplaintStatusTerverifikasi, item.Status)
	}

	page, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{BidangID: f.bidangA.ID.String(), Status: "terverifikasi"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Status: "masuk"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func TestListComplaintsScopesPetugasToOwnBidang(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	inA := f.submit(t, nil)
	f.dispose(t, inA.ID, f.bidangA)
	inB := f.submit(t, nil)
	f.dispose(t, inB.ID, f.bidangB)

	page, err := f.svc.ListComplaints(context.Background(), f.petugas(f.bidangA), ListComplaintsOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, inA.ID, page.Items[0].ID)

	_, err = f.svc.ListComplaints(context.Background(), f.petugas(f.bidangA), ListComplaintsOptions{BidangID: f.bidangB.ID.String()})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.GetDetail(context.Background(), f.petugas(f.bidangA), inB.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListComplaintsPagination(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	for i := 0; i < 5; i++ {
		f.submit(t, nil)
	}

	page, err := f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, model.Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, page.Pagination)

	page, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.Page)

	_, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Status: "unknown"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Page: math.MaxInt, Limit: 100})
	assert.ErrorIs(t, err, ErrInvalidInput)

	page, err = f.svc.ListComplaints(context.Background(), f.admin, ListComplaintsOptions{Page: 1000, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1000, page.Pagination.Page)
}

func TestGetDetail(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	receipt := f.submit(t, nil)
	f.dispose(t, receipt.ID, f.bidangA)

	detail, err := f.svc.GetDetail(context.Background(), f.petugas(f.bidangA), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Code, detail.Complaint.Code)
	require.NotNil(t, detail.Complaint.Category)
	assert.Equal(t, f.category.Name, detail.Complaint.Category.Name)
	assert.Len(t, detail.History, 2)
	require.Len(t, detail.Dispositions, 1)
	require.NotNil(t, detail.Dispositions[0].ToBidang)
	assert.Equal(t, "HI", detail.Dispositions[0].ToBidang.Code)

	_, err = f.svc.GetDetail(context.Background(), f.admin, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	a := f.submit(t, nil)
	f.dispose(t, a.ID, f.bidangA)
	b := f.submit(t, nil)
	f.dispose(t, b.ID, f.bidangB)
	f.submit(t, nil)

	stats, err := f.svc.Statistics(context.Background(), f.admin, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[model.ComplaintStatusMasuk])
	assert.EqualValues(t, 2, stats.ByStatus[model.ComplaintStatusTerdisposisi])
	assert.Len(t, stats.ByStatus, len(model.ComplaintStatuses))

	stats, err = f.svc.Statistics(context.Background(), f.petugas(f.bidangA), "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Total)
}

func TestListDispositionsRequiresComplaintID(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})

	_, err := f.svc.ListDispositions(context.Background(), f.admin, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ListDispositions(context.Background(), f.admin, "abc")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ListDispositions(context.Background(), f.admin, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
