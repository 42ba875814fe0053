package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sipelan-service/internal/model"
)

// MemoryStore keeps every table in process memory. It backs tests and local
// runs without Postgres. Missing rows yield gorm.ErrRecordNotFound and
// duplicate keys yield gorm.ErrDuplicatedKey so callers see the same errors
// as with the gorm repositories.
type MemoryStore struct {
	mu sync.Mutex

	complaints   map[uuid.UUID]model.Complaint
	history      []model.StatusHistory
	dispositions []model.Disposition
	outbox       []model.OutboxMessage
	bidang       map[uuid.UUID]model.Bidang
	categories   map[uuid.UUID]model.Category
	users        map[uuid.UUID]model.User
	sequences    map[string]int64
	historySeq   int64

	failures map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: map[uuid.UUID]model.Complaint{},
		bidang:     map[uuid.UUID]model.Bidang{},
		categories: map[uuid.UUID]model.Category{},
		users:      map[uuid.UUID]model.User{},
		sequences:  map[string]int64{},
		failures:   map[string]error{},
	}
}

// Fail makes every later call of the named method return err.
// Passing a nil err clears the failure.
func (m *MemoryStore) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// SetTicketSequence overrides the last issued sequence value of a period.
func (m *MemoryStore) SetTicketSequence(period string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[period] = value
}

// Outbox returns a copy of every queued message.
func (m *MemoryStore) Outbox() []model.OutboxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OutboxMessage(nil), m.outbox...)
}

type memorySnapshot struct {
	complaints   map[uuid.UUID]model.Complaint
	history      []model.StatusHistory
	dispositions []model.Disposition
	outbox       []model.OutboxMessage
	bidang       map[uuid.UUID]model.Bidang
	categories   map[uuid.UUID]model.Category
	users        map[uuid.UUID]model.User
	sequences    map[string]int64
}

func (m *MemoryStore) snapshot() memorySnapshot {
	return memorySnapshot{
		complaints:   cloneMap(m.complaints),
		history:      append([]model.StatusHistory(nil), m.history...),
		dispositions: append([]model.Disposition(nil), m.dispositions...),
		outbox:       append([]model.OutboxMessage(nil), m.outbox...),
		bidang:       cloneMap(m.bidang),
		categories:   cloneMap(m.categories),
		users:        cloneMap(m.users),
		sequences:    cloneMap(m.sequences),
	}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.complaints = s.complaints
	m.history = s.history
	m.dispositions = s.dispositions
	m.outbox = s.outbox
	m.bidang = s.bidang
	m.categories = s.categories
	m.users = s.users
	m.sequences = s.sequences
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) failure(method string) error {
	return m.failures[method]
}

// Transaction rolls every change made inside fn back when fn fails.
// Concurrent transactions are not isolated from each other.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx LifecycleStore) error) error {
	m.mu.Lock()
	if err := m.failure("Transaction"); err != nil {
		m.mu.Unlock()
		return err
	}
	saved := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(saved)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) NextTicketSequence(ctx context.Context, period string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("NextTicketSequence"); err != nil {
		return 0, err
	}
	m.sequences[period]++
	return m.sequences[period], nil
}

func (m *MemoryStore) CreateComplaint(ctx context.Context, complaint *model.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateComplaint"); err != nil {
		return err
	}
	for _, existing := range m.complaints {
		if existing.Code == complaint.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	if complaint.UpdatedAt.IsZero() {
		complaint.UpdatedAt = complaint.CreatedAt
	}
	if complaint.Status == "" {
		complaint.Status = model.ComplaintStatusMasuk
	}
	stored := *complaint
	stored.Category = nil
	stored.Bidang = nil
	m.complaints[complaint.ID] = stored
	return nil
}

func (m *MemoryStore) GetComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetComplaint"); err != nil {
		return nil, err
	}
	complaint, ok := m.complaints[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withRefs(complaint), nil
}

func (m *MemoryStore) LockComplaint(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("LockComplaint"); err != nil {
		return nil, err
	}
	complaint, ok := m.complaints[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &complaint, nil
}

func (m *MemoryStore) GetComplaintByCode(ctx context.Context, code string) (*model.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetComplaintByCode"); err != nil {
		return nil, err
	}
	for _, complaint := range m.complaints {
		if complaint.Code == code {
			return m.withRefs(complaint), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListComplaints"); err != nil {
		return nil, 0, err
	}

	matched := m.filterComplaints(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]model.Complaint, 0, len(matched))
	for _, complaint := range matched {
		out = append(out, *m.withRefs(complaint))
	}
	return out, total, nil
}

func (m *MemoryStore) CountByStatus(ctx context.Context, filter ComplaintFilter) (map[model.ComplaintStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountByStatus"); err != nil {
		return nil, err
	}
	counts := map[model.ComplaintStatus]int64{}
	for _, complaint := range m.filterComplaints(filter) {
		counts[complaint.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) UpdateComplaintState(ctx context.Context, id uuid.UUID, change StateChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateComplaintState"); err != nil {
		return err
	}
	complaint, ok := m.complaints[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	complaint.Status = change.Status
	if change.BidangID != nil {
		bidangID := *change.BidangID
		complaint.BidangID = &bidangID
	}
	complaint.UpdatedAt = change.At
	m.complaints[id] = complaint
	return nil
}

func (m *MemoryStore) AppendHistory(ctx context.Context, entry *model.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AppendHistory"); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.historySeq++
	entry.Seq = m.historySeq
	m.history = append(m.history, *entry)
	return nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, complaintID uuid.UUID) ([]model.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListHistory"); err != nil {
		return nil, err
	}
	out := make([]model.StatusHistory, 0)
	for _, entry := range m.history {
		if entry.ComplaintID == complaintID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CreateDisposition(ctx context.Context, disposition *model.Disposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateDisposition"); err != nil {
		return err
	}
	if disposition.ID == uuid.Nil {
		disposition.ID = uuid.New()
	}
	if disposition.CreatedAt.IsZero() {
		disposition.CreatedAt = time.Now().UTC()
	}
	m.dispositions = append(m.dispositions, *disposition)
	return nil
}

func (m *MemoryStore) ListDispositions(ctx context.Context, complaintID uuid.UUID) ([]model.Disposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListDispositions"); err != nil {
		return nil, err
	}
	out := make([]model.Disposition, 0)
	for _, disposition := range m.dispositions {
		if disposition.ComplaintID != complaintID {
			continue
		}
		if disposition.FromBidangID != nil {
			if from, ok := m.bidang[*disposition.FromBidangID]; ok {
				disposition.FromBidang = &from
			}
		}
		if to, ok := m.bidang[disposition.ToBidangID]; ok {
			disposition.ToBidang = &to
		}
		out = append(out, disposition)
	}
	return out, nil
}

func (m *MemoryStore) EnqueueOutbox(ctx context.Context, msg *model.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("EnqueueOutbox"); err != nil {
		return err
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = model.OutboxStatusPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.NextAttemptAt.IsZero() {
		msg.NextAttemptAt = msg.CreatedAt
	}
	m.outbox = append(m.outbox, *msg)
	return nil
}

func (m *MemoryStore) ClaimDueOutbox(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ClaimDueOutbox"); err != nil {
		return nil, err
	}
	claimed := make([]model.OutboxMessage, 0)
	for i := range m.outbox {
		if limit > 0 && len(claimed) >= limit {
			break
		}
		msg := &m.outbox[i]
		due := msg.Status == model.OutboxStatusPending && !msg.NextAttemptAt.After(now)
		stale := msg.Status == model.OutboxStatusProcessing && msg.ClaimedAt != nil && msg.ClaimedAt.Before(staleBefore)
		if !due && !stale {
			continue
		}
		if stale {
			msg.Attempts++
		}
		claimedAt := now
		msg.Status = model.OutboxStatusProcessing
		msg.ClaimedAt = &claimedAt
		claimed = append(claimed, *msg)
	}
	return claimed, nil
}

func (m *MemoryStore) MarkOutboxSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MarkOutboxSent"); err != nil {
		return err
	}
	for i := range m.outbox {
		if m.outbox[i].ID == id {
			sentAt := at
			m.outbox[i].Status = model.OutboxStatusSent
			m.outbox[i].SentAt = &sentAt
			m.outbox[i].LastError = nil
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *MemoryStore) MarkOutboxRetry(ctx context.Context, id uuid.UUID, update OutboxRetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MarkOutboxRetry"); err != nil {
		return err
	}
	for i := range m.outbox {
		if m.outbox[i].ID != id {
			continue
		}
		lastErr := update.LastError
		m.outbox[i].Attempts = update.Attempts
		m.outbox[i].NextAttemptAt = update.NextAttemptAt
		m.outbox[i].LastError = &lastErr
		m.outbox[i].ClaimedAt = nil
		m.outbox[i].Status = model.OutboxStatusPending
		if update.Failed {
			m.outbox[i].Status = model.OutboxStatusFailed
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *MemoryStore) ListBidangWithUsage(ctx context.Context) ([]model.BidangSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListBidangWithUsage"); err != nil {
		return nil, err
	}
	out := make([]model.BidangSummary, 0, len(m.bidang))
	for _, bidang := range m.bidang {
		users, complaints := m.usage(bidang.ID)
		out = append(out, model.BidangSummary{Bidang: bidang, UserCount: users, ComplaintCount: complaints})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetBidang(ctx context.Context, id uuid.UUID) (*model.Bidang, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetBidang"); err != nil {
		return nil, err
	}
	bidang, ok := m.bidang[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &bidang, nil
}

func (m *MemoryStore) GetBidangByCode(ctx context.Context, code string) (*model.Bidang, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetBidangByCode"); err != nil {
		return nil, err
	}
	for _, bidang := range m.bidang {
		if strings.EqualFold(bidang.Code, code) {
			found := bidang
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryStore) CreateBidang(ctx context.Context, bidang *model.Bidang) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateBidang"); err != nil {
		return err
	}
	for _, existing := range m.bidang {
		if strings.EqualFold(existing.Code, bidang.Code) {
			return gorm.ErrDuplicatedKey
		}
	}
	if bidang.ID == uuid.Nil {
		bidang.ID = uuid.New()
	}
	now := time.Now().UTC()
	bidang.CreatedAt = now
	bidang.UpdatedAt = now
	m.bidang[bidang.ID] = *bidang
	return nil
}

func (m *MemoryStore) UpdateBidang(ctx context.Context, bidang *model.Bidang) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateBidang"); err != nil {
		return err
	}
	current, ok := m.bidang[bidang.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for id, existing := range m.bidang {
		if id != bidang.ID && strings.EqualFold(existing.Code, bidang.Code) {
			return gorm.ErrDuplicatedKey
		}
	}
	current.Name = bidang.Name
	current.Code = bidang.Code
	current.Description = bidang.Description
	current.UpdatedAt = time.Now().UTC()
	m.bidang[bidang.ID] = current
	*bidang = current
	return nil
}

func (m *MemoryStore) CountBidangUsage(ctx context.Context, id uuid.UUID) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountBidangUsage"); err != nil {
		return 0, 0, err
	}
	users, complaints := m.usage(id)
	return users, complaints, nil
}

func (m *MemoryStore) DeleteBidang(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteBidang"); err != nil {
		return err
	}
	if _, ok := m.bidang[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.bidang, id)
	return nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetCategory"); err != nil {
		return nil, err
	}
	category, ok := m.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &category, nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListCategories"); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(m.categories))
	for _, category := range m.categories {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, category *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateCategory"); err != nil {
		return err
	}
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.CreatedAt = time.Now().UTC()
	m.categories[category.ID] = *category
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetUser"); err != nil {
		return nil, err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			found := user
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) filterComplaints(filter ComplaintFilter) []model.Complaint {
	search := strings.ToLower(filter.Search)
	out := make([]model.Complaint, 0)
	for _, complaint := range m.complaints {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, complaint.Status) {
			continue
		}
		if filter.BidangID != nil && (complaint.BidangID == nil || *complaint.BidangID != *filter.BidangID) {
			continue
		}
		if filter.CategoryID != nil && complaint.CategoryID != *filter.CategoryID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(complaint.Code), search) &&
			!strings.Contains(strings.ToLower(complaint.Title), search) {
			continue
		}
		out = append(out, complaint)
	}
	return out
}

func (m *MemoryStore) withRefs(complaint model.Complaint) *model.Complaint {
	if category, ok := m.categories[complaint.CategoryID]; ok {
		complaint.Category = &category
	}
	if complaint.BidangID != nil {
		if bidang, ok := m.bidang[*complaint.BidangID]; ok {
			complaint.Bidang = &bidang
		}
	}
	return &complaint
}

func (m *MemoryStore) usage(id uuid.UUID) (int64, int64) {
	var users, complaints int64
	for _, user := range m.users {
		if user.BidangID != nil && *user.BidangID == id {
			users++
		}
	}
	for _, complaint := range m.complaints {
		if complaint.BidangID != nil && *complaint.BidangID == id {
			complaints++
		}
	}
	return users, complaints
}

func containsStatus(statuses []model.ComplaintStatus, status model.ComplaintStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

var (
	_ LifecycleStore = (*MemoryStore)(nil)
	_ BidangStore    = (*MemoryStore)(nil)
	_ CategoryStore  = (*MemoryStore)(nil)
	_ UserStore      = (*MemoryStore)(nil)
	_ OutboxStore    = (*MemoryStore)(nil)

	_ LifecycleStore = (*LifecycleRepository)(nil)
	_ BidangStore    = (*BidangRepository)(nil)
	_ CategoryStore  = (*CategoryRepository)(nil)
	_ UserStore      = (*UserRepository)(nil)
	_ OutboxStore    = (*OutboxRepository)(nil)
)
