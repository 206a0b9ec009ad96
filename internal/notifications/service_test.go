package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory Store. The mutex stands in for the advisory lock.
type memoryStore struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	rows      []models.Notification
	nextID    int64
	insertErr error
	contacts  map[int64]models.Contact
}

func newMemoryStore() *memoryStore {
	return &memoryStore{contacts: map[int64]models.Contact{}}
}

func (m *memoryStore) Insert(_ context.Context, n *models.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	row := *n
	row.ID = m.nextID
	m.rows = append(m.rows, row)
	return row.ID, nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID int64, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) MarkRead(_ context.Context, id, userID int64, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].IsRead = true
			m.rows[i].ReadAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memoryStore) UnreadCount(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.UserID == userID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Contact(_ context.Context, userID int64) (models.Contact, error) {
	c, ok := m.contacts[userID]
	if !ok {
		return models.Contact{}, ErrNoContact
	}
	return c, nil
}

func (m *memoryStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(&memoryTx{m: m})
}

type memoryTx struct{ m *memoryStore }

func (t *memoryTx) LockKey(context.Context, DedupKey) error { return nil }

func (t *memoryTx) ExistsSince(_ context.Context, key DedupKey, since time.Time) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, n := range t.m.rows {
		if n.Type == key.Type && n.RelatedType == key.RelatedType &&
			n.RelatedID != nil && *n.RelatedID == key.RelatedID && n.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) Insert(ctx context.Context, n *models.Notification) (int64, error) {
	return t.m.Insert(ctx, n)
}

type recordingRelay struct {
	delivered []models.Notification
	err       error
}

func (r *recordingRelay) Deliver(_ context.Context, n models.Notification, _ models.Contact) error {
	r.delivered = append(r.delivered, n)
	return r.err
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestService_Create_RendersTemplate(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, logger.NewTestLogger(t))
	related := int64(42)

	n, err := svc.Create(context.Background(), Request{
		UserID:      1,
		Type:        models.TypeNewApplication,
		Data:        map[string]interface{}{"referenceNumber": "APP-2024-0042", "serviceName": "Assistive Devices"},
		RelatedID:   &related,
		RelatedType: "applications",
	})

	require.NoError(t, err)
	assert.Equal(t, "New Application Submitted", n.Title)
	assert.Contains(t, n.Message, "APP-2024-0042")
	assert.Equal(t, models.NotificationMedium, n.Priority)
	assert.False(t, n.IsRead)
	assert.Len(t, store.rows, 1)
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(newMemoryStore(), logger.NewNoOpLogger())

	_, err := svc.Create(context.Background(), Request{Type: models.TypeNewApplication})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.Create(context.Background(), Request{UserID: 1, Type: "unknown"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_Notify_SwallowsFailures(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = errors.New("disk full")
	svc := NewService(store, logger.NewTestLogger(t))

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), Request{UserID: 1, Type: models.TypeNewApplication})
	})
	assert.Empty(t, store.rows)
}

func TestService_ListAndUnread(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, logger.NewNoOpLogger(), WithListLimit(2))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, Request{UserID: 5, Type: "custom", Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, Request{UserID: 6, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)

	items, err := svc.List(ctx, 5, 100)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Greater(t, items[0].ID, items[1].ID)

	count, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	empty, err := svc.List(ctx, 77, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestService_MarkRead(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	svc := NewService(store, logger.NewNoOpLogger(), WithClock(fixedClock(now)))
	ctx := context.Background()

	n, err := svc.Create(ctx, Request{UserID: 5, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)

	t.Run("foreign user", func(t *testing.T) {
		err := svc.MarkRead(ctx, n.ID, 6)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("missing id", func(t *testing.T) {
		err := svc.MarkRead(ctx, 999, 5)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("owner", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(ctx, n.ID, 5))
		assert.True(t, store.rows[0].IsRead)
		assert.Equal(t, now, *store.rows[0].ReadAt)
	})
}

func TestService_NotifyOnce(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	svc := NewService(store, logger.NewNoOpLogger(), WithClock(fixedClock(now)))
	ctx := context.Background()

	citizenID := int64(42)
	key := DedupKey{Type: models.TypeIDRenewal, RelatedType: "citizen_records", RelatedID: citizenID}
	reqs := []Request{
		{UserID: 10, Type: models.TypeIDRenewal, Template: TemplateRenewalCitizen, RelatedID: &citizenID, RelatedType: "citizen_records", Priority: models.NotificationHigh},
		{UserID: 1, Type: models.TypeIDRenewal, Template: TemplateRenewalStaff, RelatedID: &citizenID, RelatedType: "citizen_records"},
	}

	sent, err := svc.NotifyOnce(ctx, key, now.AddDate(0, 0, -7), reqs...)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = svc.NotifyOnce(ctx, key, now.AddDate(0, 0, -7), reqs...)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, store.rows, 2)
}

func TestService_NotifyOnce_ConcurrentCallsInsertOnce(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	svc := NewService(store, logger.NewNoOpLogger(), WithClock(fixedClock(now)))

	citizenID := int64(7)
	key := DedupKey{Type: models.TypeIDRenewal, RelatedType: "citizen_records", RelatedID: citizenID}
	req := Request{UserID: 1, Type: models.TypeIDRenewal, Title: "t", Message: "m", RelatedID: &citizenID, RelatedType: "citizen_records"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.NotifyOnce(context.Background(), key, now.AddDate(0, 0, -7), req)
		}()
	}
	wg.Wait()

	assert.Len(t, store.rows, 1)
}

func TestService_NotifyOnce_DeadlockIsConflict(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = &pq.Error{Code: "40P01"}
	svc := NewService(store, logger.NewNoOpLogger())

	citizenID := int64(9)
	key := DedupKey{Type: models.TypeIDRenewal, RelatedType: "citizen_records", RelatedID: citizenID}
	req := Request{UserID: 1, Type: models.TypeIDRenewal, Title: "t", Message: "m", RelatedID: &citizenID, RelatedType: "citizen_records"}

	sent, err := svc.NotifyOnce(context.Background(), key, time.Now().AddDate(0, 0, -7), req)
	assert.False(t, sent)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConflict))

	store.insertErr = errors.New("disk full")
	_, err = svc.NotifyOnce(context.Background(), key, time.Now().AddDate(0, 0, -7), req)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSystem))
}

func TestService_RelayFailureDoesNotFailCreate(t *testing.T) {
	store := newMemoryStore()
	store.contacts[5] = models.Contact{Email: "maria@example.com"}
	relay := &recordingRelay{err: errors.New("ses throttled")}
	svc := NewService(store, logger.NewTestLogger(t), WithRelay(relay))

	_, err := svc.Create(context.Background(), Request{UserID: 5, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Len(t, relay.delivered, 1)

	_, err = svc.Create(context.Background(), Request{UserID: 6, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Len(t, relay.delivered, 1, "no contact on file, nothing relayed")
}
