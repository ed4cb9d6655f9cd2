package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/trip-expense/internal/application/authz"
	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/application/workflow"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
)

// memStore backs the repository mocks with maps; records are copied in and out
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	trips         map[int64]*entity.Trip
	advances      map[int64]*entity.Advance
	receipts      map[int64]*entity.Receipt
	settlements   map[int64]*entity.Settlement
	history       []*entity.StatusHistoryEntry
	reviews       []*entity.TripReview
	notifications map[int64]*entity.Notification
	settings      map[string]*entity.Setting
	sequences     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		trips:         make(map[int64]*entity.Trip),
		advances:      make(map[int64]*entity.Advance),
		receipts:      make(map[int64]*entity.Receipt),
		settlements:   make(map[int64]*entity.Settlement),
		notifications: make(map[int64]*entity.Notification),
		settings:      make(map[string]*entity.Setting),
		sequences:     make(map[string]int),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func inScope(scope entity.TripScope, trip *entity.Trip) bool {
	if trip == nil {
		return false
	}
	if scope.OwnerID != "" && trip.OwnerID != scope.OwnerID {
		return false
	}
	if scope.OwnerAreaCode != "" && trip.OwnerAreaCode != scope.OwnerAreaCode {
		return false
	}
	return true
}

// Trip repository

type mockTripRepo struct {
	*memStore
	updateStatusFunc func(ctx context.Context, trip *entity.Trip, from entity.TripStatus) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip *entity.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip.ID = m.id()
	c := *trip
	m.trips[trip.ID] = &c
	return nil
}

func (m *mockTripRepo) GetByID(ctx context.Context, id int64) (*entity.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *mockTripRepo) Update(ctx context.Context, trip *entity.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *trip
	m.trips[trip.ID] = &c
	return nil
}

func (m *mockTripRepo) UpdateStatus(ctx context.Context, trip *entity.Trip, from entity.TripStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, trip, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok || stored.Status != from {
		return port.ErrStatusChanged
	}
	c := *trip
	m.trips[trip.ID] = &c
	return nil
}

func (m *mockTripRepo) HasActiveTrip(ctx context.Context, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips {
		if t.OwnerID == ownerID && t.Status == entity.TripStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTripRepo) List(ctx context.Context, filter entity.TripFilter) ([]*entity.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Trip
	for _, t := range m.trips {
		if inScope(filter.Scope, t) && (filter.Status == "" || t.Status == filter.Status) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockTripRepo) CountByStatus(ctx context.Context, scope entity.TripScope) (map[entity.TripStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[entity.TripStatus]int)
	for _, t := range m.trips {
		if inScope(scope, t) {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func (m *mockTripRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, id)
	return nil
}

// Advance repository

type mockAdvanceRepo struct {
	*memStore
}

func (m *mockAdvanceRepo) Create(ctx context.Context, advance *entity.Advance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	advance.ID = m.id()
	c := *advance
	m.advances[advance.ID] = &c
	return nil
}

func (m *mockAdvanceRepo) GetByID(ctx context.Context, id int64) (*entity.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.advances[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *mockAdvanceRepo) ListByTrip(ctx context.Context, tripID int64) ([]*entity.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Advance
	for _, a := range m.advances {
		if a.TripID == tripID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAdvanceRepo) List(ctx context.Context, filter port.AdvanceFilter) ([]*entity.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Advance
	for _, a := range m.advances {
		if inScope(filter.Scope, m.trips[a.TripID]) && (filter.Status == "" || a.Status == filter.Status) {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockAdvanceRepo) Update(ctx context.Context, advance *entity.Advance, from entity.AdvanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.advances[advance.ID]
	if !ok || stored.Status != from {
		return port.ErrStatusChanged
	}
	c := *advance
	m.advances[advance.ID] = &c
	return nil
}

func (m *mockAdvanceRepo) HasOpenInitial(ctx context.Context, tripID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.advances {
		if a.TripID == tripID && a.RequestType == entity.AdvanceTypeInitial &&
			a.Status != entity.AdvanceStatusRejected && a.Status != entity.AdvanceStatusVoided {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAdvanceRepo) SumApprovedAmount(ctx context.Context, tripID int64, statuses []entity.AdvanceStatus) (entity.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total entity.Money
	for _, a := range m.advances {
		if a.TripID != tripID {
			continue
		}
		for _, s := range statuses {
			if a.Status == s {
				total += a.ApprovedValue()
			}
		}
	}
	return total, nil
}

func (m *mockAdvanceRepo) CountByStatus(ctx context.Context, scope entity.TripScope, status entity.AdvanceStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.advances {
		if a.Status == status && inScope(scope, m.trips[a.TripID]) {
			n++
		}
	}
	return n, nil
}

func (m *mockAdvanceRepo) Delete(ctx context.Context, id int64, status entity.AdvanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.advances[id]
	if !ok || a.Status != status {
		return port.ErrStatusChanged
	}
	delete(m.advances, id)
	return nil
}

func (m *mockAdvanceRepo) DeleteByTrip(ctx context.Context, tripID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.advances {
		if a.TripID == tripID {
			delete(m.advances, id)
		}
	}
	return nil
}

// Receipt repository

type mockReceiptRepo struct {
	*memStore
	createFunc func(ctx context.Context, receipt *entity.Receipt) error
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, receipt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt.ID = m.id()
	c := *receipt
	m.receipts[receipt.ID] = &c
	return nil
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *mockReceiptRepo) ListByTrip(ctx context.Context, tripID int64, verifiedOnly bool) ([]*entity.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Receipt
	for _, r := range m.receipts {
		if r.TripID == tripID && (!verifiedOnly || r.IsVerified) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockReceiptRepo) UpdateDetails(ctx context.Context, receipt *entity.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.receipts[receipt.ID]
	if !ok || stored.IsVerified {
		return port.ErrStatusChanged
	}
	c := *receipt
	m.receipts[receipt.ID] = &c
	return nil
}

func (m *mockReceiptRepo) SetVerification(ctx context.Context, receipt *entity.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.receipts[receipt.ID]
	if !ok || stored.IsVerified == receipt.IsVerified {
		return port.ErrStatusChanged
	}
	c := *receipt
	m.receipts[receipt.ID] = &c
	return nil
}

func (m *mockReceiptRepo) SumAmount(ctx context.Context, tripID int64, verifiedOnly bool) (entity.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total entity.Money
	for _, r := range m.receipts {
		if r.TripID == tripID && (!verifiedOnly || r.IsVerified) {
			total += r.Amount
		}
	}
	return total, nil
}

func (m *mockReceiptRepo) DeleteUnverified(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok || r.IsVerified {
		return port.ErrStatusChanged
	}
	delete(m.receipts, id)
	return nil
}

func (m *mockReceiptRepo) DeleteByTrip(ctx context.Context, tripID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.receipts {
		if r.TripID == tripID {
			delete(m.receipts, id)
		}
	}
	return nil
}

func (m *mockReceiptRepo) ClearAdvanceLink(ctx context.Context, advanceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.receipts {
		if r.AdvanceID != nil && *r.AdvanceID == advanceID {
			r.AdvanceID = nil
		}
	}
	return nil
}

func (m *mockReceiptRepo) ListPendingAdvisory(ctx context.Context, limit int) ([]*entity.Receipt, error) {
	return nil, nil
}

func (m *mockReceiptRepo) UpdateAdvisory(ctx context.Context, id int64, status string, amount *entity.Money, note string) error {
	return nil
}

// Settlement repository

type mockSettlementRepo struct {
	*memStore
}

func (m *mockSettlementRepo) Create(ctx context.Context, settlement *entity.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.settlements {
		if s.TripID == settlement.TripID {
			return errors.New("UNIQUE constraint failed: settlements.trip_id")
		}
	}
	settlement.ID = m.id()
	c := *settlement
	m.settlements[settlement.ID] = &c
	return nil
}

func (m *mockSettlementRepo) GetByID(ctx context.Context, id int64) (*entity.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *mockSettlementRepo) GetByTripID(ctx context.Context, tripID int64) (*entity.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.settlements {
		if s.TripID == tripID {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockSettlementRepo) List(ctx context.Context, filter port.SettlementFilter) ([]*entity.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Settlement
	for _, s := range m.settlements {
		if inScope(filter.Scope, m.trips[s.TripID]) && (filter.Status == "" || s.Status == filter.Status) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockSettlementRepo) Update(ctx context.Context, settlement *entity.Settlement, from entity.SettlementStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.settlements[settlement.ID]
	if !ok || stored.Status != from {
		return port.ErrStatusChanged
	}
	c := *settlement
	m.settlements[settlement.ID] = &c
	return nil
}

func (m *mockSettlementRepo) CountByStatus(ctx context.Context, scope entity.TripScope, status entity.SettlementStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.settlements {
		if s.Status == status && inScope(scope, m.trips[s.TripID]) {
			n++
		}
	}
	return n, nil
}

func (m *mockSettlementRepo) DeleteByTrip(ctx context.Context, tripID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.settlements {
		if s.TripID == tripID {
			delete(m.settlements, id)
		}
	}
	return nil
}

// History repository

type mockHistoryRepo struct {
	*memStore
	appendFunc func(ctx context.Context, entry *entity.StatusHistoryEntry) error
}

func (m *mockHistoryRepo) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	c := *entry
	m.history = append(m.history, &c)
	return nil
}

func (m *mockHistoryRepo) ListFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) ([]*entity.StatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StatusHistoryEntry
	for _, e := range m.history {
		if e.EntityType == entityType && e.EntityID == entityID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) DeleteFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	for _, e := range m.history {
		if !(e.EntityType == entityType && e.EntityID == entityID) {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

// Review repository

type mockReviewRepo struct {
	*memStore
}

func (m *mockReviewRepo) Create(ctx context.Context, review *entity.TripReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = m.id()
	c := *review
	m.reviews = append(m.reviews, &c)
	return nil
}

func (m *mockReviewRepo) ListByTrip(ctx context.Context, tripID int64) ([]*entity.TripReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TripReview
	for _, r := range m.reviews {
		if r.TripID == tripID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) DeleteByTrip(ctx context.Context, tripID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.reviews[:0]
	for _, r := range m.reviews {
		if r.TripID != tripID {
			kept = append(kept, r)
		}
	}
	m.reviews = kept
	return nil
}

// Notification repository

type mockNotificationRepo struct {
	*memStore
	createFunc func(ctx context.Context, notification *entity.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *entity.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, notification)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	notification.ID = m.id()
	c := *notification
	m.notifications[notification.ID] = &c
	return nil
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, nil
	}
	c := *n
	return &c, nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifications, id)
	return nil
}

func (m *mockNotificationRepo) DeleteByTrip(ctx context.Context, tripID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifications {
		if n.TripID != nil && *n.TripID == tripID {
			delete(m.notifications, id)
		}
	}
	return nil
}

func (m *mockNotificationRepo) ListPendingPush(ctx context.Context, limit int) ([]*entity.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) UpdatePushStatus(ctx context.Context, id int64, status, errorMsg string) error {
	return nil
}

// Setting repository

type mockSettingRepo struct {
	*memStore
}

func (m *mockSettingRepo) Get(ctx context.Context, key string) (*entity.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[key]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *mockSettingRepo) List(ctx context.Context) ([]*entity.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Setting
	for _, s := range m.settings {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockSettingRepo) Upsert(ctx context.Context, setting *entity.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *setting
	m.settings[setting.Key] = &c
	return nil
}

// Sequence repository

type mockSequenceRepo struct {
	*memStore
}

func (m *mockSequenceRepo) Next(ctx context.Context, prefix, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[prefix+day]++
	return m.sequences[prefix+day], nil
}

// Infrastructure mocks

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type mockFileStorage struct {
	mu       sync.Mutex
	files    map[string][]byte
	saveErr  error
	readErr  error
	deleted  []string
	saveCall int
}

func newMockFileStorage() *mockFileStorage {
	return &mockFileStorage{files: make(map[string][]byte)}
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCall++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[path] = content
	return nil
}

func (m *mockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return content, nil
}

func (m *mockFileStorage) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *mockFileStorage) has(path string) bool {
	ok, _ := m.Exists(context.Background(), path)
	return ok
}

func (m *mockFileStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.deleted = append(m.deleted, path)
	return nil
}

type mockFolderManager struct {
	created map[string]bool
	deleted []string
}

func (m *mockFolderManager) EnsureFolder(ctx context.Context, tripNumber string) (string, error) {
	if m.created == nil {
		m.created = make(map[string]bool)
	}
	folder := strings.ToLower(tripNumber)
	m.created[folder] = true
	return folder, nil
}

func (m *mockFolderManager) RemoveFolder(ctx context.Context, tripNumber string) error {
	folder := strings.ToLower(tripNumber)
	m.deleted = append(m.deleted, folder)
	delete(m.created, folder)
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// Test environment

var testNow = time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)

var (
	employee    = entity.Actor{ID: "emp-1", Role: entity.RoleEmployee, AreaCode: "JKT"}
	colleague   = entity.Actor{ID: "emp-2", Role: entity.RoleEmployee, AreaCode: "JKT"}
	areaFinance = entity.Actor{ID: "fa-1", Role: entity.RoleFinanceArea, AreaCode: "JKT"}
	otherArea   = entity.Actor{ID: "fa-2", Role: entity.RoleFinanceArea, AreaCode: "SBY"}
	regional    = entity.Actor{ID: "fr-1", Role: entity.RoleFinanceRegional}
)

// mockTransitionObserver records applied transitions as "entity:from->to"
type mockTransitionObserver struct {
	applied []string
}

func (m *mockTransitionObserver) ObserveTransition(entityName, from, to, trigger string) {
	m.applied = append(m.applied, entityName+":"+from+"->"+to)
}

func (m *mockTransitionObserver) ObserveRejectedTransition(entityName, from, trigger string) {}

type testEnv struct {
	store     *memStore
	trips     *mockTripRepo
	receipts  *mockReceiptRepo
	history   *mockHistoryRepo
	notifRepo *mockNotificationRepo
	files     *mockFileStorage
	folders   *mockFolderManager
	publisher *mockPublisher
	observed  *mockTransitionObserver
	deps      Deps

	tripSvc       TripService
	advanceSvc    AdvanceService
	receiptSvc    ReceiptService
	settlementSvc SettlementService
}

type envOption func(*envConfig)

type envConfig struct {
	tripOpts    TripOptions
	receiptOpts ReceiptOptions
	basis       AdvanceBasis
	renderer    port.StatementRenderer
}

func withTripOptions(o TripOptions) envOption {
	return func(c *envConfig) { c.tripOpts = o }
}

func withBasis(b AdvanceBasis) envOption {
	return func(c *envConfig) { c.basis = b }
}

func withRenderer(r port.StatementRenderer) envOption {
	return func(c *envConfig) { c.renderer = r }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{
		tripOpts:    TripOptions{AutoCreateSettlement: true},
		receiptOpts: DefaultReceiptOptions(),
		basis:       AdvanceBasisDisbursed,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := newMemStore()
	env := &testEnv{
		store:     store,
		trips:     &mockTripRepo{memStore: store},
		receipts:  &mockReceiptRepo{memStore: store},
		history:   &mockHistoryRepo{memStore: store},
		notifRepo: &mockNotificationRepo{memStore: store},
		files:     newMockFileStorage(),
		folders:   &mockFolderManager{},
		publisher: &mockPublisher{},
		observed:  &mockTransitionObserver{},
	}

	advances := &mockAdvanceRepo{memStore: store}
	ledger := NewHistoryLedger(env.history)
	now := func() time.Time { return testNow }

	env.deps = Deps{
		Trips:         env.trips,
		Advances:      advances,
		Receipts:      env.receipts,
		Settlements:   &mockSettlementRepo{memStore: store},
		Reviews:       &mockReviewRepo{memStore: store},
		Notifications: env.notifRepo,
		Sequences:     &mockSequenceRepo{memStore: store},
		Ledger:        ledger,
		Engine:        workflow.NewEngine(ledger, workflow.WithClock(now), workflow.WithObserver(env.observed)),
		Reconciler:    NewReconciler(advances, env.receipts, cfg.basis),
		Policy:        authz.NewPolicy(),
		TxManager:     &mockTxManager{},
		Publisher:     env.publisher,
		Files:         env.files,
		Folders:       env.folders,
		Logger:        &mockLogger{},
		Now:           now,
	}

	env.settlementSvc = NewSettlementService(env.deps, cfg.renderer)
	env.tripSvc = NewTripService(env.deps, cfg.tripOpts, env.settlementSvc)
	env.advanceSvc = NewAdvanceService(env.deps)
	env.receiptSvc = NewReceiptService(env.deps, cfg.receiptOpts)
	return env
}

func (e *testEnv) createTrip(t *testing.T, owner entity.Actor) *entity.Trip {
	t.Helper()
	trip, err := e.tripSvc.Create(context.Background(), owner, CreateTripInput{
		Destination:     "Surabaya",
		Purpose:         "Branch audit",
		StartDate:       testNow.AddDate(0, 0, 1),
		EndDate:         testNow.AddDate(0, 0, 4),
		EstimatedBudget: 750000,
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

func (e *testEnv) requestAdvance(t *testing.T, owner entity.Actor, tripID int64, requestType entity.AdvanceRequestType, amount entity.Money) *entity.Advance {
	t.Helper()
	advance, err := e.advanceSvc.Request(context.Background(), owner, RequestAdvanceInput{
		TripID:      tripID,
		RequestType: requestType,
		Amount:      amount,
		Reason:      "hotel deposit",
	})
	if err != nil {
		t.Fatalf("request advance: %v", err)
	}
	return advance
}

func (e *testEnv) uploadReceipt(t *testing.T, owner entity.Actor, tripID int64, amount entity.Money) *entity.Receipt {
	t.Helper()
	receipt, err := e.receiptSvc.Upload(context.Background(), owner, UploadReceiptInput{
		TripID: tripID,
		ReceiptFields: ReceiptFields{
			ReceiptDate: testNow,
			Amount:      amount,
			Category:    "hotel",
		},
		File: &entity.ReceiptFile{Name: "invoice.pdf", Content: []byte("%PDF-1.4")},
	})
	if err != nil {
		t.Fatalf("upload receipt: %v", err)
	}
	return receipt
}

func (e *testEnv) historyFor(entityType entity.HistoryEntityType, id int64) []*entity.StatusHistoryEntry {
	entries, _ := e.history.ListFor(context.Background(), entityType, id)
	return entries
}
