package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

type fakePushQueue struct {
	mu       sync.Mutex
	pending  []*entity.Notification
	statuses map[int64]string
	errors   map[int64]string
	listErr  error
}

func newFakePushQueue(pending ...*entity.Notification) *fakePushQueue {
	return &fakePushQueue{pending: pending, statuses: map[int64]string{}, errors: map[int64]string{}}
}

func (q *fakePushQueue) ListPendingPush(ctx context.Context, limit int) ([]*entity.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	var out []*entity.Notification
	for _, n := range q.pending {
		if _, done := q.statuses[n.ID]; done {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (q *fakePushQueue) UpdatePushStatus(ctx context.Context, id int64, status, errorMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[id] = status
	q.errors[id] = errorMsg
	return nil
}

func (q *fakePushQueue) status(id int64) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statuses[id]
}

type fakePusher struct {
	failFor map[string]bool
	pushed  []int64
}

func (p *fakePusher) Push(ctx context.Context, notification *entity.Notification) error {
	if p.failFor[notification.UserID] {
		return errors.New("user not found")
	}
	p.pushed = append(p.pushed, notification.ID)
	return nil
}

type countingRecorder struct {
	mu      sync.Mutex
	success map[string]int
	failure map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{success: map[string]int{}, failure: map[string]int{}}
}

func (r *countingRecorder) IncProcessed(worker string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.success[worker]++
	} else {
		r.failure[worker]++
	}
}

func TestNotificationPushWorker_ProcessPending(t *testing.T) {
	queue := newFakePushQueue(
		&entity.Notification{ID: 1, UserID: "emp-1", Title: "Trip submitted"},
		&entity.Notification{ID: 2, UserID: "ghost", Title: "Trip submitted"},
		&entity.Notification{ID: 3, UserID: "fa-1", Title: "Advance approved"},
	)
	pusher := &fakePusher{failFor: map[string]bool{"ghost": true}}
	recorder := newCountingRecorder()

	w := NewNotificationPushWorker(queue, pusher, recorder, PollerConfig{BatchSize: 2}, zap.NewNop())
	require.NoError(t, w.processPending(context.Background()))

	assert.Equal(t, entity.PushStatusSent, queue.status(1))
	assert.Equal(t, entity.PushStatusFailed, queue.status(2))
	assert.Equal(t, "user not found", queue.errors[2])
	assert.Equal(t, "", queue.status(3), "batch size limits one pass")

	require.NoError(t, w.processPending(context.Background()))
	assert.Equal(t, entity.PushStatusSent, queue.status(3))
	assert.Equal(t, []int64{1, 3}, pusher.pushed)

	stats := w.Stats()
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, recorder.success["notification_push"])
	assert.Equal(t, 1, recorder.failure["notification_push"])
}

func TestNotificationPushWorker_ListError(t *testing.T) {
	queue := newFakePushQueue()
	queue.listErr = errors.New("database is locked")

	w := NewNotificationPushWorker(queue, &fakePusher{}, nil, PollerConfig{}, zap.NewNop())
	err := w.processPending(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

type fakeAdvisoryQueue struct {
	mu      sync.Mutex
	pending []*entity.Receipt
	results map[int64]advisoryResult
}

type advisoryResult struct {
	status string
	amount *entity.Money
	note   string
}

func (q *fakeAdvisoryQueue) ListPendingAdvisory(ctx context.Context, limit int) ([]*entity.Receipt, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*entity.Receipt
	for _, r := range q.pending {
		if _, done := q.results[r.ID]; !done {
			out = append(out, r)
		}
	}
	return out, nil
}

func (q *fakeAdvisoryQueue) UpdateAdvisory(ctx context.Context, id int64, status string, amount *entity.Money, note string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[id] = advisoryResult{status: status, amount: amount, note: note}
	return nil
}

type fakeFiles map[string][]byte

func (f fakeFiles) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := f[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return content, nil
}

type fakeReader struct {
	totals map[string]*port.ReceiptReading
}

func (r *fakeReader) ReadTotal(ctx context.Context, fileName string, content []byte) (*port.ReceiptReading, error) {
	reading, ok := r.totals[string(content)]
	if !ok {
		return nil, errors.New("unreadable document")
	}
	return reading, nil
}

func TestReceiptAdvisoryWorker_ProcessPending(t *testing.T) {
	matching := entity.Money(120000)
	different := entity.Money(125000)

	queue := &fakeAdvisoryQueue{
		pending: []*entity.Receipt{
			{ID: 1, Amount: 120000, FilePath: "trip/a.jpg", FileName: "a.jpg"},
			{ID: 2, Amount: 120000, FilePath: "trip/b.jpg", FileName: "b.jpg"},
			{ID: 3, Amount: 50000, FilePath: "trip/c.pdf", FileName: "c.pdf"},
			{ID: 4, Amount: 50000, FilePath: "trip/missing.png", FileName: "missing.png"},
			{ID: 5, Amount: 50000, FilePath: "trip/d.png", FileName: "d.png"},
		},
		results: map[int64]advisoryResult{},
	}
	files := fakeFiles{
		"trip/a.jpg": []byte("a"),
		"trip/b.jpg": []byte("b"),
		"trip/c.pdf": []byte("c"),
		"trip/d.png": []byte("d"),
	}
	reader := &fakeReader{totals: map[string]*port.ReceiptReading{
		"a": {Amount: &matching},
		"b": {Amount: &different},
		"d": {Note: "handwritten"},
	}}
	recorder := newCountingRecorder()

	w := NewReceiptAdvisoryWorker(queue, files, reader, recorder, PollerConfig{}, zap.NewNop())
	require.NoError(t, w.processPending(context.Background()))

	tests := []struct {
		id     int64
		status string
		amount *entity.Money
		note   string
	}{
		{1, entity.AdvisoryStatusDone, &matching, "printed total matches claimed amount"},
		{2, entity.AdvisoryStatusDone, &different, "printed total 1250.00 differs from claimed 1200.00"},
		{3, entity.AdvisoryStatusFailed, nil, "unreadable document"},
		{4, entity.AdvisoryStatusFailed, nil, "read receipt file: file not found"},
		{5, entity.AdvisoryStatusDone, nil, "no total found: handwritten"},
	}
	for _, tt := range tests {
		got := queue.results[tt.id]
		assert.Equal(t, tt.status, got.status, "receipt %d", tt.id)
		assert.Equal(t, tt.amount, got.amount, "receipt %d", tt.id)
		assert.Equal(t, tt.note, got.note, "receipt %d", tt.id)
	}

	assert.Equal(t, 3, recorder.success["receipt_advisory"])
	assert.Equal(t, 2, recorder.failure["receipt_advisory"])
}

func TestPoller_StartStop(t *testing.T) {
	queue := newFakePushQueue(&entity.Notification{ID: 7, UserID: "emp-1"})
	w := NewNotificationPushWorker(queue, &fakePusher{}, nil, PollerConfig{PollInterval: 5 * time.Millisecond}, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start is refused")

	assert.Eventually(t, func() bool {
		return queue.status(7) == entity.PushStatusSent
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")
	assert.Equal(t, "NotificationPushWorker", w.Name())
}

type stubWorker struct {
	name     string
	startErr error
	started  bool
	stopped  *[]string
}

func (s *stubWorker) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *stubWorker) Stop() error {
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestWorkerManager_Lifecycle(t *testing.T) {
	var stopped []string
	a := &stubWorker{name: "a", stopped: &stopped}
	b := &stubWorker{name: "b", startErr: errors.New("boom"), stopped: &stopped}
	c := &stubWorker{name: "c", stopped: &stopped}

	m := NewWorkerManager(zap.NewNop())
	m.Register(a)
	m.Register(b)
	m.Register(c)
	assert.Equal(t, 3, m.GetWorkerCount())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, a.started)
	assert.False(t, b.started)
	assert.True(t, c.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"c", "a"}, stopped, "only started workers are stopped")
	require.NoError(t, m.StopAll())

	failures := m.StartFailures()
	require.Len(t, failures, 1)
	assert.EqualError(t, failures["b"], "boom")
}
