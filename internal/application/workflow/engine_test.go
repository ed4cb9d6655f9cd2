package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	domainwf "github.com/garyjia/trip-expense/internal/domain/workflow"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

type recordedEntry struct {
	entityType entity.HistoryEntityType
	entityID   int64
	oldStatus  string
	newStatus  string
	actorID    string
	notes      string
	at         time.Time
}

type mockRecorder struct {
	entries []recordedEntry
	err     error
}

func (m *mockRecorder) Record(ctx context.Context, entityType entity.HistoryEntityType, entityID int64, oldStatus, newStatus, actorID, notes string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, recordedEntry{entityType, entityID, oldStatus, newStatus, actorID, notes, at})
	return nil
}

type mockObserver struct {
	applied  []string
	rejected []string
}

func (m *mockObserver) ObserveTransition(entityName, from, to, trigger string) {
	m.applied = append(m.applied, entityName+":"+from+"->"+to)
}

func (m *mockObserver) ObserveRejectedTransition(entityName, from, trigger string) {
	m.rejected = append(m.rejected, entityName+":"+from+":"+trigger)
}

var fixedNow = time.Date(2025, 11, 14, 9, 30, 0, 0, time.UTC)

func TestEngine_FireAdvance(t *testing.T) {
	recorder := &mockRecorder{}
	observer := &mockObserver{}
	engine := NewEngine(recorder, WithObserver(observer), WithClock(func() time.Time { return fixedNow }))

	advance := &entity.Advance{ID: 9, Status: entity.AdvanceStatusPending}
	previous, err := engine.FireAdvance(context.Background(), advance, domainwf.TriggerApproveArea, "fa-1", "Approved by Finance Area: ok")
	require.NoError(t, err)

	assert.Equal(t, entity.AdvanceStatusPending, previous)
	assert.Equal(t, entity.AdvanceStatusApprovedArea, advance.Status)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, recordedEntry{
		entityType: entity.HistoryEntityAdvance,
		entityID:   9,
		oldStatus:  "pending",
		newStatus:  "approved_area",
		actorID:    "fa-1",
		notes:      "Approved by Finance Area: ok",
		at:         fixedNow,
	}, recorder.entries[0])
	assert.Equal(t, []string{"advance:pending->approved_area"}, observer.applied)
}

func TestEngine_InvalidTransitionWritesNothing(t *testing.T) {
	recorder := &mockRecorder{}
	observer := &mockObserver{}
	engine := NewEngine(recorder, WithObserver(observer))

	advance := &entity.Advance{ID: 9, Status: entity.AdvanceStatusApprovedArea}
	_, err := engine.FireAdvance(context.Background(), advance, domainwf.TriggerApproveArea, "fa-1", "")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeState))
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
	assert.Equal(t, map[string]string{
		"status":  "approved_area",
		"action":  "approve_area",
		"allowed": "approve_regional,reject,void",
	}, apperrors.As(err).Details())
	assert.Equal(t, entity.AdvanceStatusApprovedArea, advance.Status)
	assert.Empty(t, recorder.entries)
	assert.Equal(t, []string{"advance:approved_area:approve_area"}, observer.rejected)
}

func TestEngine_HistoryFailureKeepsStatus(t *testing.T) {
	engine := NewEngine(&mockRecorder{err: errors.New("disk I/O error")})

	trip := &entity.Trip{ID: 3, Status: entity.TripStatusActive}
	_, err := engine.FireTrip(context.Background(), trip, domainwf.TriggerSubmit, "emp-1", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	assert.Equal(t, entity.TripStatusActive, trip.Status)
}

func TestEngine_FireSettlement(t *testing.T) {
	recorder := &mockRecorder{}
	engine := NewEngine(recorder)

	settlement := &entity.Settlement{Status: entity.SettlementStatusPending}
	_, err := engine.FireSettlement(context.Background(), settlement, domainwf.TriggerComplete)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeState))

	previous, err := engine.FireSettlement(context.Background(), settlement, domainwf.TriggerProcess)
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementStatusPending, previous)
	assert.Equal(t, entity.SettlementStatusProcessed, settlement.Status)
	assert.Empty(t, recorder.entries)
}

func TestEngine_RecordTrip(t *testing.T) {
	recorder := &mockRecorder{}
	engine := NewEngine(recorder)

	trip := &entity.Trip{ID: 4, Status: entity.TripStatusActive}
	require.NoError(t, engine.RecordTrip(context.Background(), trip, "", "emp-1", "Trip created"))

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "", recorder.entries[0].oldStatus)
	assert.Equal(t, "active", recorder.entries[0].newStatus)
}
