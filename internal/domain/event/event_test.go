package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"trip status", TypeTripStatusChanged, true},
		{"advance status", TypeAdvanceStatusChanged, true},
		{"receipt verified", TypeReceiptVerified, true},
		{"settlement status", TypeSettlementStatusChanged, true},
		{"unknown", Type("trip.deleted"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_Aggregate(t *testing.T) {
	for _, eventType := range Types() {
		switch eventType.Aggregate() {
		case "trip", "advance", "receipt", "settlement":
		default:
			t.Errorf("%s has unexpected aggregate %q", eventType, eventType.Aggregate())
		}
	}
	if got := Type("orphan").Aggregate(); got != "orphan" {
		t.Errorf("Aggregate() = %q, want orphan", got)
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeAdvanceStatusChanged, 7, 3, "emp-1", map[string]interface{}{
		KeyNewStatus: "approved_area",
		KeyAmount:    int64(500000),
	})

	if _, err := uuid.Parse(evt.ID); err != nil {
		t.Errorf("event ID %q is not a uuid: %v", evt.ID, err)
	}
	if evt.CorrelationID == "" || evt.CorrelationID == evt.ID {
		t.Errorf("expected a distinct correlation id, got %q", evt.CorrelationID)
	}
	if evt.EntityID != 7 || evt.TripID != 3 || evt.ActorID != "emp-1" {
		t.Errorf("unexpected identity fields: %+v", evt)
	}
	if got := evt.GetPayloadString(KeyNewStatus); got != "approved_area" {
		t.Errorf("GetPayloadString() = %q", got)
	}
	if got := evt.GetPayloadInt(KeyAmount); got != 500000 {
		t.Errorf("GetPayloadInt() = %d", got)
	}
	if got := evt.GetPayloadInt("missing"); got != 0 {
		t.Errorf("GetPayloadInt(missing) = %d, want 0", got)
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeReceiptVerified, 1, 1, "fin-1", nil)
	if evt.Payload == nil {
		t.Fatal("payload should be initialised")
	}
}

func TestWithPayload_DoesNotMutateOriginal(t *testing.T) {
	original := NewEvent(TypeTripStatusChanged, 1, 1, "emp-1", map[string]interface{}{KeyOldStatus: "active"})
	updated := original.WithPayload(KeyNewStatus, "awaiting_review")

	if _, ok := original.Payload[KeyNewStatus]; ok {
		t.Error("WithPayload() mutated the original event")
	}
	if updated.GetPayloadString(KeyNewStatus) != "awaiting_review" || updated.GetPayloadString(KeyOldStatus) != "active" {
		t.Errorf("unexpected payload: %v", updated.Payload)
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-42")
	if got := CorrelationIDFrom(ctx); got != "req-42" {
		t.Errorf("CorrelationIDFrom() = %q, want req-42", got)
	}
	if got := CorrelationIDFrom(context.Background()); got == "" {
		t.Error("CorrelationIDFrom() should generate an id when none is set")
	}
}
