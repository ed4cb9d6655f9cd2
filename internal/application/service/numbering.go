package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
)

// numberAllocator issues PREFIX-YYYYMMDD-NNNN document numbers
type numberAllocator struct {
	seq port.SequenceRepository
	now func() time.Time
}

func newNumberAllocator(seq port.SequenceRepository, now func() time.Time) *numberAllocator {
	return &numberAllocator{seq: seq, now: now}
}

// Next must run inside the transaction that stores the numbered record
func (n *numberAllocator) Next(ctx context.Context, prefix string) (string, error) {
	day := n.now().Format("20060102")
	value, err := n.seq.Next(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, day, value), nil
}

// FormatNumber renders a document number, e.g. TRP-20251114-0007
func FormatNumber(prefix, day string, value int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, value)
}
