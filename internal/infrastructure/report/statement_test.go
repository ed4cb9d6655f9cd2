package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

func sampleSummary() *entity.SettlementSummary {
	start := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	transferred := start.AddDate(0, 0, 1)
	approved := entity.Money(500000)

	return &entity.SettlementSummary{
		Trip: &entity.Trip{
			TripNumber:    "TRP-20251114-0001",
			OwnerID:       "emp-1",
			OwnerAreaCode: "JKT",
			Destination:   "Surabaya",
			Purpose:       "Site audit",
			StartDate:     start,
			EndDate:       start.AddDate(0, 0, 2),
			Status:        entity.TripStatusUnderReviewRegional,
		},
		Settlement: &entity.Settlement{
			SettlementNumber: "STL-20251118-0001",
			Status:           entity.SettlementStatusPending,
		},
		Reconciliation: entity.Reconcile(500000, 300000),
		Advances: []*entity.Advance{{
			AdvanceNumber:     "ADV-20251114-0001",
			RequestType:       entity.AdvanceTypeInitial,
			Status:            entity.AdvanceStatusCompleted,
			RequestedAmount:   600000,
			ApprovedAmount:    &approved,
			TransferDate:      &transferred,
			TransferReference: "TRF-001",
		}},
		VerifiedReceipts: []*entity.Receipt{
			{ReceiptNumber: "RCP-20251114-0001", ReceiptDate: start, Category: "hotel", Amount: 200000, VerifiedBy: "fa-1"},
			{ReceiptNumber: "RCP-20251115-0001", ReceiptDate: transferred, Category: "meals", Amount: 100000, VerifiedBy: "fa-1"},
		},
	}
}

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	value, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return value
}

func TestStatementRenderer_Render(t *testing.T) {
	renderer := NewStatementRenderer("PT Contoh", zap.NewNop())

	content, err := renderer.Render(sampleSummary())
	require.NoError(t, err)
	require.NotEmpty(t, content)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, advancesSheet, receiptsSheet}, f.GetSheetList())

	t.Run("summary", func(t *testing.T) {
		assert.Equal(t, "Settlement Statement", raw(t, f, summarySheet, "A1"))
		assert.Equal(t, "PT Contoh", raw(t, f, summarySheet, "A2"))
		assert.Equal(t, "STL-20251118-0001", raw(t, f, summarySheet, "B4"))
		assert.Equal(t, "TRP-20251114-0001", raw(t, f, summarySheet, "B5"))
		assert.Equal(t, "2025-11-14 to 2025-11-16", raw(t, f, summarySheet, "B10"))
		assert.Equal(t, "3", raw(t, f, summarySheet, "B11"))
		assert.Equal(t, "Total Advance", raw(t, f, summarySheet, "A14"))
		assert.Equal(t, "5000", raw(t, f, summarySheet, "B14"))
		assert.Equal(t, "3000", raw(t, f, summarySheet, "B15"))
		assert.Equal(t, "2000", raw(t, f, summarySheet, "B16"))
		assert.Equal(t, "refund", raw(t, f, summarySheet, "B17"))
	})

	t.Run("advances", func(t *testing.T) {
		assert.Equal(t, "ADV-20251114-0001", raw(t, f, advancesSheet, "A2"))
		assert.Equal(t, "6000", raw(t, f, advancesSheet, "D2"))
		assert.Equal(t, "5000", raw(t, f, advancesSheet, "E2"))
		assert.Equal(t, "2025-11-15", raw(t, f, advancesSheet, "F2"))
		assert.Equal(t, "Total", raw(t, f, advancesSheet, "D3"))
		assert.Equal(t, "5000", raw(t, f, advancesSheet, "E3"))
	})

	t.Run("receipts", func(t *testing.T) {
		assert.Equal(t, "RCP-20251115-0001", raw(t, f, receiptsSheet, "A3"))
		assert.Equal(t, "meals", raw(t, f, receiptsSheet, "C3"))
		assert.Equal(t, "3000", raw(t, f, receiptsSheet, "F4"))
	})
}

func TestStatementRenderer_WithoutSettlement(t *testing.T) {
	renderer := NewStatementRenderer("", zap.NewNop())

	summary := sampleSummary()
	summary.Settlement = nil
	summary.Advances = nil
	summary.VerifiedReceipts = nil

	content, err := renderer.Render(summary)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "", raw(t, f, summarySheet, "B4"))
	assert.Equal(t, "Total", raw(t, f, advancesSheet, "D2"))
	assert.Equal(t, "0", raw(t, f, advancesSheet, "E2"))
}

func TestStatementRenderer_RequiresTrip(t *testing.T) {
	_, err := NewStatementRenderer("", zap.NewNop()).Render(&entity.SettlementSummary{})
	assert.Error(t, err)
	assert.Equal(t, ".xlsx", NewStatementRenderer("", zap.NewNop()).FileExtension())
}
