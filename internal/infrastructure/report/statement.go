// Package report renders settlement statements as Excel workbooks.
package report

import (
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet  = "Summary"
	advancesSheet = "Advances"
	receiptsSheet = "Receipts"

	// builtin number format "#,##0.00"
	moneyNumFmt = 4
	dateLayout  = "2006-01-02"
)

// StatementRenderer writes a three-sheet settlement workbook
type StatementRenderer struct {
	companyName string
	logger      *zap.Logger
}

// NewStatementRenderer creates a new StatementRenderer
func NewStatementRenderer(companyName string, logger *zap.Logger) *StatementRenderer {
	return &StatementRenderer{
		companyName: companyName,
		logger:      logger,
	}
}

// ContentType returns the xlsx MIME type
func (r *StatementRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension returns ".xlsx"
func (r *StatementRenderer) FileExtension() string {
	return ".xlsx"
}

// Render builds the workbook for one trip
func (r *StatementRenderer) Render(summary *entity.SettlementSummary) ([]byte, error) {
	if summary == nil || summary.Trip == nil {
		return nil, fmt.Errorf("statement needs a trip")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, sheet := range []string{advancesSheet, receiptsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, styles: styles}
	r.writeSummary(w, summary)
	writeAdvances(w, summary.Advances)
	writeReceipts(w, summary.VerifiedReceipts)
	if w.err != nil {
		return nil, fmt.Errorf("failed to write statement: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	r.logger.Debug("Statement rendered",
		zap.String("trip_number", summary.Trip.TripNumber),
		zap.Int("advances", len(summary.Advances)),
		zap.Int("receipts", len(summary.VerifiedReceipts)),
		zap.Int("size", buf.Len()))
	return buf.Bytes(), nil
}

func (r *StatementRenderer) writeSummary(w *sheetWriter, summary *entity.SettlementSummary) {
	trip := summary.Trip
	rec := summary.Reconciliation

	w.text(summarySheet, 1, 1, "Settlement Statement", w.styles.title)
	if r.companyName != "" {
		w.text(summarySheet, 1, 2, r.companyName, 0)
	}

	row := 4
	field := func(label string, value interface{}) {
		w.text(summarySheet, 1, row, label, w.styles.header)
		switch v := value.(type) {
		case entity.Money:
			w.money(summarySheet, 2, row, v)
		default:
			w.set(summarySheet, 2, row, v)
		}
		row++
	}

	settlementNumber := ""
	if summary.Settlement != nil {
		settlementNumber = summary.Settlement.SettlementNumber
	}

	field("Settlement Number", settlementNumber)
	field("Trip Number", trip.TripNumber)
	field("Employee", trip.OwnerID)
	field("Area", trip.OwnerAreaCode)
	field("Destination", trip.Destination)
	field("Purpose", trip.Purpose)
	field("Period", fmt.Sprintf("%s to %s", trip.StartDate.Format(dateLayout), trip.EffectiveEndDate().Format(dateLayout)))
	field("Duration (days)", trip.DurationDays())
	field("Trip Status", string(trip.Status))
	row++
	field("Total Advance", rec.TotalAdvance)
	field("Total Verified Receipts", rec.TotalReceipts)
	field("Balance", rec.Balance)
	field("Settlement Type", string(rec.Type))
	field("Settlement Amount", rec.Amount)

	if s := summary.Settlement; s != nil {
		row++
		field("Settlement Status", string(s.Status))
		field("Settlement Date", formatDate(s.SettlementDate))
		field("Transfer Reference", s.TransferReference)
		field("Processed By", s.ProcessedBy)
		field("Completed By", s.CompletedBy)
		field("Notes", s.Notes)
	}

	w.width(summarySheet, "A", 26)
	w.width(summarySheet, "B", 40)
}

func writeAdvances(w *sheetWriter, advances []*entity.Advance) {
	headers := []string{"Advance Number", "Type", "Status", "Requested", "Approved", "Transfer Date", "Transfer Reference"}
	w.headerRow(advancesSheet, headers)

	var total entity.Money
	for i, advance := range advances {
		row := i + 2
		w.set(advancesSheet, 1, row, advance.AdvanceNumber)
		w.set(advancesSheet, 2, row, string(advance.RequestType))
		w.set(advancesSheet, 3, row, string(advance.Status))
		w.money(advancesSheet, 4, row, advance.RequestedAmount)
		w.money(advancesSheet, 5, row, advance.ApprovedValue())
		w.set(advancesSheet, 6, row, formatDate(advance.TransferDate))
		w.set(advancesSheet, 7, row, advance.TransferReference)
		total += advance.ApprovedValue()
	}

	totalRow := len(advances) + 2
	w.text(advancesSheet, 4, totalRow, "Total", w.styles.header)
	w.money(advancesSheet, 5, totalRow, total)
	w.width(advancesSheet, "A", 22)
	w.width(advancesSheet, "B", 12)
}

func writeReceipts(w *sheetWriter, receipts []*entity.Receipt) {
	headers := []string{"Receipt Number", "Date", "Category", "Merchant", "Description", "Amount", "Verified By"}
	w.headerRow(receiptsSheet, headers)

	var total entity.Money
	for i, receipt := range receipts {
		row := i + 2
		w.set(receiptsSheet, 1, row, receipt.ReceiptNumber)
		w.set(receiptsSheet, 2, row, receipt.ReceiptDate.Format(dateLayout))
		w.set(receiptsSheet, 3, row, receipt.Category)
		w.set(receiptsSheet, 4, row, receipt.MerchantName)
		w.set(receiptsSheet, 5, row, receipt.Description)
		w.money(receiptsSheet, 6, row, receipt.Amount)
		w.set(receiptsSheet, 7, row, receipt.VerifiedBy)
		total += receipt.Amount
	}

	totalRow := len(receipts) + 2
	w.text(receiptsSheet, 5, totalRow, "Total", w.styles.header)
	w.money(receiptsSheet, 6, totalRow, total)
	w.width(receiptsSheet, "A", 22)
	w.width(receiptsSheet, "D", 28)
	w.width(receiptsSheet, "E", 36)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

type styles struct {
	title  int
	header int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, fmt.Errorf("failed to create title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7EEF7"}},
	}); err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt}); err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}
	return s, nil
}

// sheetWriter keeps the first excelize error so cell writes stay linear
type sheetWriter struct {
	f      *excelize.File
	styles styles
	err    error
}

func (w *sheetWriter) set(sheet string, col, row int, value interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(sheet, cell, value)
}

func (w *sheetWriter) styled(sheet string, col, row, style int) {
	if w.err != nil || style == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(sheet, cell, cell, style)
}

func (w *sheetWriter) text(sheet string, col, row int, value string, style int) {
	w.set(sheet, col, row, value)
	w.styled(sheet, col, row, style)
}

// money writes the amount in currency units with two decimals
func (w *sheetWriter) money(sheet string, col, row int, amount entity.Money) {
	w.set(sheet, col, row, amount.Decimal().InexactFloat64())
	w.styled(sheet, col, row, w.styles.money)
}

func (w *sheetWriter) headerRow(sheet string, headers []string) {
	for i, header := range headers {
		w.text(sheet, i+1, 1, header, w.styles.header)
	}
}

func (w *sheetWriter) width(sheet, col string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, col, col, width)
}

var _ port.StatementRenderer = (*StatementRenderer)(nil)
