package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

func TestReceiptService_UploadValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *UploadReceiptInput)
		wantCode apperrors.Code
	}{
		{
			name:   "valid pdf",
			mutate: func(in *UploadReceiptInput) {},
		},
		{
			name:   "uppercase jpg",
			mutate: func(in *UploadReceiptInput) { in.File.Name = "SCAN.JPG" },
		},
		{
			name:     "unsupported extension",
			mutate:   func(in *UploadReceiptInput) { in.File.Name = "receipt.exe" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "file too large",
			mutate:   func(in *UploadReceiptInput) { in.File.Content = make([]byte, 5<<20+1) },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "missing file",
			mutate:   func(in *UploadReceiptInput) { in.File = nil },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "negative amount",
			mutate:   func(in *UploadReceiptInput) { in.Amount = -1 },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "category too long",
			mutate:   func(in *UploadReceiptInput) { in.Category = strings.Repeat("c", 101) },
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			trip := env.createTrip(t, employee)

			input := UploadReceiptInput{
				TripID: trip.ID,
				ReceiptFields: ReceiptFields{
					ReceiptDate: testNow,
					Amount:      125050,
					Category:    "meals",
				},
				File: &entity.ReceiptFile{Name: "dinner.pdf", Content: []byte("%PDF-1.4")},
			}
			tt.mutate(&input)

			receipt, err := env.receiptSvc.Upload(context.Background(), employee, input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
				assert.Zero(t, env.files.saveCall, "nothing is stored for invalid input")
				return
			}

			require.NoError(t, err)
			assert.Regexp(t, `^RCP-20251114-\d{4}$`, receipt.ReceiptNumber)
			assert.True(t, strings.HasPrefix(receipt.FilePath, "trp-20251114-0001/"))
			assert.True(t, env.files.has(receipt.FilePath))
			assert.Equal(t, entity.AdvisoryStatusDisabled, receipt.AdvisoryStatus)
			assert.False(t, receipt.IsVerified)
		})
	}
}

func TestReceiptService_UploadRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, employee)
	other := env.createTrip(t, colleague)
	foreign := env.requestAdvance(t, colleague, other.ID, entity.AdvanceTypeInitial, 1000)

	file := &entity.ReceiptFile{Name: "taxi.png", Content: []byte{0x89, 'P', 'N', 'G'}}

	_, err := env.receiptSvc.Upload(ctx, areaFinance, UploadReceiptInput{
		TripID:        trip.ID,
		ReceiptFields: ReceiptFields{ReceiptDate: testNow, Amount: 1000, Category: "taxi"},
		File:          file,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "only the owner uploads")

	_, err = env.receiptSvc.Upload(ctx, employee, UploadReceiptInput{
		TripID:        trip.ID,
		ReceiptFields: ReceiptFields{ReceiptDate: testNow, Amount: 1000, Category: "taxi", AdvanceID: &foreign.ID},
		File:          file,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "advance of another trip")
	assert.Len(t, env.files.deleted, 1, "stored file is released when the record fails")
	assert.Empty(t, env.files.files)
}

func TestReceiptService_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	trip := env.createTrip(t, employee)
	env.files.saveErr = errors.New("disk full")

	_, err := env.receiptSvc.Upload(context.Background(), employee, UploadReceiptInput{
		TripID:        trip.ID,
		ReceiptFields: ReceiptFields{ReceiptDate: testNow, Amount: 1000, Category: "taxi"},
		File:          &entity.ReceiptFile{Name: "taxi.jpeg", Content: []byte("jpeg")},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorage, apperrors.CodeOf(err))
	assert.Empty(t, env.store.receipts)
}

func TestReceiptService_VerifyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, employee)
	receipt := env.uploadReceipt(t, employee, trip.ID, 300000)

	_, err := env.receiptSvc.Verify(ctx, employee, receipt.ID, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "owners cannot verify")

	_, err = env.receiptSvc.Verify(ctx, otherArea, receipt.ID, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	verified, err := env.receiptSvc.Verify(ctx, areaFinance, receipt.ID, "matches invoice")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, "fa-1", verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)

	_, err = env.receiptSvc.Verify(ctx, regional, receipt.ID, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeState, apperrors.CodeOf(err), "verifying twice is rejected")

	_, err = env.receiptSvc.Update(ctx, employee, receipt.ID, UpdateReceiptInput{
		ReceiptFields: ReceiptFields{ReceiptDate: testNow, Amount: 1, Category: "hotel"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeState, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "cannot update verified receipt")

	err = env.receiptSvc.Delete(ctx, employee, receipt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeState))

	unverified, err := env.receiptSvc.Unverify(ctx, areaFinance, receipt.ID, "wrong date")
	require.NoError(t, err)
	assert.False(t, unverified.IsVerified)
	assert.Empty(t, unverified.VerifiedBy)
	assert.Nil(t, unverified.VerifiedAt)
	assert.Equal(t, "wrong date", unverified.VerificationNotes)

	_, err = env.receiptSvc.Unverify(ctx, areaFinance, receipt.ID, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeState))

	assert.Equal(t, []event.Type{event.TypeReceiptVerified, event.TypeReceiptUnverified}, env.publisher.types())
}

func TestReceiptService_UpdateReplacesFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, employee)
	receipt := env.uploadReceipt(t, employee, trip.ID, 300000)
	oldPath := receipt.FilePath

	updated, err := env.receiptSvc.Update(ctx, employee, receipt.ID, UpdateReceiptInput{
		ReceiptFields: ReceiptFields{ReceiptDate: testNow, Amount: 310000, Category: "hotel", MerchantName: "Hotel Majapahit"},
		File:          &entity.ReceiptFile{Name: "corrected.png", Content: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.Money(310000), updated.Amount)
	assert.Equal(t, "corrected.png", updated.FileName)
	assert.NotEqual(t, oldPath, updated.FilePath)
	assert.Contains(t, env.files.deleted, oldPath)
	assert.True(t, env.files.has(updated.FilePath))

	_, content, err := env.receiptSvc.Download(ctx, areaFinance, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), content)

	_, _, err = env.receiptSvc.Download(ctx, colleague, receipt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	require.NoError(t, env.receiptSvc.Delete(ctx, employee, receipt.ID))
	assert.Contains(t, env.files.deleted, updated.FilePath)
}

func TestReceiptService_DownloadMissingFile(t *testing.T) {
	env := newTestEnv(t)
	trip := env.createTrip(t, employee)
	receipt := env.uploadReceipt(t, employee, trip.ID, 1000)

	env.files.mu.Lock()
	delete(env.files.files, receipt.FilePath)
	env.files.mu.Unlock()

	_, _, err := env.receiptSvc.Download(context.Background(), employee, receipt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestReceiptService_ListByTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, employee)
	first := env.uploadReceipt(t, employee, trip.ID, 1000)
	env.uploadReceipt(t, employee, trip.ID, 2000)
	_, err := env.receiptSvc.Verify(ctx, areaFinance, first.ID, "")
	require.NoError(t, err)

	all, err := env.receiptSvc.ListByTrip(ctx, employee, trip.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	verified, err := env.receiptSvc.ListByTrip(ctx, regional, trip.ID, true)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, first.ID, verified[0].ID)
}
