package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// ReceiptService manages receipt uploads and finance verification
type ReceiptService interface {
	Upload(ctx context.Context, actor entity.Actor, input UploadReceiptInput) (*entity.Receipt, error)
	Update(ctx context.Context, actor entity.Actor, receiptID int64, input UpdateReceiptInput) (*entity.Receipt, error)
	Delete(ctx context.Context, actor entity.Actor, receiptID int64) error
	Verify(ctx context.Context, actor entity.Actor, receiptID int64, notes string) (*entity.Receipt, error)
	Unverify(ctx context.Context, actor entity.Actor, receiptID int64, notes string) (*entity.Receipt, error)

	Get(ctx context.Context, actor entity.Actor, receiptID int64) (*entity.Receipt, error)
	ListByTrip(ctx context.Context, actor entity.Actor, tripID int64, verifiedOnly bool) ([]*entity.Receipt, error)
	Download(ctx context.Context, actor entity.Actor, receiptID int64) (*entity.Receipt, []byte, error)
}

// ReceiptFields are the editable receipt fields
type ReceiptFields struct {
	AdvanceID    *int64       `json:"advance_id"`
	ReceiptDate  time.Time    `json:"receipt_date" validate:"required"`
	Amount       entity.Money `json:"amount" validate:"gte=0"`
	Category     string       `json:"category" validate:"required,max=100"`
	MerchantName string       `json:"merchant_name" validate:"max=200"`
	Description  string       `json:"description" validate:"max=1000"`
}

// UploadReceiptInput is a new receipt with its document
type UploadReceiptInput struct {
	TripID int64 `json:"trip_id" validate:"required,gt=0"`
	ReceiptFields
	File *entity.ReceiptFile `json:"-" validate:"required"`
}

// UpdateReceiptInput replaces the editable fields; File is optional
type UpdateReceiptInput struct {
	ReceiptFields
	File *entity.ReceiptFile `json:"-"`
}

// ReceiptOptions configure receipt uploads
type ReceiptOptions struct {
	MaxFileSize       int64
	AllowedExtensions []string
	// AdvisoryEnabled marks new documents for the amount advisory worker
	AdvisoryEnabled bool
}

// DefaultReceiptOptions returns the 5 MiB jpg/jpeg/png/pdf policy
func DefaultReceiptOptions() ReceiptOptions {
	return ReceiptOptions{
		MaxFileSize:       5 << 20,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".pdf"},
	}
}

type receiptServiceImpl struct {
	Deps
	opts    ReceiptOptions
	numbers *numberAllocator
	now     func() time.Time
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(deps Deps, opts ReceiptOptions) ReceiptService {
	defaults := DefaultReceiptOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaults.MaxFileSize
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = defaults.AllowedExtensions
	}

	now := deps.clock()
	return &receiptServiceImpl{
		Deps:    deps,
		opts:    opts,
		numbers: newNumberAllocator(deps.Sequences, now),
		now:     now,
	}
}

func sanitizeReceiptFields(f *ReceiptFields) {
	f.Category = utils.SanitizeString(f.Category)
	f.MerchantName = utils.SanitizeString(f.MerchantName)
	f.Description = utils.SanitizeString(f.Description)
}

func (s *receiptServiceImpl) validateFile(file *entity.ReceiptFile) error {
	ext := strings.ToLower(filepath.Ext(file.Name))
	allowed := false
	for _, candidate := range s.opts.AllowedExtensions {
		if ext == candidate {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.Newf(apperrors.CodeValidation, "file type %q is not allowed", ext).
			WithDetails(map[string]string{"file": "must be one of " + strings.Join(s.opts.AllowedExtensions, ", ")})
	}
	if file.Size() == 0 {
		return apperrors.Validation("file is empty").
			WithDetails(map[string]string{"file": "is required"})
	}
	if file.Size() > s.opts.MaxFileSize {
		return apperrors.Newf(apperrors.CodeValidation, "file exceeds %d bytes", s.opts.MaxFileSize).
			WithDetails(map[string]string{"file": fmt.Sprintf("must be at most %d bytes", s.opts.MaxFileSize)})
	}
	return nil
}

// receiptsOpen reports whether the trip still accepts receipt changes
func receiptsOpen(trip *entity.Trip) error {
	if trip.Status == entity.TripStatusActive || trip.Status == entity.TripStatusAwaitingReview {
		return nil
	}
	return apperrors.Newf(apperrors.CodeState, "trip is %s; receipts can no longer be changed", trip.Status).
		WithDetails(map[string]string{"status": string(trip.Status)})
}

// checkAdvanceLink rejects links to advances of another trip
func (s *receiptServiceImpl) checkAdvanceLink(ctx context.Context, tripID int64, advanceID *int64) error {
	if advanceID == nil {
		return nil
	}
	advance, err := s.Advances.GetByID(ctx, *advanceID)
	if err != nil {
		return fmt.Errorf("get advance: %w", err)
	}
	if advance == nil || advance.TripID != tripID {
		return apperrors.Validation("linked advance does not belong to this trip").
			WithDetails(map[string]string{"advance_id": "must reference an advance of the same trip"})
	}
	return nil
}

// store writes the document under the trip's folder and returns its relative path
func (s *receiptServiceImpl) store(ctx context.Context, trip *entity.Trip, file *entity.ReceiptFile) (string, error) {
	folder, err := s.Folders.EnsureFolder(ctx, trip.TripNumber)
	if err != nil {
		return "", apperrors.Storage(err, "failed to prepare receipt folder")
	}
	stored := path.Join(folder, uuid.NewString()+strings.ToLower(filepath.Ext(file.Name)))
	if err := s.Files.Save(ctx, stored, file.Content); err != nil {
		return "", apperrors.Storage(err, "failed to store receipt file")
	}
	return stored, nil
}

// release deletes a stored file, logging failures
func (s *receiptServiceImpl) release(ctx context.Context, stored string) {
	if stored == "" {
		return
	}
	if err := s.Files.Delete(ctx, stored); err != nil {
		s.Logger.Warn("Failed to release receipt file", "path", stored, "error", err)
	}
}

func (s *receiptServiceImpl) advisoryStatus() string {
	if s.opts.AdvisoryEnabled {
		return entity.AdvisoryStatusPending
	}
	return entity.AdvisoryStatusDisabled
}

// Upload stores the document first, then records the receipt; the file is removed if the record fails
func (s *receiptServiceImpl) Upload(ctx context.Context, actor entity.Actor, input UploadReceiptInput) (*entity.Receipt, error) {
	sanitizeReceiptFields(&input.ReceiptFields)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := s.validateFile(input.File); err != nil {
		return nil, err
	}

	trip, err := loadTrip(ctx, s.Trips, input.TripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanManageTrip(actor, trip) {
		return nil, forbidden("upload receipts for this trip")
	}
	if err := receiptsOpen(trip); err != nil {
		return nil, err
	}

	stored, err := s.store(ctx, trip, input.File)
	if err != nil {
		s.Logger.Error("Failed to store receipt file", "trip_id", trip.ID, "error", err)
		return nil, err
	}

	now := s.now()
	receipt := &entity.Receipt{
		TripID:         trip.ID,
		AdvanceID:      input.AdvanceID,
		ReceiptDate:    entity.DateOnly(input.ReceiptDate),
		Amount:         input.Amount,
		Category:       input.Category,
		MerchantName:   input.MerchantName,
		Description:    input.Description,
		FilePath:       stored,
		FileName:       filepath.Base(input.File.Name),
		FileSize:       input.File.Size(),
		UploadedBy:     actor.ID,
		AdvisoryStatus: s.advisoryStatus(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := loadTrip(txCtx, s.Trips, trip.ID)
		if err != nil {
			return err
		}
		if err := receiptsOpen(current); err != nil {
			return err
		}
		if err := s.checkAdvanceLink(txCtx, trip.ID, input.AdvanceID); err != nil {
			return err
		}

		if receipt.ReceiptNumber, err = s.numbers.Next(txCtx, entity.NumberPrefixReceipt); err != nil {
			return err
		}
		if err := s.Receipts.Create(txCtx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		s.release(ctx, stored)
		s.Logger.Error("Failed to record receipt", "trip_id", trip.ID, "error", err)
		return nil, err
	}

	s.Logger.Info("Receipt uploaded", "receipt_id", receipt.ID, "receipt_number", receipt.ReceiptNumber, "trip_id", trip.ID)
	return receipt, nil
}

// ownedReceipt loads a receipt the actor may edit
func (s *receiptServiceImpl) ownedReceipt(ctx context.Context, actor entity.Actor, receiptID int64, action string) (*entity.Receipt, *entity.Trip, error) {
	receipt, err := loadReceipt(ctx, s.Receipts, receiptID)
	if err != nil {
		return nil, nil, err
	}
	trip, err := loadTrip(ctx, s.Trips, receipt.TripID)
	if err != nil {
		return nil, nil, err
	}
	if !s.Policy.CanManageTrip(actor, trip) {
		return nil, nil, forbidden(action)
	}
	if receipt.IsVerified {
		return nil, nil, apperrors.Newf(apperrors.CodeState, "cannot %s verified receipt", strings.TrimSuffix(action, " this receipt"))
	}
	if err := receiptsOpen(trip); err != nil {
		return nil, nil, err
	}
	return receipt, trip, nil
}

// Update replaces the editable fields of an unverified receipt
func (s *receiptServiceImpl) Update(ctx context.Context, actor entity.Actor, receiptID int64, input UpdateReceiptInput) (*entity.Receipt, error) {
	sanitizeReceiptFields(&input.ReceiptFields)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.File != nil {
		if err := s.validateFile(input.File); err != nil {
			return nil, err
		}
	}

	_, trip, err := s.ownedReceipt(ctx, actor, receiptID, "update this receipt")
	if err != nil {
		return nil, err
	}

	var stored string
	if input.File != nil {
		if stored, err = s.store(ctx, trip, input.File); err != nil {
			return nil, err
		}
	}

	var (
		receipt  *entity.Receipt
		previous string
	)
	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if receipt, _, err = s.ownedReceipt(txCtx, actor, receiptID, "update this receipt"); err != nil {
			return err
		}
		if err := s.checkAdvanceLink(txCtx, receipt.TripID, input.AdvanceID); err != nil {
			return err
		}

		receipt.AdvanceID = input.AdvanceID
		receipt.ReceiptDate = entity.DateOnly(input.ReceiptDate)
		receipt.Amount = input.Amount
		receipt.Category = input.Category
		receipt.MerchantName = input.MerchantName
		receipt.Description = input.Description
		receipt.UpdatedAt = s.now()
		if stored != "" {
			previous = receipt.FilePath
			receipt.FilePath = stored
			receipt.FileName = filepath.Base(input.File.Name)
			receipt.FileSize = input.File.Size()
			receipt.AdvisoryStatus = s.advisoryStatus()
			receipt.AdvisoryAmount = nil
			receipt.AdvisoryNote = ""
		}

		if err := s.Receipts.UpdateDetails(txCtx, receipt); err != nil {
			return statusWriteError(err, "receipt")
		}
		return nil
	})
	if err != nil {
		s.release(ctx, stored)
		return nil, err
	}

	s.release(ctx, previous)
	s.Logger.Info("Receipt updated", "receipt_id", receipt.ID, "file_replaced", stored != "")
	return receipt, nil
}

// Delete removes an unverified receipt and releases its file after commit
func (s *receiptServiceImpl) Delete(ctx context.Context, actor entity.Actor, receiptID int64) error {
	var receipt *entity.Receipt
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if receipt, _, err = s.ownedReceipt(txCtx, actor, receiptID, "delete this receipt"); err != nil {
			return err
		}
		if err := s.Receipts.DeleteUnverified(txCtx, receipt.ID); err != nil {
			return statusWriteError(err, "receipt")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.release(ctx, receipt.FilePath)
	s.Logger.Info("Receipt deleted", "receipt_id", receiptID, "actor_id", actor.ID)
	return nil
}

// Verify marks a receipt as checked by finance
func (s *receiptServiceImpl) Verify(ctx context.Context, actor entity.Actor, receiptID int64, notes string) (*entity.Receipt, error) {
	notes = utils.SanitizeString(notes)
	return s.setVerification(ctx, actor, receiptID, true, notes)
}

// Unverify reopens a verified receipt for editing
func (s *receiptServiceImpl) Unverify(ctx context.Context, actor entity.Actor, receiptID int64, notes string) (*entity.Receipt, error) {
	notes = utils.SanitizeString(notes)
	return s.setVerification(ctx, actor, receiptID, false, notes)
}

func (s *receiptServiceImpl) setVerification(ctx context.Context, actor entity.Actor, receiptID int64, verified bool, notes string) (*entity.Receipt, error) {
	var (
		receipt *entity.Receipt
		trip    *entity.Trip
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if receipt, err = loadReceipt(txCtx, s.Receipts, receiptID); err != nil {
			return err
		}
		if trip, err = loadTrip(txCtx, s.Trips, receipt.TripID); err != nil {
			return err
		}
		if !s.Policy.CanActAsFinance(actor, trip) {
			return forbidden("verify receipts of this trip")
		}
		if receipt.IsVerified == verified {
			if verified {
				return apperrors.State("receipt is already verified")
			}
			return apperrors.State("receipt is not verified")
		}

		now := s.now()
		receipt.IsVerified = verified
		receipt.VerificationNotes = notes
		receipt.UpdatedAt = now
		if verified {
			receipt.VerifiedBy = actor.ID
			receipt.VerifiedAt = &now
		} else {
			receipt.VerifiedBy = ""
			receipt.VerifiedAt = nil
		}

		if err := s.Receipts.SetVerification(txCtx, receipt); err != nil {
			return statusWriteError(err, "receipt")
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Receipt verification failed", "receipt_id", receiptID, "verify", verified, "error", err)
		return nil, err
	}

	eventType := event.TypeReceiptVerified
	if !verified {
		eventType = event.TypeReceiptUnverified
	}
	s.publish(ctx, newEvent(ctx, eventType, receipt.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOwnerID:     trip.OwnerID,
		event.KeyDestination: trip.Destination,
		event.KeyNumber:      receipt.ReceiptNumber,
		event.KeyAmount:      receipt.Amount.String(),
		event.KeyNotes:       notes,
	}))
	s.Logger.Info("Receipt verification changed", "receipt_id", receipt.ID, "verified", verified, "actor_id", actor.ID)
	return receipt, nil
}

// Get returns a receipt visible to the actor
func (s *receiptServiceImpl) Get(ctx context.Context, actor entity.Actor, receiptID int64) (*entity.Receipt, error) {
	receipt, err := loadReceipt(ctx, s.Receipts, receiptID)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.Trips, receipt.TripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this receipt")
	}
	return receipt, nil
}

// ListByTrip returns a trip's receipts, optionally verified ones only
func (s *receiptServiceImpl) ListByTrip(ctx context.Context, actor entity.Actor, tripID int64, verifiedOnly bool) ([]*entity.Receipt, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this trip")
	}
	receipts, err := s.Receipts.ListByTrip(ctx, tripID, verifiedOnly)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}

// Download returns the stored document of a receipt
func (s *receiptServiceImpl) Download(ctx context.Context, actor entity.Actor, receiptID int64) (*entity.Receipt, []byte, error) {
	receipt, err := s.Get(ctx, actor, receiptID)
	if err != nil {
		return nil, nil, err
	}
	found, err := s.Files.Exists(ctx, receipt.FilePath)
	if err != nil {
		return nil, nil, apperrors.Storage(err, "failed to look up receipt file")
	}
	if !found {
		return nil, nil, apperrors.NotFound("receipt file is missing from storage")
	}
	content, err := s.Files.Read(ctx, receipt.FilePath)
	if err != nil {
		return nil, nil, apperrors.Storage(err, "failed to read receipt file")
	}
	return receipt, content, nil
}
