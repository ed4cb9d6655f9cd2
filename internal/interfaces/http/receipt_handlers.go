package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

const receiptDateLayout = "2006-01-02"

// UploadReceipt handles POST /api/v1/receipts (multipart: trip_id, fields, file)
func (h *Handlers) UploadReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	tripID, err := strconv.ParseInt(c.PostForm("trip_id"), 10, 64)
	if err != nil {
		h.respondError(c, apperrors.New(apperrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"trip_id": "is required"}))
		return
	}
	fields, ok := h.receiptFields(c)
	if !ok {
		return
	}
	file, ok := h.receiptFile(c, true)
	if !ok {
		return
	}

	receipt, err := h.services.Receipts.Upload(c.Request.Context(), actorFrom(c), service.UploadReceiptInput{
		TripID:        tripID,
		ReceiptFields: fields,
		File:          file,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, receipt)
}

// UpdateReceipt handles PUT /api/v1/receipts/:id (multipart; file optional)
func (h *Handlers) UpdateReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fields, ok := h.receiptFields(c)
	if !ok {
		return
	}
	file, ok := h.receiptFile(c, false)
	if !ok {
		return
	}

	receipt, err := h.services.Receipts.Update(c.Request.Context(), actorFrom(c), id, service.UpdateReceiptInput{
		ReceiptFields: fields,
		File:          file,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, receipt)
}

// GetReceipt handles GET /api/v1/receipts/:id
func (h *Handlers) GetReceipt(c *gin.Context) {
	h.receiptAction(c, func(c *gin.Context, id int64) (*entity.Receipt, error) {
		return h.services.Receipts.Get(c.Request.Context(), actorFrom(c), id)
	})
}

// DeleteReceipt handles DELETE /api/v1/receipts/:id
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Receipts.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "deleted": true})
}

// VerifyReceipt handles POST /api/v1/receipts/:id/verify
func (h *Handlers) VerifyReceipt(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.receiptAction(c, func(c *gin.Context, id int64) (*entity.Receipt, error) {
		return h.services.Receipts.Verify(c.Request.Context(), actorFrom(c), id, req.Notes)
	})
}

// UnverifyReceipt handles POST /api/v1/receipts/:id/unverify
func (h *Handlers) UnverifyReceipt(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.receiptAction(c, func(c *gin.Context, id int64) (*entity.Receipt, error) {
		return h.services.Receipts.Unverify(c.Request.Context(), actorFrom(c), id, req.Notes)
	})
}

// DownloadReceipt handles GET /api/v1/receipts/:id/file
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	receipt, content, err := h.services.Receipts.Download(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(receipt.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sendAttachment(c, receipt.FileName, contentType, content)
}

func (h *Handlers) receiptAction(c *gin.Context, action func(c *gin.Context, id int64) (*entity.Receipt, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	receipt, err := action(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, receipt)
}

// receiptFields reads the editable form fields; amount is a decimal string such as "1250.50"
func (h *Handlers) receiptFields(c *gin.Context) (service.ReceiptFields, bool) {
	details := map[string]string{}
	fields := service.ReceiptFields{
		Category:     c.PostForm("category"),
		MerchantName: c.PostForm("merchant_name"),
		Description:  c.PostForm("description"),
	}

	if raw := c.PostForm("advance_id"); raw != "" {
		advanceID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || advanceID <= 0 {
			details["advance_id"] = "must be a positive integer"
		} else {
			fields.AdvanceID = &advanceID
		}
	}

	if raw := c.PostForm("receipt_date"); raw != "" {
		date, err := time.Parse(receiptDateLayout, raw)
		if err != nil {
			details["receipt_date"] = "must be formatted as YYYY-MM-DD"
		} else {
			fields.ReceiptDate = date
		}
	}

	amount, err := entity.ParseMoney(c.PostForm("amount"))
	if err != nil {
		details["amount"] = "must be a decimal amount"
	} else {
		fields.Amount = amount
	}

	if len(details) > 0 {
		h.respondError(c, apperrors.New(apperrors.CodeValidation, "validation failed").WithDetails(details))
		return fields, false
	}
	return fields, true
}

func (h *Handlers) receiptFile(c *gin.Context, required bool) (*entity.ReceiptFile, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, true
		}
		h.respondError(c, apperrors.Wrap(apperrors.CodeValidation, err, "receipt file is required"))
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, apperrors.Wrap(apperrors.CodeValidation, err, "unreadable receipt file"))
		return nil, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, apperrors.Wrap(apperrors.CodeValidation, err, "unreadable receipt file"))
		return nil, false
	}
	return &entity.ReceiptFile{Name: header.Filename, Content: content}, true
}
