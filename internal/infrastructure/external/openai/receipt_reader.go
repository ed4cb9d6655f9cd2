package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// chatCompleter is the part of the OpenAI client the reader uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds OpenAI reader configuration
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxPages caps how many PDF pages are rendered and sent
	MaxPages int
}

// ReceiptReader implements port.ReceiptReader with a vision chat completion
type ReceiptReader struct {
	client   chatCompleter
	model    string
	maxPages int
	prompts  *PromptConfig
	logger   *zap.Logger
}

// NewReceiptReader creates a reader backed by the OpenAI API
func NewReceiptReader(cfg Config, prompts *PromptConfig, logger *zap.Logger) *ReceiptReader {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newReceiptReader(openai.NewClientWithConfig(clientCfg), cfg, prompts, logger)
}

func newReceiptReader(client chatCompleter, cfg Config, prompts *PromptConfig, logger *zap.Logger) *ReceiptReader {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 2
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &ReceiptReader{
		client:   client,
		model:    cfg.Model,
		maxPages: cfg.MaxPages,
		prompts:  prompts,
		logger:   logger,
	}
}

// receiptTotalResponse is the JSON object the model is asked to return
type receiptTotalResponse struct {
	Total      *json.Number `json:"total"`
	Currency   string       `json:"currency"`
	Merchant   string       `json:"merchant"`
	Confidence float64      `json:"confidence"`
	Note       string       `json:"note"`
}

// ReadTotal extracts the printed total of a receipt image or PDF
func (r *ReceiptReader) ReadTotal(ctx context.Context, fileName string, content []byte) (*port.ReceiptReading, error) {
	images, err := r.toImageURLs(fileName, content)
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: r.prompts.ReceiptTotal.User,
	}}
	for _, url := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    url,
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   r.prompts.ReceiptTotal.MaxTokens,
		Temperature: r.prompts.ReceiptTotal.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.prompts.ReceiptTotal.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Error("Vision API call failed", zap.String("file_name", fileName), zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	reading, err := parseReading(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Error("Failed to parse vision API response",
			zap.String("file_name", fileName),
			zap.String("content", resp.Choices[0].Message.Content),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Receipt total read",
		zap.String("file_name", fileName),
		zap.Bool("found", reading.Amount != nil),
		zap.Float64("confidence", reading.Confidence))
	return reading, nil
}

// toImageURLs turns the document into base64 data URLs, rendering PDF pages to JPEG
func (r *ReceiptReader) toImageURLs(fileName string, content []byte) ([]string, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty receipt file %q", fileName)
	}

	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".jpg", ".jpeg":
		return []string{dataURL("image/jpeg", content)}, nil
	case ".png":
		return []string{dataURL("image/png", content)}, nil
	case ".pdf":
		pages, err := r.renderPDF(content)
		if err != nil {
			return nil, err
		}
		urls := make([]string, 0, len(pages))
		for _, page := range pages {
			urls = append(urls, dataURL("image/jpeg", page))
		}
		return urls, nil
	default:
		return nil, fmt.Errorf("unsupported receipt file type: %s", ext)
	}
}

// renderPDF renders up to maxPages pages with mupdf and encodes them as JPEG
func (r *ReceiptReader) renderPDF(content []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > r.maxPages {
		pageCount = r.maxPages
	}

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to render PDF page", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			r.logger.Warn("Failed to encode PDF page", zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}
	return pages, nil
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// parseReading decodes the model answer, tolerating JSON wrapped in prose or code fences
func parseReading(content string) (*port.ReceiptReading, error) {
	var parsed receiptTotalResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	reading := &port.ReceiptReading{
		Currency:   strings.ToUpper(strings.TrimSpace(parsed.Currency)),
		Merchant:   strings.TrimSpace(parsed.Merchant),
		Confidence: parsed.Confidence,
		Note:       strings.TrimSpace(parsed.Note),
	}

	if parsed.Total != nil && parsed.Total.String() != "" {
		total, err := decimal.NewFromString(parsed.Total.String())
		if err != nil {
			return nil, fmt.Errorf("invalid total %q: %w", parsed.Total.String(), err)
		}
		if total.IsNegative() {
			return nil, fmt.Errorf("negative total %s", total)
		}
		amount := entity.MoneyFromDecimal(total)
		reading.Amount = &amount
	}

	return reading, nil
}

// extractJSON returns the first balanced {...} object in content
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

var _ port.ReceiptReader = (*ReceiptReader)(nil)
