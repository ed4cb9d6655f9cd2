package openai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompts and model parameters used by the receipt reader
type PromptConfig struct {
	ReceiptTotal struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		System      string  `yaml:"system"`
		User        string  `yaml:"user"`
	} `yaml:"receipt_total"`
}

// DefaultPrompts returns the built-in receipt prompts
func DefaultPrompts() *PromptConfig {
	var prompts PromptConfig
	prompts.ReceiptTotal.Temperature = 0
	prompts.ReceiptTotal.MaxTokens = 512
	prompts.ReceiptTotal.System = "You read expense receipts and invoices. You report only what is printed. Always respond with valid JSON."
	prompts.ReceiptTotal.User = `Find the final amount paid on this receipt.

Return a JSON object with exactly these fields:
{
  "total": "amount as a plain decimal string without currency symbols or thousands separators, or null if unreadable",
  "currency": "ISO 4217 code if printed, else empty string",
  "merchant": "merchant name if printed, else empty string",
  "confidence": number between 0 and 1,
  "note": "short remark about anything unusual, else empty string"
}

Use the grand total including tax and service charges. Do not guess.`
	return &prompts
}

// LoadPrompts loads prompt configuration from a YAML file; missing fields keep their defaults
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts := DefaultPrompts()
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return prompts, nil
}
