package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.SlipClassifier = (*GeminiClassifier)(nil)

// GeminiClassifier screens slips through the Gemini API with a constrained
// JSON response schema.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

func NewGeminiClassifier(ctx context.Context, apiKey, baseURL, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{client: c, model: model}, nil
}

// verdictSchema forces the model to emit the VerificationResult shape.
var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isValid": {
			Type:        genai.TypeBoolean,
			Description: "Whether the payment is valid. Must be FALSE if ANY fraud indicators are detected.",
		},
		"detectedAmount": {
			Type:        genai.TypeNumber,
			Description: "The numeric amount found on the slip in MMK.",
		},
		"transactionId": {
			Type:        genai.TypeString,
			Description: "The unique transaction ID extracted from the receipt.",
		},
		"detectedPaymentApp": {
			Type:        genai.TypeString,
			Description: "The payment app detected in the screenshot: 'KBZPay', 'Wave', 'AyaPay', or 'Unknown'",
		},
		"reason": {
			Type:        genai.TypeString,
			Description: "Detailed explanation of why it passed or failed verification.",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "Confidence score between 0 and 1. Must be below 0.5 if any doubts exist.",
		},
		"fraudIndicators": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of any suspicious elements detected",
		},
	},
	Required: []string{"isValid", "detectedAmount", "reason", "confidence", "detectedPaymentApp"},
}

func (g *GeminiClassifier) Classify(ctx context.Context, img adapter.SlipImage, expect adapter.ClassifyExpectation) (model.VerificationResult, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
			{Text: buildSlipPrompt(expect)},
		},
	}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    verdictSchema,
		Temperature:       genai.Ptr[float32](0.1),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("gemini: %w", err)
	}
	text := stripCodeFence(resp.Text())
	if text == "" {
		return model.VerificationResult{}, errors.New("gemini: empty response")
	}

	var out model.VerificationResult
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return model.VerificationResult{}, fmt.Errorf("gemini: malformed verdict: %w", err)
	}
	return out, nil
}
