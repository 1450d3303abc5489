package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/infra/httpx"
)

var _ adapter.SlipClassifier = (*OpenAIClassifier)(nil)

// OpenAIClassifier screens slips through a Chat Completions compatible API.
// It serves as the fallback when no Gemini key is configured and also covers
// OpenAI-compatible proxies via a custom base URL.
type OpenAIClassifier struct {
	apiKey string
	base   string
	model  string
	http   *httpx.Client
}

func NewOpenAIClassifier(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClassifier{
		apiKey: apiKey,
		base:   strings.TrimRight(baseURL, "/"),
		model:  model,
		http:   httpx.NewClient(timeout),
	}, nil
}

type chatContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIClassifier) Classify(ctx context.Context, img adapter.SlipImage, expect adapter.ClassifyExpectation) (model.VerificationResult, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))

	req := chatRequest{
		Model:       o.model,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: []chatContentPart{
				{Type: "image_url", ImageURL: &struct {
					URL string `json:"url"`
				}{URL: dataURI}},
				{Type: "text", Text: buildSlipPrompt(expect)},
			}},
		},
	}
	req.ResponseFormat.Type = "json_object"

	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	var resp chatResponse
	if err := o.http.DoJSON(ctx, http.MethodPost, o.base+"/chat/completions", headers, req, &resp); err != nil {
		return model.VerificationResult{}, fmt.Errorf("openai: %w", err)
	}

	for _, c := range resp.Choices {
		if c.Message.Content == "" {
			continue
		}
		var out model.VerificationResult
		if err := json.Unmarshal([]byte(stripCodeFence(c.Message.Content)), &out); err != nil {
			return model.VerificationResult{}, fmt.Errorf("openai: malformed verdict: %w", err)
		}
		return out, nil
	}
	return model.VerificationResult{}, errors.New("openai: no choice content")
}
