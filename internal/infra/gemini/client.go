// Package gemini is the model boundary: it submits an assembled part
// sequence to the Gemini generateContent REST API and decodes the structured
// event list the response schema forces the model to emit.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

// DefaultBaseURL is the public Gemini API endpoint. Tests point the client
// at a local stub instead.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient builds a model client. The underlying HTTP client carries no
// timeout of its own: the model call is the pipeline's one long suspension
// point and callers bound it through ctx.
func NewClient(baseURL, apiKey, model string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type schema struct {
	Type       string             `json:"type"`
	Items      *schema            `json:"items,omitempty"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type generateRequest struct {
	Contents         []wireContent    `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// eventSchema constrains the response to the slide-event array. seconds is
// not in the required list: the model does not always populate it and the
// corrector falls back to the timestamp string.
func eventSchema() *schema {
	return &schema{
		Type: "ARRAY",
		Items: &schema{
			Type: "OBJECT",
			Properties: map[string]*schema{
				"timestamp":     {Type: "STRING"},
				"seconds":       {Type: "NUMBER"},
				"pdfPageNumber": {Type: "INTEGER"},
				"slideTitle":    {Type: "STRING"},
				"reasoning":     {Type: "STRING"},
			},
			Required: []string{"timestamp", "pdfPageNumber", "slideTitle", "reasoning"},
		},
	}
}

func (c *Client) SyncSlides(ctx context.Context, parts []entity.Part) ([]entity.RawSlideEvent, error) {
	wireParts, err := encodeParts(parts)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []wireContent{{Role: "user", Parts: wireParts}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   eventSchema(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text, err := candidateText(out)
	if err != nil {
		return nil, err
	}

	var events []entity.RawSlideEvent
	if err := json.Unmarshal([]byte(text), &events); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}

	c.logger.Info("model call completed",
		zap.String("model", c.model),
		zap.Int("parts", len(parts)),
		zap.Int("events", len(events)),
	)

	return events, nil
}

// encodeParts maps the closed part union onto the wire format. The switch is
// exhaustive on purpose: an unknown part kind is a programming error and must
// not be silently dropped from the sequence.
func encodeParts(parts []entity.Part) ([]wirePart, error) {
	encoded := make([]wirePart, 0, len(parts))
	for i, part := range parts {
		switch p := part.(type) {
		case entity.TextPart:
			encoded = append(encoded, wirePart{Text: p.Text})
		case entity.BlobPart:
			encoded = append(encoded, wirePart{InlineData: &inlineData{
				MimeType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
		default:
			return nil, fmt.Errorf("unsupported part type %T at index %d", part, i)
		}
	}
	return encoded, nil
}

// classifyStatus sorts API failures into the deterministic classes the
// pipeline fails permanently on. Rate limits and server errors stay generic
// so the retry policy treats them as transient.
func classifyStatus(status int, body []byte) error {
	message := apiErrorMessage(body)

	if status == http.StatusRequestEntityTooLarge {
		return &entity.PayloadTooLargeError{Status: status, Message: message}
	}
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "payload size exceeds") {
		return &entity.PayloadTooLargeError{Status: status, Message: message}
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return &entity.RequestRejectedError{Status: status, Message: message}
	}

	return fmt.Errorf("model returned status %d: %s", status, message)
}

func apiErrorMessage(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func candidateText(out generateResponse) (string, error) {
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", &entity.RequestRejectedError{
			Status:  http.StatusOK,
			Message: "prompt blocked: " + out.PromptFeedback.BlockReason,
		}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &entity.RequestRejectedError{
			Status:  http.StatusOK,
			Message: "model returned no candidates",
		}
	}

	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
