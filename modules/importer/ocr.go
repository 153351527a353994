package importer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/example/shopping-list/domain/product"
)

const ocrSystemPrompt = `You are an OCR expert specialised in handwritten shopping lists.
Read every product written in the image, even when the handwriting is hard to read.
Correct spelling so that each entry is a real product name.
Return ONLY a JSON array of strings, one product per element, in top-to-bottom order.
Ignore anything that is not text, such as drawings, ticks or crossed-out words.`

const ocrUserPrompt = `Read all the products in this shopping list and return them as a JSON array of strings. Example: ["Milk", "Bread", "Apples"]`

// OCRConfig configures the vision client.
type OCRConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultOCRConfig returns the default OCR configuration. APIKey must be
// set for the client to be usable.
func DefaultOCRConfig() OCRConfig {
	return OCRConfig{
		APIURL:  "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-2.5-flash",
		Timeout: 30 * time.Second,
	}
}

// VisionClient reads shopping lists through an OpenAI-compatible chat
// completions endpoint.
type VisionClient struct {
	cfg  OCRConfig
	http *http.Client
}

var _ OCRClient = (*VisionClient)(nil)

// NewVisionClient creates a vision client.
func NewVisionClient(cfg OCRConfig) *VisionClient {
	return &VisionClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractLines sends img to the model and returns the product lines it read.
func (c *VisionClient) ExtractLines(ctx context.Context, img Image) ([]string, error) {
	if len(img.Data) == 0 {
		return nil, ErrNoImage
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: ocrSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: ocrUserPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(img)}},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode OCR request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build OCR request: %w", product.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: OCR request failed: %w", product.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: OCR service returned %d: %s", product.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode OCR response: %w", product.ErrExternalService, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: OCR response has no content", product.ErrExternalService)
	}

	return FilterLines(ParseLines(out.Choices[0].Message.Content)), nil
}

func dataURL(img Image) string {
	ct := img.ContentType
	if ct == "" {
		ct = http.DetectContentType(img.Data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

var fencePattern = regexp.MustCompile("```json\\n?|\\n?```")

// ParseLines decodes model output. A JSON string array is preferred, with
// any markdown code fence removed; anything else is split into lines.
func ParseLines(content string) []string {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(content, ""))

	var lines []string
	if err := json.Unmarshal([]byte(cleaned), &lines); err == nil {
		return lines
	}
	return strings.Split(cleaned, "\n")
}
