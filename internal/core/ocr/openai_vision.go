package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// The vision model does not emit a calibrated confidence score, so successful
// extractions are assigned a fixed high confidence.
const visionConfidence = 0.95

const visionPrompt = `Extract the following from this image and return it as a JSON object:
1. "extracted_text": every piece of text in the image, transcribed verbatim and preserving the original layout and paragraphs.
2. "summary": a 2-3 sentence summary of the visual content.
3. "creative_tags": 10-15 keywords or tags derived from the text and imagery, chosen to improve search recall.
4. "image_category": the category this image belongs to (e.g. document, landscape, person, chart).
Return ONLY the JSON object.`

// OpenAIVisionProvider is the primary engine: it sends the raw image to a
// vision-capable chat model and asks for a structured transcription plus
// derived metadata (summary, tags, category).
type OpenAIVisionProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIVisionProvider creates the vision provider. The underlying client
// is concurrency-safe and reused across calls.
func NewOpenAIVisionProvider(apiKey, model string) *OpenAIVisionProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIVisionProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIVisionProviderWithConfig creates the provider from an explicit
// client config. Used to point the provider at a compatible endpoint.
func NewOpenAIVisionProviderWithConfig(cfg openai.ClientConfig, model string) *OpenAIVisionProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIVisionProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIVisionProvider) Name() string {
	return "OpenAI Vision"
}

func (p *OpenAIVisionProvider) Method() Method {
	return MethodPrimaryVision
}

// visionPayload is the structured response requested from the model.
type visionPayload struct {
	ExtractedText string   `json:"extracted_text"`
	Summary       string   `json:"summary"`
	CreativeTags  []string `json:"creative_tags"`
	ImageCategory string   `json:"image_category"`
}

// Extract sends the raw image bytes and the structured instruction to the
// model and parses its JSON reply.
func (p *OpenAIVisionProvider) Extract(ctx context.Context, req Request) (*Outcome, error) {
	mime := http.DetectContentType(req.Data)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Data))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("openai vision error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	payload, err := parseVisionResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vision response: %w", err)
	}

	outcome := &Outcome{
		Text:       payload.ExtractedText,
		Confidence: visionConfidence,
		Metadata: map[string]interface{}{
			"summary":  payload.Summary,
			"tags":     payload.CreativeTags,
			"category": payload.ImageCategory,
			"model":    p.model,
		},
	}
	if outcome.Text == "" {
		outcome.Confidence = 0
	}
	return outcome, nil
}

// parseVisionResponse decodes the model's JSON reply, tolerating markdown
// code fences some models wrap around JSON output.
func parseVisionResponse(content string) (*visionPayload, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload visionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, err
	}
	if payload.ImageCategory == "" {
		payload.ImageCategory = "unknown"
	}
	return &payload, nil
}
