package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const googleVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// GoogleVisionProvider is the hosted document-text-detection engine.
type GoogleVisionProvider struct {
	apiKey    string
	endpoint  string
	languages []string
	client    *http.Client
}

// NewGoogleVisionProvider creates a Google Cloud Vision OCR provider.
// languages are passed as detection hints in preference order.
func NewGoogleVisionProvider(apiKey string, languages []string) *GoogleVisionProvider {
	return &GoogleVisionProvider{
		apiKey:    apiKey,
		endpoint:  googleVisionEndpoint,
		languages: languages,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *GoogleVisionProvider) Name() string {
	return "Google Cloud Vision"
}

func (p *GoogleVisionProvider) Method() Method {
	return MethodCloudOCR
}

// Google Vision API request/response structures
type visionRequest struct {
	Requests []visionRequestItem `json:"requests"`
}

type visionRequestItem struct {
	Image        visionImage     `json:"image"`
	Features     []visionFeature `json:"features"`
	ImageContext *visionContext  `json:"imageContext,omitempty"`
}

type visionImage struct {
	Content string `json:"content"` // base64 encoded image
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Property *struct {
					DetectedLanguages []struct {
						LanguageCode string  `json:"languageCode"`
						Confidence   float64 `json:"confidence"`
					} `json:"detectedLanguages"`
				} `json:"property"`
				Blocks []struct {
					Confidence float64 `json:"confidence"`
				} `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"responses"`
}

// Extract sends the raw image bytes for document text detection. Confidence
// is the mean of per-block confidences reported by the service; detected
// language codes end up in metadata.
func (p *GoogleVisionProvider) Extract(ctx context.Context, req Request) (*Outcome, error) {
	reqBody := visionRequest{
		Requests: []visionRequestItem{
			{
				Image:    visionImage{Content: base64.StdEncoding.EncodeToString(req.Data)},
				Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
			},
		},
	}
	if len(p.languages) > 0 {
		reqBody.Requests[0].ImageContext = &visionContext{LanguageHints: p.languages}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", p.endpoint, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google vision error (status: %d): %s", resp.StatusCode, string(body))
	}

	var visionResp visionResponse
	if err := json.Unmarshal(body, &visionResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(visionResp.Responses) == 0 {
		return nil, fmt.Errorf("no response from Google Vision")
	}
	if visionResp.Responses[0].Error != nil {
		return nil, fmt.Errorf("google vision API error: %s", visionResp.Responses[0].Error.Message)
	}

	annotation := visionResp.Responses[0].FullTextAnnotation
	if annotation == nil || annotation.Text == "" {
		return &Outcome{
			Text:       "",
			Confidence: 0,
			Metadata:   map[string]interface{}{},
		}, nil
	}

	var confidenceSum float64
	var blockCount int
	var languageCodes []string
	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			confidenceSum += block.Confidence
			blockCount++
		}
		if page.Property != nil {
			for _, lang := range page.Property.DetectedLanguages {
				languageCodes = append(languageCodes, lang.LanguageCode)
			}
		}
	}

	var confidence float64
	if blockCount > 0 {
		confidence = confidenceSum / float64(blockCount)
	}

	return &Outcome{
		Text:       annotation.Text,
		Confidence: confidence,
		Metadata: map[string]interface{}{
			"detected_languages": languageCodes,
		},
	}, nil
}
