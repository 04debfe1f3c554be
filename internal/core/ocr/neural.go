package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NeuralProvider runs a local detection+recognition model served over HTTP
// (an EasyOCR-style sidecar). It prefers the preprocessed page when one is
// available.
type NeuralProvider struct {
	baseURL   string
	languages []string
	client    *http.Client
}

// NewNeuralProvider creates a local neural OCR provider talking to baseURL.
func NewNeuralProvider(baseURL string, languages []string) *NeuralProvider {
	return &NeuralProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		languages: languages,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *NeuralProvider) Name() string {
	return "Neural OCR"
}

func (p *NeuralProvider) Method() Method {
	return MethodNeuralLocal
}

type neuralRequest struct {
	Image     string   `json:"image"` // base64 encoded image
	Languages []string `json:"languages,omitempty"`
}

type neuralResponse struct {
	Fragments []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		BBox       [4]int  `json:"bbox"` // x, y, w, h
	} `json:"fragments"`
	Error string `json:"error,omitempty"`
}

// Extract sends the page to the recognition server and joins the detected
// fragments. Confidence is the mean of per-fragment scores; fragment bounding
// boxes and count go into metadata.
func (p *NeuralProvider) Extract(ctx context.Context, req Request) (*Outcome, error) {
	imgData, err := imageBytes(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	reqBody := neuralRequest{
		Image:     base64.StdEncoding.EncodeToString(imgData),
		Languages: p.languages,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/v1/readtext"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("neural ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("neural ocr error (status: %d): %s", resp.StatusCode, string(body))
	}

	var neuralResp neuralResponse
	if err := json.Unmarshal(body, &neuralResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if neuralResp.Error != "" {
		return nil, fmt.Errorf("neural ocr processing error: %s", neuralResp.Error)
	}

	if len(neuralResp.Fragments) == 0 {
		return &Outcome{
			Text:       "",
			Confidence: 0,
			Metadata: map[string]interface{}{
				"neural_fragment_count": 0,
			},
		}, nil
	}

	texts := make([]string, 0, len(neuralResp.Fragments))
	bboxes := make([][4]int, 0, len(neuralResp.Fragments))
	var confidenceSum float64
	for _, frag := range neuralResp.Fragments {
		texts = append(texts, frag.Text)
		bboxes = append(bboxes, frag.BBox)
		confidenceSum += frag.Confidence
	}

	return &Outcome{
		Text:       strings.Join(texts, " "),
		Confidence: confidenceSum / float64(len(neuralResp.Fragments)),
		Metadata: map[string]interface{}{
			"neural_bbox_list":      bboxes,
			"neural_fragment_count": len(neuralResp.Fragments),
		},
	}, nil
}
