package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// tesseractLanguages maps ISO language codes to Tesseract traineddata names.
// Unknown codes pass through unchanged.
var tesseractLanguages = map[string]string{
	"ja": "jpn",
	"en": "eng",
	"id": "ind",
	"ko": "kor",
	"zh": "chi_sim",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
}

// TesseractProvider runs the classical local OCR engine via gosseract.
// Requires the tesseract binary and traineddata to be installed.
type TesseractProvider struct {
	languages []string
}

// NewTesseractProvider creates a Tesseract provider for the given language
// preference list.
func NewTesseractProvider(languages []string) *TesseractProvider {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &TesseractProvider{languages: mapTesseractLanguages(languages)}
}

func (p *TesseractProvider) Name() string {
	return "Tesseract OCR"
}

func (p *TesseractProvider) Method() Method {
	return MethodTraditionalLocal
}

// Extract runs Tesseract over the page. The gosseract client is not safe for
// concurrent use, so a fresh one is created per call. Confidence is the mean
// of per-word scores scaled into [0,1]; the word count goes into metadata.
func (p *TesseractProvider) Extract(ctx context.Context, req Request) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imgData, err := imageBytes(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(imgData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}
	text = strings.TrimSpace(text)

	// Word-level boxes carry the per-word confidence scores (0-100).
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}

	var confidenceSum float64
	var wordCount int
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		confidenceSum += box.Confidence
		wordCount++
	}

	var confidence float64
	if wordCount > 0 {
		confidence = confidenceSum / float64(wordCount) / 100
	}

	outcome := &Outcome{
		Text:       text,
		Confidence: confidence,
		Metadata: map[string]interface{}{
			"tesseract_word_count": wordCount,
		},
	}
	if outcome.Text == "" {
		outcome.Confidence = 0
	}
	return outcome, nil
}

// mapTesseractLanguages converts ISO codes to Tesseract language names,
// dropping duplicates while preserving order.
func mapTesseractLanguages(languages []string) []string {
	seen := make(map[string]bool, len(languages))
	out := make([]string, 0, len(languages))
	for _, lang := range languages {
		mapped := lang
		if t, ok := tesseractLanguages[strings.ToLower(lang)]; ok {
			mapped = t
		}
		if !seen[mapped] {
			seen[mapped] = true
			out = append(out, mapped)
		}
	}
	return out
}
