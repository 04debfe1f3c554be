// Package ocr implements the multi-engine OCR fusion pipeline: independent
// extraction engines behind one Provider contract, an orchestrator that runs
// them concurrently with bounded timeouts and reconciles their outputs, and a
// content-addressed cache of prior results.
package ocr

import (
	"errors"
	"image"

	"github.com/knowledgehub-ai/ocr-core/internal/core/imgproc"
)

// Method identifies which engine (or failure) produced a result.
type Method string

const (
	MethodPrimaryVision    Method = "primary_vision"
	MethodCloudOCR         Method = "cloud_ocr"
	MethodNeuralLocal      Method = "neural_local"
	MethodTraditionalLocal Method = "traditional_local"
	MethodFailed           Method = "failed"
)

// ErrImageLoad is returned by ProcessImage when the input cannot be read or
// decoded. It is the only error that escapes the facade; every other failure
// degrades into a well-formed Result.
var ErrImageLoad = errors.New("failed to load image")

// Result is the unified output of a ProcessImage call. Invariants: Method is
// always set, and empty Text implies Confidence 0. The caller owns the value
// after return.
type Result struct {
	Text       string                 `json:"text"`
	Confidence float64                `json:"confidence"`
	Method     Method                 `json:"method"`
	Layout     *imgproc.LayoutInfo    `json:"layout,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Outcome is a single engine's contribution. It never carries layout or
// method; the orchestrator assigns those.
type Outcome struct {
	Text       string                 `json:"text"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Request carries everything an adapter may need for one extraction. Image is
// the preprocessed (binarized) page and is nil when preprocessing is disabled;
// adapters that want raw pixels use Data.
type Request struct {
	Path  string
	Data  []byte
	Image *image.Gray
}
