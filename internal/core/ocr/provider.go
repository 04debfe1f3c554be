package ocr

import (
	"bytes"
	"context"
	"image/png"
)

// Provider is the uniform contract every OCR engine adapter implements.
//
// Extract must be safe for concurrent calls: any client state is owned by the
// adapter instance, initialized at construction, and either concurrency-safe
// or created per call. Internal failures are returned as errors; the
// orchestrator converts errors, timeouts, and panics into zero-confidence
// outcomes, so no engine failure ever crosses the pipeline boundary.
type Provider interface {
	// Extract runs the engine over the request image.
	Extract(ctx context.Context, req Request) (*Outcome, error)

	// Name returns the human-readable engine name for logs and metadata.
	Name() string

	// Method returns the result method tag this engine produces.
	Method() Method
}

// imageBytes returns the bytes an adapter should feed its engine: the
// preprocessed page encoded as PNG when available, otherwise the raw file
// bytes.
func imageBytes(req Request) ([]byte, error) {
	if req.Image == nil {
		return req.Data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
