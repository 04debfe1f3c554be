// Package cache provides a content-addressed store for OCR results.
// Keys are derived from the full image bytes plus the processing parameters
// that influence the output, so changing either yields an independent entry.
// Entries are immutable once written and never expire; purging is left to
// operators.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Params captures the processing options that participate in key derivation.
// Two calls with the same image but different params must never share a cache
// entry.
type Params struct {
	Preprocess   bool
	DetectLayout bool
	Threshold    float64
}

// Key derives a deterministic cache key from image content and processing
// parameters.
func Key(imageData []byte, p Params) string {
	fileHash := sha256.Sum256(imageData)
	keyData := fmt.Sprintf("%s_%t_%t_%.2f",
		hex.EncodeToString(fileHash[:]), p.Preprocess, p.DetectLayout, p.Threshold)
	sum := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(sum[:])
}

// Store is the result cache contract. Both operations are best-effort:
// Get treats any read problem as a miss, Put swallows write failures.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the serialized result for key, or false on miss.
	Get(key string) ([]byte, bool)

	// Put stores the serialized result under key. Failures are logged,
	// never returned; caching must not block the extraction path.
	Put(key string, data []byte)
}
