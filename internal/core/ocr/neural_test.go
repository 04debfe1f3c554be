package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeuralExtract(t *testing.T) {
	var gotReq neuralRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/readtext", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"fragments": [
				{"text": "請求書", "confidence": 0.92, "bbox": [10, 10, 80, 24]},
				{"text": "Total", "confidence": 0.88, "bbox": [10, 50, 60, 20]}
			]
		}`))
	}))
	defer srv.Close()

	p := NewNeuralProvider(srv.URL+"/", []string{"ja", "en"})
	out, err := p.Extract(context.Background(), Request{Data: []byte("fake image bytes")})
	require.NoError(t, err)

	assert.Equal(t, "請求書 Total", out.Text)
	assert.InDelta(t, 0.90, out.Confidence, 1e-9)
	assert.Equal(t, 2, out.Metadata["neural_fragment_count"])
	assert.Equal(t, [][4]int{{10, 10, 80, 24}, {10, 50, 60, 20}}, out.Metadata["neural_bbox_list"])

	assert.NotEmpty(t, gotReq.Image)
	assert.Equal(t, []string{"ja", "en"}, gotReq.Languages)
}

func TestNeuralExtractNoFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fragments": []}`))
	}))
	defer srv.Close()

	p := NewNeuralProvider(srv.URL, nil)
	out, err := p.Extract(context.Background(), Request{Data: []byte("fake image bytes")})
	require.NoError(t, err)

	assert.Equal(t, "", out.Text)
	assert.Equal(t, 0.0, out.Confidence)
	assert.Equal(t, 0, out.Metadata["neural_fragment_count"])
}

func TestNeuralExtractProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fragments": [], "error": "model not loaded"}`))
	}))
	defer srv.Close()

	p := NewNeuralProvider(srv.URL, nil)
	_, err := p.Extract(context.Background(), Request{Data: []byte("fake image bytes")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestNeuralExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewNeuralProvider(srv.URL, nil)
	_, err := p.Extract(context.Background(), Request{Data: []byte("fake image bytes")})
	assert.Error(t, err)
}
