package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapTesseractLanguages(t *testing.T) {
	assert.Equal(t, []string{"jpn", "eng"}, mapTesseractLanguages([]string{"ja", "en"}))
	assert.Equal(t, []string{"chi_sim", "kor"}, mapTesseractLanguages([]string{"zh", "ko"}))
}

func TestMapTesseractLanguagesPassThrough(t *testing.T) {
	// Codes without a mapping are assumed to already be traineddata names.
	assert.Equal(t, []string{"tha"}, mapTesseractLanguages([]string{"tha"}))
}

func TestMapTesseractLanguagesDedupes(t *testing.T) {
	// "ja" and "jpn" collapse onto the same traineddata name.
	assert.Equal(t, []string{"jpn", "eng"}, mapTesseractLanguages([]string{"ja", "jpn", "en"}))
}

func TestNewTesseractProviderDefaults(t *testing.T) {
	p := NewTesseractProvider(nil)
	assert.Equal(t, []string{"eng"}, p.languages)
	assert.Equal(t, MethodTraditionalLocal, p.Method())
}
