package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/knowledgehub-ai/ocr-core/internal/core/ocr"
	"github.com/knowledgehub-ai/ocr-core/internal/shared/utils"
)

const maxUploadSize = 10 * 1024 * 1024 // 10MB

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/tiff": true,
}

// OCRHandler exposes the OCR pipeline over HTTP for external collaborators
// (document stores, knowledge-base managers). Persistence of the returned
// text and metadata is the caller's concern.
type OCRHandler struct {
	processor *ocr.Processor
}

// NewOCRHandler creates a new OCR handler
func NewOCRHandler(processor *ocr.Processor) *OCRHandler {
	return &OCRHandler{processor: processor}
}

// ProcessImage handles POST /ocr/process: accepts a multipart image upload,
// runs the fusion pipeline, and returns the unified result.
// Optional form fields "preprocess" and "detect_layout" (default true)
// control the per-call toggles.
func (h *OCRHandler) ProcessImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image file is required",
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedContentTypes[contentType] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "only JPEG, PNG and TIFF images are supported",
		})
	}
	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file size must be less than 10MB",
		})
	}

	preprocess := parseBoolField(c.FormValue("preprocess"), true)
	detectLayout := parseBoolField(c.FormValue("detect_layout"), true)

	// The pipeline consumes a file path, so stage the upload in a temp file.
	tempPath := filepath.Join(os.TempDir(),
		fmt.Sprintf("ocr_upload_%s%s", uuid.New().String()[:8], filepath.Ext(file.Filename)))
	if err := c.SaveFile(file, tempPath); err != nil {
		utils.LogError("failed to stage uploaded image", err, map[string]interface{}{
			"filename": file.Filename,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save uploaded image",
		})
	}
	defer os.Remove(tempPath)

	utils.LogInfo("processing uploaded image", map[string]interface{}{
		"filename": file.Filename,
		"size_kb":  float64(file.Size) / 1024,
	})

	result, err := h.processor.ProcessImage(c.Context(), tempPath,
		ocr.WithPreprocess(preprocess),
		ocr.WithLayout(detectLayout),
	)
	if err != nil {
		if errors.Is(err, ocr.ErrImageLoad) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image could not be decoded",
			})
		}
		utils.LogError("OCR processing failed", err, map[string]interface{}{
			"filename": file.Filename,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to process image",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   result,
	})
}

// Health handles GET /health
func (h *OCRHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func parseBoolField(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
