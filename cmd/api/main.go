package main

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/knowledgehub-ai/ocr-core/internal/config"
	"github.com/knowledgehub-ai/ocr-core/internal/core/cache"
	"github.com/knowledgehub-ai/ocr-core/internal/core/ocr"
	"github.com/knowledgehub-ai/ocr-core/internal/handlers"
	"github.com/knowledgehub-ai/ocr-core/internal/shared/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.InitLogger()

	if cfg.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY is required: the primary vision engine cannot run without it")
	}

	primary := ocr.NewOpenAIVisionProvider(cfg.OpenAIKey, cfg.OpenAIVisionModel)

	// Supplemental engines in declared priority order: cloud first, then the
	// local neural engine, then Tesseract. Later engines overwrite earlier
	// metadata keys on collision.
	var supplemental []ocr.Provider
	if cfg.GoogleVisionKey != "" {
		supplemental = append(supplemental, ocr.NewGoogleVisionProvider(cfg.GoogleVisionKey, cfg.Languages))
	} else {
		log.Println("⚠️  GOOGLE_VISION_API_KEY not set, cloud OCR engine disabled")
	}
	if cfg.NeuralOCRURL != "" {
		supplemental = append(supplemental, ocr.NewNeuralProvider(cfg.NeuralOCRURL, cfg.Languages))
	} else {
		log.Println("⚠️  NEURAL_OCR_URL not set, neural OCR engine disabled")
	}
	supplemental = append(supplemental, ocr.NewTesseractProvider(cfg.Languages))

	var store cache.Store
	if cfg.CacheEnabled {
		fileStore, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			log.Fatalf("failed to create cache directory %s: %v", cfg.CacheDir, err)
		}
		store = fileStore
	}

	processor := ocr.NewProcessor(primary, supplemental, store, ocr.ProcessorConfig{
		Policy:              ocr.Policy(cfg.FusionPolicy),
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxWorkers:          cfg.MaxWorkers,
		PrimaryTimeout:      cfg.PrimaryTimeout,
		SupplementalTimeout: cfg.SupplementalTimeout,
	})

	app := fiber.New(fiber.Config{
		BodyLimit: 15 * 1024 * 1024,
	})

	h := handlers.NewOCRHandler(processor)
	app.Post("/ocr/process", h.ProcessImage)
	app.Get("/health", h.Health)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 OCR API running at :%s (policy: %s, engines: %d)", port, cfg.FusionPolicy, 1+len(supplemental))
	log.Fatal(app.Listen(":" + port))
}
