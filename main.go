package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bangla-dub/backend/internal/api"
	"github.com/bangla-dub/backend/internal/auth"
	"github.com/bangla-dub/backend/internal/config"
	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/dub"
	"github.com/bangla-dub/backend/internal/job"
	"github.com/bangla-dub/backend/internal/pipeline/reconcile"
	"github.com/bangla-dub/backend/internal/pipeline/translation"
	"github.com/bangla-dub/backend/internal/provider"
)

func main() {
	cfg := config.Load()

	// Ensure data directories exist
	os.MkdirAll(cfg.DataPath, 0755)
	os.MkdirAll(cfg.AudioPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Job queue (shares the SQLite handle with the main store)
	jobQueue, err := job.NewJobQueue(database.SQL())
	if err != nil {
		log.Fatalf("Failed to initialize job queue: %v", err)
	}
	defer jobQueue.Stop()

	// Speech recognizers, priority order
	var recognizers []provider.Recognizer
	if cfg.WhisperURL != "" {
		recognizers = append(recognizers, provider.NewWhisperCppRecognizer(cfg.WhisperURL))
	}
	if cfg.OpenAIKey != "" {
		recognizers = append(recognizers, provider.NewOpenAIWhisperRecognizer(cfg.OpenAIKey))
	}
	if len(recognizers) == 0 {
		log.Println("WARNING: no speech recognizers configured, transcription jobs will fail")
	}

	// Translation providers, priority order. The Gemini model name is
	// resolved from settings on every call so admins can change it
	// without a restart.
	var translators []provider.Translator
	if cfg.GeminiKey != "" {
		translators = append(translators, provider.NewGeminiTranslator(cfg.GeminiKey, func() string {
			return database.GetSetting("gemini_model", cfg.GeminiModel)
		}))
	}
	if cfg.OpenAIKey != "" {
		translators = append(translators, provider.NewOpenAIChatTranslator(cfg.OpenAIKey))
	}
	if cfg.DeepLKey != "" {
		translators = append(translators, provider.NewDeepLTranslator(cfg.DeepLKey))
	}
	if len(translators) == 0 {
		log.Println("WARNING: no translation providers configured, translation jobs will fail")
	}

	// Pipeline services
	transcribeService := reconcile.NewService(database, recognizers...)
	recognizerNames := transcribeService.Reconciler().ProviderNames()
	log.Printf("Recognizers: [%s]", strings.Join(recognizerNames, ", "))
	translationEngine := translation.NewEngine(database, translators...)
	var dubService *dub.Service
	if cfg.TTSURL != "" {
		dubService = dub.NewService(database, dub.NewHTTPSynthesizer(cfg.TTSURL, cfg.TTSKey), cfg.AudioPath)
	}

	jobQueue.RegisterHandler(job.JobTranscribe, transcribeService.HandleJob)
	jobQueue.RegisterHandler(job.JobTranslate, translationEngine.HandleJob)
	if dubService != nil {
		jobQueue.RegisterHandler(job.JobDub, dubService.HandleJob)
	}

	// Create router
	router := api.NewRouter(database, jwtService, cfg, jobQueue, translationEngine, recognizerNames)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Media path: %s", cfg.MediaPath)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		jobQueue.Stop()
		database.Close()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
