package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"studybuddy/internal/bot"
	"studybuddy/internal/config"
	"studybuddy/internal/document"
	"studybuddy/internal/llm"
	"studybuddy/internal/quota"
	"studybuddy/internal/ratelimit"
	"studybuddy/internal/scheduler"
	"studybuddy/internal/session"
	"studybuddy/internal/storage"
	"studybuddy/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	llmService, err := llm.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("failed to create llm service: %v", err)
	}

	transport := whatsapp.NewClient(
		cfg.WhatsAppAPIToken,
		cfg.WhatsAppPhoneNumberID,
		cfg.WhatsAppAPIVersion,
		cfg.DownloadDir,
	)

	var recorder storage.Recorder
	if cfg.InteractionLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.InteractionLogPath)
		if err != nil {
			log.Printf("failed to init interaction recorder: %v", err)
		} else {
			recorder = fr
		}
	}

	limiter := ratelimit.NewLimiter(cfg.DocRateLimit, cfg.DocRateWindow)

	b := bot.New(
		transport,
		llmService,
		session.NewManager(),
		quota.NewTracker(cfg.MonthlyConversationLimit),
		limiter,
		document.NewProcessor(cfg.MaxFileSizeMB, cfg.MaxPages),
		recorder,
	)

	sched := scheduler.New(limiter, cfg.DownloadDir)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           bot.NewRouter(b, cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, cfg.Environment),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("webhook server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
