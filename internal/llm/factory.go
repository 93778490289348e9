package llm

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"studybuddy/internal/config"
)

// NewFromConfig assembles the Service from whatever providers the config
// carries: Gemini primary, Groq (or xAI, when only an xAI key is set) as the
// text fallback. At least one provider must be configured.
func NewFromConfig(cfg *config.Config) (*Service, error) {
	var gemini *GeminiClient
	if cfg.GeminiAPIKey != "" {
		g, err := NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		gemini = g
	}

	var groq *GroqClient
	switch {
	case cfg.GroqAPIKey != "":
		groq = NewGroq(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
	case cfg.XAIAPIKey != "":
		groq = NewGroq(cfg.XAIAPIKey, xaiBaseURL, xaiModel)
	}

	if gemini == nil && groq == nil {
		return nil, fmt.Errorf("no llm provider configured: set GEMINI_API_KEY or GROQ_API_KEY")
	}
	if gemini == nil {
		log.Printf("Warning: gemini not configured, chat/quiz/flashcards/media features unavailable")
	}

	return NewService(gemini, groq, &http.Client{Timeout: 15 * time.Second}), nil
}
