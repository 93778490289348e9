package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderGroq   LLMProvider = "groq"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Host        string `env:"HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"PORT" envDefault:"8000"`

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string `env:"WHATSAPP_WEBHOOK_VERIFY_TOKEN,required"`
	WhatsAppAPIToken      string `env:"WHATSAPP_API_TOKEN,required"`
	WhatsAppPhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID,required"`
	WhatsAppAPIVersion    string `env:"WHATSAPP_API_VERSION" envDefault:"v20.0"`
	WhatsAppAppSecret     string `env:"WHATSAPP_APP_SECRET"`

	// LLM settings
	LLMProvider  LLMProvider `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey string      `env:"GEMINI_API_KEY"`
	GeminiModel  string      `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GroqAPIKey   string      `env:"GROQ_API_KEY"`
	GroqBaseURL  string      `env:"GROQ_BASE_URL"`
	GroqModel    string      `env:"GROQ_MODEL" envDefault:"llama3-70b-8192"`
	XAIAPIKey    string      `env:"XAI_API_KEY"`

	// Usage limits (stay inside Meta's free conversation tier)
	MonthlyConversationLimit int           `env:"MONTHLY_CONVERSATION_LIMIT" envDefault:"950"`
	DocRateLimit             int           `env:"DOC_RATE_LIMIT" envDefault:"5"`
	DocRateWindow            time.Duration `env:"DOC_RATE_WINDOW" envDefault:"1h"`

	// Document processing
	DownloadDir   string `env:"DOWNLOAD_DIR" envDefault:"downloads"`
	MaxFileSizeMB int    `env:"MAX_FILE_SIZE_MB" envDefault:"10"`
	MaxPages      int    `env:"MAX_PAGES" envDefault:"50"`

	// Storage
	InteractionLogPath string `env:"INTERACTION_LOG_PATH" envDefault:"data/interactions.jsonl"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
