package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Flags     FlagConfig
	LLM       LLMConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string `validate:"required"`
	Environment        string
	LogFilePath        string
	LogLevel           string `validate:"omitempty,oneof=debug info warn warning error"`
	CorsAllowedOrigins string
	JwtSecret          string
	NatsURL            string
	RedisURL           string
}

type FlagConfig struct {
	SdkKey         string `validate:"required"`
	StreamingURI   string `validate:"required"`
	EventsURI      string `validate:"required,url"`
	Source         string `validate:"oneof=http file"`
	File           string
	HTTPURL        string `validate:"required,url"`
	PollInterval   time.Duration
	InitTimeout    time.Duration `validate:"gt=0"`
	WorkflowCombo  string        `validate:"required"`
	IntentKey      string        `validate:"required"`
	RetrievalKey   string        `validate:"required"`
	ResponseKey    string        `validate:"required"`
	ComboBaseline  string        `validate:"required"`
	ComboOptimized string        `validate:"required"`
}

type LLMConfig struct {
	Provider          string `validate:"oneof=azure openai anthropic gemini ollama none"`
	Model             string
	AzureResourceName string
	AzureAPIKey       string
	AzureAPIVersion   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AnthropicAPIKey   string
	GeminiAPIKey      string
	OllamaBaseURL     string
	RetryAttempts     int `validate:"gte=1"`
	RetryMinDelay     time.Duration
	RetryMaxDelay     time.Duration
}

type WorkerConfig struct {
	Topic         string `validate:"required"`
	MaxAttempts   int    `validate:"gte=1"`
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration
	RunTTL        time.Duration
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "3000"),
			Environment:        getEnv("APP_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Flags: FlagConfig{
			SdkKey:         getEnv("FEATBIT_SDK_KEY", ""),
			StreamingURI:   getEnv("FEATBIT_STREAMING_URI", "wss://global-eval.featbit.co"),
			EventsURI:      getEnv("FEATBIT_EVENTS_URI", "https://global-eval.featbit.co"),
			Source:         getEnv("FLAG_SOURCE", "file"),
			File:           getEnv("FLAG_FILE", "flags.yaml"),
			HTTPURL:        getEnv("FLAG_HTTP_URL", strings.TrimRight(getEnv("FEATBIT_EVENTS_URI", "https://global-eval.featbit.co"), "/")+"/api/public/flags"),
			PollInterval:   getEnvAsDuration("FLAG_POLL_INTERVAL", 30*time.Second),
			InitTimeout:    getEnvAsDuration("FLAG_INIT_TIMEOUT", 10*time.Second),
			WorkflowCombo:  getEnv("FLAG_WORKFLOW_COMBO", "customer-support-workflow"),
			IntentKey:      getEnv("FLAG_INTENT_ANALYSIS", "intent-analysis"),
			RetrievalKey:   getEnv("FLAG_INFO_RETRIEVAL", "info-retrieval"),
			ResponseKey:    getEnv("FLAG_RESPONSE_GENERATION", "response-generation"),
			ComboBaseline:  getEnv("COMBO_BASELINE", "combo_a"),
			ComboOptimized: getEnv("COMBO_OPTIMIZED", "combo_b"),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(getEnv("LLM_PROVIDER", "azure")),
			Model:             getEnv("LLM_MODEL", getEnv("AZURE_MODEL_NAME", "gpt-4")),
			AzureResourceName: getEnv("AZURE_RESOURCE_NAME", ""),
			AzureAPIKey:       getEnv("AZURE_API_KEY", ""),
			AzureAPIVersion:   getEnv("AZURE_API_VERSION", "2024-06-01"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			RetryAttempts:     getEnvAsInt("LLM_RETRY_ATTEMPTS", 3),
			RetryMinDelay:     getEnvAsDuration("LLM_RETRY_MIN_DELAY", time.Second),
			RetryMaxDelay:     getEnvAsDuration("LLM_RETRY_MAX_DELAY", 5*time.Second),
		},
		Worker: WorkerConfig{
			Topic:         getEnv("WORKER_TOPIC", "support.inquiries"),
			MaxAttempts:   getEnvAsInt("WORKFLOW_MAX_ATTEMPTS", 5),
			RetryMinDelay: getEnvAsDuration("WORKFLOW_RETRY_MIN_DELAY", 2*time.Second),
			RetryMaxDelay: getEnvAsDuration("WORKFLOW_RETRY_MAX_DELAY", 30*time.Second),
			RunTTL:        getEnvAsDuration("RUN_TTL", time.Hour),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "support-flow-be"),
		},
	}
}

// Validate reports the first invalid setting. A missing FEATBIT_SDK_KEY is the
// only failure possible with an empty environment.
func (c *Config) Validate() error {
	v := validator.New()
	sections := []struct {
		name  string
		value interface{}
	}{
		{"app", c.App},
		{"flags", c.Flags},
		{"llm", c.LLM},
		{"worker", c.Worker},
	}
	for _, section := range sections {
		if err := v.Struct(section.value); err != nil {
			return fmt.Errorf("invalid %s config: %w", section.name, err)
		}
	}
	if c.Flags.Source == "file" && c.Flags.File == "" {
		return fmt.Errorf("invalid flags config: FLAG_FILE is required when FLAG_SOURCE=file")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
