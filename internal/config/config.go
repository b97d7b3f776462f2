// Package config provides configuration types and loading for atlas.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Store, Model, Providers, Gateway, Assistant,
// Notify, Group, Scheduler.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Store     StoreConfig     `json:"store"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Assistant AssistantConfig `json:"assistant"`
	Notify    NotifyConfig    `json:"notify"`
	Group     GroupConfig     `json:"group"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir     string `json:"dataDir" envconfig:"DATA_DIR"`
	SessionsDir string `json:"sessionsDir" envconfig:"SESSIONS_DIR"`
}

// ---------------------------------------------------------------------------
// Store – relational data layer
// ---------------------------------------------------------------------------

// StoreConfig selects and configures the database backend.
// Driver is "sqlite" (local file) or "postgres" (DSN required).
type StoreConfig struct {
	Driver string `json:"driver" envconfig:"DRIVER"`
	Path   string `json:"path" envconfig:"PATH"`
	DSN    string `json:"dsn" envconfig:"DSN"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings shared by the assistant and the
// orchestrator, widget, and evolution engines.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Anthropic  ProviderConfig `json:"anthropic"`
	Groq       ProviderConfig `json:"groq"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
	TLSCert   string `json:"tlsCert" envconfig:"TLS_CERT"`
	TLSKey    string `json:"tlsKey" envconfig:"TLS_KEY"`
}

// ---------------------------------------------------------------------------
// Assistant – Atlas chat behaviour
// ---------------------------------------------------------------------------

// AssistantConfig contains settings for the Atlas assistant.
type AssistantConfig struct {
	HistoryMessages int     `json:"historyMessages" envconfig:"HISTORY_MESSAGES"`
	SearchTopK      int     `json:"searchTopK" envconfig:"SEARCH_TOP_K"`
	SearchMinScore  float64 `json:"searchMinScore" envconfig:"SEARCH_MIN_SCORE"`
	ContextBudget   int     `json:"contextBudget" envconfig:"CONTEXT_BUDGET"`
	EmbeddingModel  string  `json:"embeddingModel" envconfig:"EMBEDDING_MODEL"`
}

// ---------------------------------------------------------------------------
// Notify – notifications, webhooks, Slack mirror
// ---------------------------------------------------------------------------

// NotifyConfig contains notification and webhook delivery settings.
type NotifyConfig struct {
	WebhookTimeout    time.Duration `json:"webhookTimeout" envconfig:"WEBHOOK_TIMEOUT"`
	WebhookMaxRetries int           `json:"webhookMaxRetries" envconfig:"WEBHOOK_MAX_RETRIES"`
	SigningSecret     string        `json:"signingSecret" envconfig:"SIGNING_SECRET"`
	Slack             SlackConfig   `json:"slack"`
}

// SlackConfig mirrors enterprise-hub notifications to a Slack channel.
type SlackConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken string `json:"botToken" envconfig:"BOT_TOKEN"`
	Channel  string `json:"channel" envconfig:"CHANNEL"`
	APIBase  string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Group – group-hub collaboration via Kafka
// ---------------------------------------------------------------------------

// GroupConfig contains settings for group-hub event propagation.
type GroupConfig struct {
	Enabled       bool   `json:"enabled" envconfig:"ENABLED"`
	GroupName     string `json:"groupName" envconfig:"GROUP_NAME"`
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"KAFKA_CONSUMER_GROUP"`
	NodeID        string `json:"nodeId" envconfig:"NODE_ID"`
}

// ---------------------------------------------------------------------------
// Scheduler – cron-based background jobs
// ---------------------------------------------------------------------------

// SchedulerConfig contains settings for the cron scheduler.
type SchedulerConfig struct {
	Enabled        bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval   time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	MaxConcLLM     int           `json:"maxConcLLM" envconfig:"MAX_CONC_LLM"`
	MaxConcHTTP    int           `json:"maxConcHTTP" envconfig:"MAX_CONC_HTTP"`
	MaxConcDefault int           `json:"maxConcDefault" envconfig:"MAX_CONC_DEFAULT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:     "~/.atlas",
			SessionsDir: "~/.atlas/sessions",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "~/.atlas/atlas.db",
		},
		Model: ModelConfig{
			Name:        "anthropic/claude-sonnet-4-5",
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 18900,
		},
		Assistant: AssistantConfig{
			HistoryMessages: 20,
			SearchTopK:      5,
			SearchMinScore:  0.30,
			ContextBudget:   3600,
			EmbeddingModel:  "text-embedding-3-small",
		},
		Notify: NotifyConfig{
			WebhookTimeout:    10 * time.Second,
			WebhookMaxRetries: 3,
		},
		Group: GroupConfig{
			Enabled: false,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			TickInterval:   60 * time.Second,
			MaxConcLLM:     3,
			MaxConcHTTP:    4,
			MaxConcDefault: 5,
		},
	}
}
