// Package openai adapts OpenAI-compatible chat and embedding endpoints to
// the engine's oracle contracts. Any endpoint speaking the same API works
// through BaseURL, including local inference servers.
package openai

import (
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
)

// Config selects the endpoint and the model for each oracle role.
type Config struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`

	DecisionModel  string `env:"DECISION_MODEL" envDefault:"gpt-4o-mini"`
	NarrativeModel string `env:"NARRATIVE_MODEL" envDefault:"gpt-4o"`
	NPCModel       string `env:"NPC_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
}

// ErrMissingAPIKey indicates no API key was configured.
var ErrMissingAPIKey = errors.New("openai api key is required")

// Client bundles the oracle adapters sharing one API client.
type Client struct {
	api    *goopenai.Client
	config Config
}

// New creates a Client from config.
func New(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		api:    goopenai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// languageName renders a locale code as prompt-friendly prose.
func languageName(lang string) string {
	switch lang {
	case "ru":
		return "Russian"
	default:
		return "English"
	}
}
