// Package provider constructs the chat model that classifies cases.
// Supported backends: Google Gemini (default), OpenAI, Azure OpenAI,
// Ollama and AWS Bedrock.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
)

// Default model per backend.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.1"
)

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey from GEMINI_API_KEY (or GOOGLE_API_KEY).
	APIKey string
	// Model from GEMINI_MODEL.
	Model string
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint for OpenAI-compatible gateways.
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderOllama holds local Ollama settings.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderBedrock holds AWS Bedrock settings.
type ProviderBedrock struct {
	AWSRegion string
	ModelID   string
	// APIKey is a Bedrock API key for the OpenAI-compatible runtime endpoint.
	APIKey string
	// Endpoint overrides the regional runtime URL.
	Endpoint string
}

// SharedTuning holds generation parameters applied on every call.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–2.0).
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the block matching
// Backend is consulted.
type Config struct {
	Backend     Backend
	Gemini      ProviderGemini
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ollama      ProviderOllama
	Bedrock     ProviderBedrock
	Tuning      SharedTuning
}

// ModelName returns the model or deployment the config resolves to.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendGemini:
		return c.Gemini.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendOllama:
		return c.Ollama.Model
	case BackendBedrock:
		return c.Bedrock.ModelID
	default:
		return ""
	}
}

// Factory is the interface for constructing a chat model from a Config.
type Factory interface {
	New(ctx context.Context, cfg *Config) (model.BaseChatModel, error)
}
