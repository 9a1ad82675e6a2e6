// Package profile holds the runtime configuration of the server.
package profile

import (
	"fmt"

	"github.com/spf13/viper"
)

// Profile is populated once at startup from flags and DOCUCHAT_* environment
// variables and passed by reference to every component that needs it.
type Profile struct {
	// Addr is the bind address. Empty means all interfaces.
	Addr string
	// Port is the HTTP listen port.
	Port int
	// Data is the directory for persistent state (vector index).
	Data string

	// LLMProvider selects the completion backend: "openai" or "ollama".
	LLMProvider string
	// LLMModel is the completion model name.
	LLMModel string
	// EmbeddingProvider selects the embedding backend: "openai" or "ollama".
	EmbeddingProvider string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// OpenAIAPIKey authenticates against the OpenAI-compatible endpoint.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI-compatible endpoint, e.g. for
	// OpenRouter or a local proxy.
	OpenAIBaseURL string
	// OllamaURL is the Ollama server URL.
	OllamaURL string

	// ChunkSize bounds ingested chunk length in characters.
	ChunkSize int
	// ChunkOverlap is carried from a chunk's tail into the next chunk.
	ChunkOverlap int
	// DefaultK is the retrieval depth used when a chat request omits k.
	DefaultK int

	// S3 object storage for raw uploads. Optional; when Bucket is empty the
	// server runs without cloud file backup.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// FromViper builds a Profile from the bound flag/env state.
func FromViper(v *viper.Viper) *Profile {
	return &Profile{
		Addr:              v.GetString("addr"),
		Port:              v.GetInt("port"),
		Data:              v.GetString("data"),
		LLMProvider:       v.GetString("llm-provider"),
		LLMModel:          v.GetString("llm-model"),
		EmbeddingProvider: v.GetString("embedding-provider"),
		EmbeddingModel:    v.GetString("embedding-model"),
		OpenAIAPIKey:      v.GetString("openai-api-key"),
		OpenAIBaseURL:     v.GetString("openai-base-url"),
		OllamaURL:         v.GetString("ollama-url"),
		ChunkSize:         v.GetInt("chunk-size"),
		ChunkOverlap:      v.GetInt("chunk-overlap"),
		DefaultK:          v.GetInt("default-k"),
		S3Bucket:          v.GetString("s3-bucket"),
		S3Region:          v.GetString("s3-region"),
		S3Endpoint:        v.GetString("s3-endpoint"),
		S3AccessKey:       v.GetString("s3-access-key"),
		S3SecretKey:       v.GetString("s3-secret-key"),
	}
}

// ObjectStorageConfigured reports whether an S3 bucket has been set up.
func (p *Profile) ObjectStorageConfigured() bool {
	return p.S3Bucket != ""
}

// Validate rejects configurations the server cannot run with.
func (p *Profile) Validate() error {
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, chunk size)", p.ChunkOverlap)
	}
	if p.DefaultK < 1 {
		return fmt.Errorf("default k must be at least 1, got %d", p.DefaultK)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
