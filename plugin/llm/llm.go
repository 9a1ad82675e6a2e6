// Package llm binds the completion and embedding providers. Providers are
// selected by name from an explicit registry and validated at startup; an
// unknown name fails construction instead of failing on the first request.
package llm

import (
	"context"
	"sort"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/docuchat/docuchat/server/profile"
	"github.com/docuchat/docuchat/store"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// ErrEmbedding marks failures raised by the embedding function, so callers
// can tell an embedding failure apart from an index failure.
var ErrEmbedding = errors.New("embedding failed")

// Client is a named completion provider backed by a langchaingo model.
type Client struct {
	name  string
	model llms.Model
}

// Name returns the provider name ("openai", "ollama").
func (c *Client) Name() string { return c.name }

// Complete sends the ordered role-tagged messages to the model and returns
// the generated text. One call, no retries.
func (c *Client) Complete(ctx context.Context, messages []store.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(roleToMessageType(m.Role), m.Content))
	}
	resp, err := c.model.GenerateContent(ctx, content)
	if err != nil {
		return "", errors.Wrapf(err, "%s completion", c.name)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Errorf("%s completion: empty response", c.name)
	}
	return resp.Choices[0].Content, nil
}

func roleToMessageType(r store.Role) llms.ChatMessageType {
	switch r {
	case store.RoleSystem:
		return llms.ChatMessageTypeSystem
	case store.RoleAI:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

type factory func(p *profile.Profile) (*Client, error)

var completionFactories = map[string]factory{
	"openai": newOpenAIClient,
	"ollama": newOllamaClient,
}

// NewClient constructs the completion provider named by p.LLMProvider.
func NewClient(p *profile.Profile) (*Client, error) {
	f, ok := completionFactories[strings.ToLower(p.LLMProvider)]
	if !ok {
		return nil, errors.Errorf("unknown llm provider %q, choose from: %s",
			p.LLMProvider, strings.Join(providerNames(), ", "))
	}
	return f(p)
}

func providerNames() []string {
	names := make([]string, 0, len(completionFactories))
	for name := range completionFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newOpenAIClient(p *profile.Profile) (*Client, error) {
	if p.OpenAIAPIKey == "" {
		return nil, errors.New("openai provider requires an API key")
	}
	opts := []openai.Option{
		openai.WithModel(p.LLMModel),
		openai.WithToken(p.OpenAIAPIKey),
	}
	if p.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.OpenAIBaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init openai client")
	}
	return &Client{name: "openai", model: model}, nil
}

func newOllamaClient(p *profile.Profile) (*Client, error) {
	opts := []ollama.Option{ollama.WithModel(p.LLMModel)}
	if p.OllamaURL != "" {
		opts = append(opts, ollama.WithServerURL(p.OllamaURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init ollama client")
	}
	return &Client{name: "ollama", model: model}, nil
}

// NewEmbeddingFunc returns the chromem embedding function for the configured
// embedding provider. Errors from the function are tagged with ErrEmbedding.
func NewEmbeddingFunc(p *profile.Profile) (chromem.EmbeddingFunc, error) {
	var fn chromem.EmbeddingFunc
	switch strings.ToLower(p.EmbeddingProvider) {
	case "openai":
		if p.OpenAIAPIKey == "" {
			return nil, errors.New("openai embeddings require an API key")
		}
		base := p.OpenAIBaseURL
		if base == "" {
			base = defaultOpenAIBase
		}
		fn = chromem.NewEmbeddingFuncOpenAICompat(base, p.OpenAIAPIKey, p.EmbeddingModel, nil)
	case "ollama":
		fn = chromem.NewEmbeddingFuncOllama(p.EmbeddingModel, p.OllamaURL)
	default:
		return nil, errors.Errorf("unknown embedding provider %q, choose from: ollama, openai",
			p.EmbeddingProvider)
	}
	return tagEmbeddingErrors(fn), nil
}

func tagEmbeddingErrors(fn chromem.EmbeddingFunc) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := fn(ctx, text)
		if err != nil {
			return nil, errors.Wrap(ErrEmbedding, err.Error())
		}
		return vec, nil
	}
}
