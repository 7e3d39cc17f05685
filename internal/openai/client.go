package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/larpforge/storyai/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the OpenAI model used for answer synthesis
	DefaultCompletionModel = openai.GPT4oMini

	providerName = "openai"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error)
}

// CompletionAPI defines the interface for chat completion
type CompletionAPI interface {
	CreateChatCompletion(ctx context.Context, system string, messages []domain.ChatMessage) (string, error)
}

// Client wraps the OpenAI API with dimension validation, request rate
// limiting on the embedding path, and a circuit breaker on the completion
// path.
type Client struct {
	embeddings  EmbeddingAPI
	completions CompletionAPI
	model       string
	dimensions  int
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// APIAdapter adapts the go-openai client to the EmbeddingAPI and
// CompletionAPI interfaces.
type APIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
}

// NewAPIAdapter creates an APIAdapter with the given models, falling back to
// defaults when empty.
func NewAPIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, completionModel string) *APIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}
	return &APIAdapter{
		client:          openai.NewClient(apiKey),
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings for a batch of
// texts. Returns the vectors in input order plus the total prompt token count.
func (a *APIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, 0, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, resp.Usage.PromptTokens, nil
}

// CreateChatCompletion calls the OpenAI chat completion API.
func (a *APIAdapter) CreateChatCompletion(ctx context.Context, system string, messages []domain.ChatMessage) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.completionModel,
		Messages: chatMessages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Config holds OpenAI client configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	CompletionModel     string
	EmbeddingDimensions int
	// EmbeddingRPS limits embedding requests per second; 0 disables limiting.
	EmbeddingRPS float64
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	adapter := NewAPIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.CompletionModel)
	return newClient(adapter, adapter, cfg)
}

// NewClientFromEnv creates a new OpenAI client using the OPENAI_API_KEY
// environment variable.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

func newClient(embeddings EmbeddingAPI, completions CompletionAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := string(cfg.EmbeddingModel)
	if model == "" {
		model = string(DefaultEmbeddingModel)
	}

	var limiter *rate.Limiter
	if cfg.EmbeddingRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbeddingRPS), 1)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "openai-completions",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		embeddings:  embeddings,
		completions: completions,
		model:       model,
		dimensions:  dimensions,
		limiter:     limiter,
		breaker:     breaker,
	}
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) (*domain.Embedding, error) {
	results, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for texts in order. One provider round
// trip per call; preferred when reindexing multi-chunk documents.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]*domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, domain.NewProviderError(providerName, "embed", false, ErrEmptyText)
	}
	totalChars := 0
	for _, t := range texts {
		if t == "" {
			return nil, domain.NewProviderError(providerName, "embed", false, ErrEmptyText)
		}
		totalChars += len(t)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.NewProviderError(providerName, "embed", true, err)
		}
	}

	vectors, promptTokens, err := c.embeddings.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embed", isRetryableAPIError(err), err)
	}

	results := make([]*domain.Embedding, len(vectors))
	for i, vec := range vectors {
		if len(vec) != c.dimensions {
			return nil, domain.NewProviderError(providerName, "embed", false,
				fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(vec)))
		}
		results[i] = &domain.Embedding{
			Vector:     vec,
			Dimensions: c.dimensions,
			Model:      c.model,
			TokenCount: shareTokens(promptTokens, len(texts[i]), totalChars),
		}
	}
	return results, nil
}

// Complete generates a chat completion, guarded by the circuit breaker so a
// flapping provider fails fast instead of queueing slow turns.
func (c *Client) Complete(ctx context.Context, system string, messages []domain.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", domain.NewProviderError(providerName, "complete", false, errors.New("no messages to complete"))
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completions.CreateChatCompletion(ctx, system, messages)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.NewProviderError(providerName, "complete", true, err)
		}
		return "", domain.NewProviderError(providerName, "complete", isRetryableAPIError(err), err)
	}
	return result.(string), nil
}

// shareTokens attributes a batch's total prompt tokens to one text,
// proportional to its character share. The provider reports usage per
// request, not per input.
func shareTokens(total, chars, totalChars int) int {
	if totalChars == 0 {
		return 0
	}
	return total * chars / totalChars
}

// isRetryableAPIError classifies provider failures: rate limits and server
// errors are retryable, auth and validation failures are terminal, transport
// errors are retryable.
func isRetryableAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
