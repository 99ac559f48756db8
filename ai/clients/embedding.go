package clients

import (
	"context"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aico-ai/aico/ai"
)

// Embedder generates vector embeddings. Implementations are idempotent for
// identical input and fail closed.
type Embedder interface {
	// Embed returns the vector for text, or an unavailable result.
	Embed(ctx context.Context, text string) VectorResult

	// Dimensions returns the configured vector dimension D.
	Dimensions() int
}

// ServiceEmbedder speaks the in-house embedding protocol:
// request {model, prompt}, response {success, data: {embedding}, error}.
type ServiceEmbedder struct {
	client     *ModelServiceClient
	status     *StatusBoard
	model      string
	dimensions int
}

// NewServiceEmbedder creates an embedder over the model service transport.
func NewServiceEmbedder(client *ModelServiceClient, model string, dimensions int, status *StatusBoard) *ServiceEmbedder {
	return &ServiceEmbedder{
		client:     client,
		status:     status,
		model:      model,
		dimensions: dimensions,
	}
}

func (e *ServiceEmbedder) Dimensions() int { return e.dimensions }

// Embed returns the embedding for text. A wrong-length vector is a hard
// error, logged and treated as unavailable.
func (e *ServiceEmbedder) Embed(ctx context.Context, text string) VectorResult {
	request := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: e.model, Prompt: text}

	var payload struct {
		Embedding []float32 `json:"embedding"`
	}
	if reason, ok := e.client.postJSON(ctx, "/api/embed", request, &payload); !ok {
		slog.Default().Error("embedding request failed", "model", e.model, "reason", reason)
		e.status.MarkError("embedding", reason)
		return unavailableVector(reason)
	}

	if len(payload.Embedding) != e.dimensions {
		slog.Default().Warn("embedding dimension mismatch",
			"model", e.model,
			"want", e.dimensions,
			"got", len(payload.Embedding),
		)
		e.status.MarkError("embedding", "dimension mismatch")
		return unavailableVector("dimension mismatch")
	}

	e.status.MarkOK("embedding")
	return VectorResult{OK: true, Vector: payload.Embedding}
}

// OpenAIEmbedder generates embeddings through any OpenAI-compatible provider
// (openai, siliconflow, ollama, dashscope, ...).
type OpenAIEmbedder struct {
	client     *openai.Client
	status     *StatusBoard
	model      string
	dimensions int
	deadline   time.Duration
}

// NewOpenAIEmbedder creates an embedder over the OpenAI-compatible API.
func NewOpenAIEmbedder(cfg ai.EmbeddingConfig, deadline time.Duration, status *StatusBoard) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		status:     status,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		deadline:   deadline,
	}
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) VectorResult {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		slog.Default().Error("embedding request failed", "model", e.model, "error", err)
		e.status.MarkError("embedding", err.Error())
		return unavailableVector(err.Error())
	}
	if len(resp.Data) == 0 {
		e.status.MarkError("embedding", "empty embedding response")
		return unavailableVector("empty embedding response")
	}

	vector := resp.Data[0].Embedding
	if len(vector) != e.dimensions {
		slog.Default().Warn("embedding dimension mismatch",
			"model", e.model,
			"want", e.dimensions,
			"got", len(vector),
		)
		e.status.MarkError("embedding", "dimension mismatch")
		return unavailableVector("dimension mismatch")
	}

	e.status.MarkOK("embedding")
	return VectorResult{OK: true, Vector: vector}
}

// NewEmbedder selects the embedding implementation for the configured
// provider: "service" for the in-house protocol, anything else is treated as
// an OpenAI-compatible endpoint.
func NewEmbedder(cfg *ai.Config, status *StatusBoard) Embedder {
	if cfg.Embedding.Provider == "service" {
		transport := NewModelServiceClient(cfg.Embedding.BaseURL, cfg.Resolver.AdapterDeadline)
		return NewServiceEmbedder(transport, cfg.Embedding.Model, cfg.Embedding.Dimensions, status)
	}
	return NewOpenAIEmbedder(cfg.Embedding, cfg.Resolver.AdapterDeadline, status)
}
