package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	executor *resilience.Executor
}

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Executor *resilience.Executor
}

func NewEmbedder(cfg Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.EmbeddingModel(cfg.Model),
		executor: cfg.Executor,
	}
}

func (e *Embedder) Model() string {
	return string(e.model)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	resp, err := resilience.Call(ctx, e.executor, "openai.embed", func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, req)
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "openai embed", errors.New("empty embedding response"))
	}
	return resp.Data[0].Embedding, nil
}

// classifyOpenAIError maps client errors onto HTTP status classification.
func classifyOpenAIError(err error) resilience.ErrorClassification {
	if code := statusCode(err); code != 0 {
		return resilience.ClassifyHTTPError(&resilience.HTTPStatusError{
			Service:    "openai",
			Operation:  "embed",
			StatusCode: code,
			Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		})
	}
	return resilience.ClassifyHTTPError(err)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
