package opinionmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder implements the Embedder interface against the OpenAI
// embeddings API, with an optional persistent cache so repeated topics
// do not re-pay for identical texts.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
	cache  *EmbeddingCache
}

// NewOpenAIEmbedder creates an embedder. cache may be nil.
func NewOpenAIEmbedder(apiKey string, cache *EmbeddingCache) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.EmbeddingModelTextEmbedding3Large,
		cache:  cache,
	}
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.cache != nil {
		if embedding, ok := e.cache.Get(text); ok {
			return embedding, nil
		}
	}

	embedding, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(embedding.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}

	vector := embedding.Data[0].Embedding
	if e.cache != nil {
		if err := e.cache.Put(text, vector); err != nil {
			log.Printf("Failed to cache embedding: %v", err)
		}
	}

	return vector, nil
}

// EmbedBatch generates embeddings for many texts in one API call, serving
// cached texts locally.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if e.cache != nil {
			if embedding, ok := e.cache.Get(text); ok {
				vectors[i] = embedding
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	embedding, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: missing,
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(embedding.Data) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(embedding.Data))
	}

	for j, data := range embedding.Data {
		vectors[missingIdx[j]] = data.Embedding
		if e.cache != nil {
			if err := e.cache.Put(missing[j], data.Embedding); err != nil {
				log.Printf("Failed to cache embedding: %v", err)
			}
		}
	}

	return vectors, nil
}

// parseRetryAfter parses the Retry-After header value and returns duration
func parseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := time.Parse(time.RFC1123, retryAfter); err == nil {
		return time.Until(retryTime)
	}

	return 0
}

// makeOpenAIRequest posts a request body to the OpenAI API with retry
// logic for 429 rate limit errors.
func makeOpenAIRequest(ctx context.Context, requestBody []byte, apiKey, apiPath string) ([]byte, error) {
	url := "https://api.openai.com/v1/" + apiPath
	client := &http.Client{Timeout: 120 * time.Second}

	maxRetries := 5
	baseDelay := 5 * time.Second
	maxDelay := 120 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call OpenAI: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				return nil, fmt.Errorf("openAI rate limit exceeded after %d retries: %s", maxRetries, string(body))
			}

			retryDelay := parseRetryAfter(resp.Header.Get("Retry-After"))
			if retryDelay <= 0 {
				retryDelay = baseDelay * time.Duration(1<<attempt) // 5s, 10s, 20s, 40s, 80s
			}
			if retryDelay > maxDelay {
				retryDelay = maxDelay
			}

			log.Printf("Rate limit hit (attempt %d/%d), retrying in %v...", attempt+1, maxRetries+1, retryDelay)
			time.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("openAI error (status %d): %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("unexpected error in retry loop")
}
