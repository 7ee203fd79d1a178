package opinionmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/invopop/jsonschema"
)

// TopicExtraction is the structured response the model must return when
// asked to name the topic of a statement.
type TopicExtraction struct {
	Topic string `json:"topic" jsonschema:"description=Short noun phrase naming what the statement is about"`
}

// TopicExtractor derives a search topic from a free-form user statement.
// The model call is best effort: when it fails, a keyword heuristic takes
// over, and callers fall back to the verbatim statement when both fail.
type TopicExtractor struct {
	APIKey string
	Model  string
}

// NewTopicExtractor creates a topic extractor.
func NewTopicExtractor(apiKey string) *TopicExtractor {
	return &TopicExtractor{APIKey: apiKey, Model: "gpt-4o-mini"}
}

// ExtractTopic returns a short topic phrase for the sentence.
func (t *TopicExtractor) ExtractTopic(ctx context.Context, sentence string) (string, error) {
	topic, err := t.extractWithModel(ctx, sentence)
	if err == nil && topic != "" {
		return topic, nil
	}
	if err != nil {
		log.Printf("Model topic extraction failed, using keyword fallback: %v", err)
	}

	topic = extractTopicKeywords(sentence)
	if topic == "" {
		return "", fmt.Errorf("could not extract topic from %q", sentence)
	}
	return topic, nil
}

// extractWithModel asks the chat completions API for a structured topic,
// constraining the response with a generated JSON schema.
func (t *TopicExtractor) extractWithModel(ctx context.Context, sentence string) (string, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(&TopicExtraction{})
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}

	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return "", fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	requestBody := map[string]any{
		"model": t.Model,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": "You extract the debated topic from an opinion statement. Return a short noun phrase, at most five words, suitable as a search query. Do not include the speaker's position.",
			},
			{
				"role":    "user",
				"content": sentence,
			},
		},
		"temperature": 0,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "topic_extraction",
				"schema": schema,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	responseBody, err := makeOpenAIRequest(ctx, jsonBody, t.APIKey, "chat/completions")
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content in response")
	}

	var extraction TopicExtraction
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &extraction); err != nil {
		return "", fmt.Errorf("failed to parse structured response: %w", err)
	}

	return strings.TrimSpace(extraction.Topic), nil
}

var topicStopwords = map[string]bool{
	"a": true, "about": true, "all": true, "an": true, "and": true,
	"are": true, "as": true, "at": true, "be": true, "because": true,
	"but": true, "by": true, "can": true, "do": true, "dont": true,
	"for": true, "from": true, "have": true, "i": true, "in": true,
	"is": true, "it": true, "its": true, "just": true, "me": true,
	"my": true, "no": true, "not": true, "of": true, "on": true,
	"or": true, "our": true, "really": true, "should": true, "so": true,
	"that": true, "the": true, "their": true, "there": true, "they": true,
	"think": true, "this": true, "to": true, "very": true, "was": true,
	"we": true, "what": true, "who": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// extractTopicKeywords is the offline fallback: the first few content
// words of the statement, stopwords removed.
func extractTopicKeywords(sentence string) string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(sentence)) {
		word = strings.Trim(word, ".,!?;:'\"()[]")
		if word == "" || topicStopwords[word] {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 3 {
			break
		}
	}
	return strings.Join(keywords, " ")
}
