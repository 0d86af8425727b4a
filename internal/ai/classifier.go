package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/expenseguard/expenseguard/internal/models"
)

// Classifier maps free-text expense fields to a category label. The
// returned label is raw model output; callers are responsible for
// validating it.
type Classifier interface {
	Classify(ctx context.Context, merchant string, amount float64, description string) (string, error)
}

// OpenAIConfig configures the OpenAI-backed classifier.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIClassifier implements Classifier using chat completions.
type OpenAIClassifier struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIClassifier creates a classifier from explicit configuration.
func NewOpenAIClassifier(cfg OpenAIConfig) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Classify sends a single classification request. No retries.
func (c *OpenAIClassifier) Classify(ctx context.Context, merchant string, amount float64, description string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expense categorization assistant.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildCategorizePrompt(merchant, amount, description),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildCategorizePrompt embeds the expense fields together with the
// category definitions and examples the model should choose from.
func buildCategorizePrompt(merchant string, amount float64, description string) string {
	labels := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		labels[i] = string(c)
	}

	return fmt.Sprintf(`Categorize the following expense as one of: %s.
Merchant: %s
Amount: $%.2f
Description: %s

Category definitions:
- travel: flights, trains, car rentals, travel agencies
- food: restaurants, cafes, meals during business trips
- lodging: hotels, motels, short-term stays
- transportation: taxis, rideshares, public transit, parking, fuel
- supplies: office supplies, equipment, software subscriptions
- general: utilities, services, and other routine business costs
- other: anything that fits none of the above

Examples:
- "Delta Airlines" is 'travel'
- "Marriott" is 'lodging'
- "Uber" is 'transportation'
- "Staples" is 'supplies'

Respond with only one word: the category label.`,
		strings.Join(labels, ", "), merchant, amount, description)
}
