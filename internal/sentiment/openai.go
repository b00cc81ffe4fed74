package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/selivandex/market-pulse/pkg/models"
)

const classifyPrompt = `You are a financial news sentiment classifier.
Respond with ONLY a JSON object of label probabilities summing to 1, for example:
{"positive": 0.7, "neutral": 0.2, "negative": 0.1}

Text:
%s`

// OpenAIClassifier scores text through the OpenAI chat API. It
// satisfies the same Classifier capability as the lexicon, so the
// engine's fusion and thresholding logic is unaware of the backend.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier creates new OpenAI-backed classifier
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Classify requests per-label probabilities for the text
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(classifyPrompt, text),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return parseScores(resp.Choices[0].Message.Content)
}

// parseScores extracts the JSON score object from the model reply,
// tolerating surrounding prose or code fences
func parseScores(content string) (map[models.Label]float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply: %q", content)
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scores: %w", err)
	}

	scores := make(map[models.Label]float64, len(models.Labels))
	for _, label := range models.Labels {
		value, ok := raw[string(label)]
		if !ok {
			return nil, fmt.Errorf("missing %s score in reply", label)
		}
		if value < 0 || value > 1 {
			return nil, fmt.Errorf("score for %s out of range: %f", label, value)
		}
		scores[label] = value
	}

	return scores, nil
}
