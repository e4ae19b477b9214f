package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for extraction unless overridden.
const DefaultModelName = "gemini-2.5-flash"

// GeminiAnalyzer implements Analyzer against the Gemini API. The API key is
// read from the environment by the genai client (GEMINI_API_KEY).
type GeminiAnalyzer struct {
	model string
}

// NewGeminiAnalyzer creates an analyzer for the given model name. An empty
// name selects DefaultModelName.
func NewGeminiAnalyzer(model string) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiAnalyzer{model: model}
}

// Analyze sends the prompt plus the text and/or image payload to Gemini and
// returns the parsed JSON object. One request, no retries.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, input Input) (map[string]interface{}, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	parts := []*genai.Part{{Text: buildPrompt()}}
	if input.Text != "" {
		parts = append(parts, &genai.Part{Text: "附加文本信息: " + input.Text})
	}
	if input.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: input.Image.MIMEType,
				Data:     input.Image.Bytes,
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	return parsed, nil
}

var _ Analyzer = (*GeminiAnalyzer)(nil)
