package validator

import (
	"context"
	"encoding/json"
	"strings"
)

type openAIContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIRequest struct {
	Model          string `json:"model"`
	Messages       []any  `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	MaxTokens int `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIClassifier uses the OpenAI chat completions API.
type OpenAIClassifier struct {
	visionAPI
}

func (c *OpenAIClassifier) Classify(ctx context.Context, img Image, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model: c.model,
		Messages: []any{map[string]any{
			"role": "user",
			"content": []openAIContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: "data:" + img.MIMEType + ";base64," + encodeImage(img)}},
			},
		}},
		MaxTokens: 500,
	}
	reqBody.ResponseFormat.Type = "json_object"

	body, err := c.postJSON(ctx, c.endpoint+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, reqBody)
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", c.unavailable(err, "decode_response")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", c.emptyAnswer()
	}
	return resp.Choices[0].Message.Content, nil
}
