package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

// OpenAIChatTranslator translates batched subtitle text via the OpenAI chat API.
type OpenAIChatTranslator struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIChatTranslator(apiKey string) *OpenAIChatTranslator {
	return &OpenAIChatTranslator{
		apiKey: apiKey,
		model:  "gpt-4o-mini",
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *OpenAIChatTranslator) Name() string {
	return "openai"
}

func (c *OpenAIChatTranslator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}
	if req.Text == "" {
		return "", fmt.Errorf("openai: empty translation input")
	}

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": req.Instructions},
			{"role": "user", "content": req.Text},
		},
		"temperature": 0.3,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openAIChatURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[openai] sending translation request: model=%s target=%s", c.model, req.TargetLanguage)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpError(c.Name(), resp.StatusCode, body)
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty OpenAI response")
	}

	if fr := chatResp.Choices[0].FinishReason; fr != "" && fr != "stop" {
		log.Printf("[openai] WARNING: finish_reason=%s", fr)
	}

	return chatResp.Choices[0].Message.Content, nil
}
