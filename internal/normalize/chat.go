// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// ChatBackend normalizes article blocks through an OpenAI-compatible
// chat-completions endpoint (the statute dumps this pipeline was built for
// are served through DashScope's compatible mode, but any conforming
// service works).
type ChatBackend struct {
	APIKey  string
	Model   string
	BaseURL string

	// Context carries the document front matter included in each prompt.
	Context types.DocumentContext

	// Client is the HTTP client; http.DefaultClient when nil.
	Client *http.Client
}

// chatRequest is the request body for the chat-completions API.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the response body from the chat-completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Normalize sends one block to the service and parses the structured
// reply. The service must answer with a single JSON object carrying
// non-empty "article_number" and "content" strings; anything else is a
// recoverable failure. HTTP 400/401/403 are permanent.
func (c *ChatBackend) Normalize(ctx context.Context, block types.ArticleBlock) (types.Article, error) {
	prompt, err := renderPrompt(c.Context, block)
	if err != nil {
		return types.Article{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return types.Article{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return types.Article{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.Article{}, fmt.Errorf("calling completion service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return types.Article{}, fmt.Errorf("service returned %d: %s: %w", resp.StatusCode, string(body), ErrPermanent)
	default:
		body, _ := io.ReadAll(resp.Body)
		return types.Article{}, fmt.Errorf("service returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return types.Article{}, fmt.Errorf("decoding service response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return types.Article{}, fmt.Errorf("service returned no choices")
	}

	return parseArticle(cResp.Choices[0].Message.Content)
}

// parseArticle validates the structured reply contract: a single JSON
// object with non-empty article_number and content.
func parseArticle(reply string) (types.Article, error) {
	var a types.Article
	if err := json.Unmarshal([]byte(reply), &a); err != nil {
		return types.Article{}, fmt.Errorf("parsing reply JSON: %w", err)
	}

	a.ArticleNumber = strings.TrimSpace(a.ArticleNumber)
	a.Content = strings.TrimSpace(a.Content)
	if a.ArticleNumber == "" {
		return types.Article{}, fmt.Errorf("reply missing article_number")
	}
	if a.Content == "" {
		return types.Article{}, fmt.Errorf("reply missing content")
	}
	return a, nil
}
