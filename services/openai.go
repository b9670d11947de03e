package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to an OpenAI-compatible API. It serves both script
// completion and speech synthesis.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, fmt.Errorf("openai api error: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("openai api error: %s", resp.Status)
	}
	return resp, nil
}

// OpenAICompleter requests strict JSON schema output from chat completions.
type OpenAICompleter struct {
	client *OpenAIClient
	model  string
}

func NewOpenAICompleter(client *OpenAIClient, model string) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: strings.TrimSpace(model)}
}

func (o *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userText string, schema *Schema) (string, error) {
	if o.model == "" {
		return "", fmt.Errorf("openai model required")
	}
	reqBody := oaiChatRequest{
		Model: o.model,
		Messages: []oaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		ResponseFormat: &oaiResponseFormat{
			Type: "json_schema",
			JSONSchema: oaiJSONSchema{
				Name:   "podcast_episode_script",
				Strict: true,
				Schema: schema,
			},
		},
		Temperature: 1,
		TopP:        1,
		MaxTokens:   2048,
	}
	resp, err := o.client.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("openai decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from openai")
	}
	return text, nil
}

// OpenAISpeech synthesizes audio with the /audio/speech endpoint.
type OpenAISpeech struct {
	client *OpenAIClient
}

func NewOpenAISpeech(client *OpenAIClient) *OpenAISpeech {
	return &OpenAISpeech{client: client}
}

func (s *OpenAISpeech) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	resp, err := s.client.post(ctx, "/audio/speech", oaiSpeechRequest{
		Model:          req.Model,
		Input:          req.Text,
		Voice:          req.Voice,
		Instructions:   req.Instructions,
		ResponseFormat: req.Format,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio from openai")
	}
	return audio, nil
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiJSONSchema struct {
	Name   string  `json:"name"`
	Strict bool    `json:"strict"`
	Schema *Schema `json:"schema"`
}

type oaiResponseFormat struct {
	Type       string        `json:"type"`
	JSONSchema oaiJSONSchema `json:"json_schema"`
}

type oaiChatRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
	Temperature    float64            `json:"temperature"`
	TopP           float64            `json:"top_p"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiSpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	Instructions   string `json:"instructions,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
