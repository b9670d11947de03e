package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/srgchrksv/pdfpodcaster/models"
)

const defaultMistralBaseURL = "https://api.mistral.ai/v1"

// signedURLExpiryHours is how long the OCR provider keeps a document URL valid.
const signedURLExpiryHours = 24

// MistralClient calls the Mistral files and OCR endpoints.
type MistralClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewMistralClient(apiKey, baseURL string, httpClient *http.Client) *MistralClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &MistralClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Upload sends the document as multipart form data and returns the file id.
func (c *MistralClient) Upload(ctx context.Context, data []byte, fileName, purpose string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("mistral upload returned no file id")
	}
	return out.ID, nil
}

// SignedURL returns a time-limited URL for an uploaded file.
func (c *MistralClient) SignedURL(ctx context.Context, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/files/%s/url?expiry=%d", c.baseURL, url.PathEscape(fileID), signedURLExpiryHours)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("mistral returned empty signed url")
	}
	return out.URL, nil
}

// Process runs OCR against a document URL.
func (c *MistralClient) Process(ctx context.Context, model, documentURL string) (models.OCRResponse, error) {
	payload := ocrRequest{
		Model: model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: documentURL,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return models.OCRResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(data))
	if err != nil {
		return models.OCRResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.OCRResponse
	if err := c.do(req, &out); err != nil {
		return models.OCRResponse{}, err
	}
	return out, nil
}

func (c *MistralClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mistral request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mistral api error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mistral decode: %w", err)
	}
	return nil
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}
