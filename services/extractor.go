package services

import (
	"context"
	"fmt"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// TextExtractor turns a document into page-ordered text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (models.OCRResponse, error)
}

// OCRClient is the remote OCR provider contract.
type OCRClient interface {
	Upload(ctx context.Context, data []byte, fileName, purpose string) (string, error)
	SignedURL(ctx context.Context, fileID string) (string, error)
	Process(ctx context.Context, model, documentURL string) (models.OCRResponse, error)
}

// OCRExtractor uploads a document to an OCR provider and reads back its pages.
// The uploaded file is left on the provider.
type OCRExtractor struct {
	client OCRClient
	model  string
}

func NewOCRExtractor(client OCRClient, model string) *OCRExtractor {
	return &OCRExtractor{client: client, model: model}
}

func (e *OCRExtractor) Extract(ctx context.Context, data []byte, fileName string) (models.OCRResponse, error) {
	fileID, err := e.client.Upload(ctx, data, fileName, "ocr")
	if err != nil {
		return models.OCRResponse{}, extractionFailed(fmt.Errorf("upload document: %w", err))
	}
	url, err := e.client.SignedURL(ctx, fileID)
	if err != nil {
		return models.OCRResponse{}, extractionFailed(fmt.Errorf("signed url: %w", err))
	}
	resp, err := e.client.Process(ctx, e.model, url)
	if err != nil {
		return models.OCRResponse{}, extractionFailed(fmt.Errorf("process document: %w", err))
	}
	return resp, nil
}

func extractionFailed(err error) error {
	return &models.UpstreamServiceError{Kind: models.ErrExtractionFailed, Err: err}
}
