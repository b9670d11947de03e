package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// PDFTextExtractor reads the embedded text layer of a PDF locally. It is the
// offline alternative to an OCR provider and does not recognise scanned pages.
type PDFTextExtractor struct{}

func (PDFTextExtractor) Extract(_ context.Context, data []byte, _ string) (models.OCRResponse, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.OCRResponse{}, extractionFailed(fmt.Errorf("open pdf: %w", err))
	}
	resp := models.OCRResponse{Model: "local-pdf-text"}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return models.OCRResponse{}, extractionFailed(fmt.Errorf("read page %d: %w", i, err))
		}
		resp.Pages = append(resp.Pages, models.OCRPage{
			Index:    i - 1,
			Markdown: strings.TrimSpace(text),
		})
	}
	if len(resp.Pages) == 0 {
		return models.OCRResponse{}, extractionFailed(fmt.Errorf("no text extracted from pdf"))
	}
	return resp, nil
}
