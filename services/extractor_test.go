package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgchrksv/pdfpodcaster/models"
)

func newMistralServer(t *testing.T, uploads *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		*uploads++
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ocr", r.FormValue("purpose"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "paper.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(body))
		_, _ = w.Write([]byte(`{"id":"file-123"}`))
	})
	mux.HandleFunc("GET /files/{id}/url", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "file-123", r.PathValue("id"))
		assert.Equal(t, "24", r.URL.Query().Get("expiry"))
		_, _ = w.Write([]byte(`{"url":"https://files.example/signed"}`))
	})
	mux.HandleFunc("POST /ocr", func(w http.ResponseWriter, r *http.Request) {
		var req ocrRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-ocr-latest", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Equal(t, "https://files.example/signed", req.Document.DocumentURL)
		_, _ = w.Write([]byte(`{"model":"mistral-ocr-latest","pages":[{"index":0,"markdown":"# Title"},{"index":1,"markdown":"Body"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOCRExtractorWithMistral(t *testing.T) {
	var uploads int
	srv := newMistralServer(t, &uploads)
	extractor := NewOCRExtractor(NewMistralClient("secret", srv.URL, srv.Client()), "mistral-ocr-latest")

	resp, err := extractor.Extract(context.Background(), []byte("%PDF-1.4"), "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, "mistral-ocr-latest", resp.Model)
	require.Len(t, resp.Pages, 2)
	assert.Equal(t, "# Title\nBody\n", resp.Text())
}

func TestMistralErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewMistralClient("k", srv.URL, srv.Client())
	_, err := client.Upload(context.Background(), []byte("x"), "a.pdf", "ocr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

type stubOCRClient struct {
	uploadErr, urlErr, processErr error
	processed                     bool
}

func (s *stubOCRClient) Upload(context.Context, []byte, string, string) (string, error) {
	return "id", s.uploadErr
}

func (s *stubOCRClient) SignedURL(context.Context, string) (string, error) {
	return "url", s.urlErr
}

func (s *stubOCRClient) Process(context.Context, string, string) (models.OCRResponse, error) {
	s.processed = true
	return models.OCRResponse{}, s.processErr
}

func TestOCRExtractorFailuresAreExtractionErrors(t *testing.T) {
	boom := errors.New("boom")
	for name, client := range map[string]*stubOCRClient{
		"upload":  {uploadErr: boom},
		"url":     {urlErr: boom},
		"process": {processErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewOCRExtractor(client, "m").Extract(context.Background(), []byte("x"), "a.pdf")
			assert.ErrorIs(t, err, models.ErrExtractionFailed)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestPDFTextExtractorRejectsGarbage(t *testing.T) {
	_, err := PDFTextExtractor{}.Extract(context.Background(), []byte("not a pdf"), "a.pdf")
	assert.ErrorIs(t, err, models.ErrExtractionFailed)
}
