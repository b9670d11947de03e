package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgchrksv/pdfpodcaster/models"
	"github.com/srgchrksv/pdfpodcaster/services"
	"github.com/srgchrksv/pdfpodcaster/storage"
)

type fakeProcessor struct {
	upload *services.Upload
	body   []byte
	voice  string
	run    *services.Run
	err    error
}

func (f *fakeProcessor) Run(_ context.Context, upload *services.Upload, voice string) (*services.Run, error) {
	f.upload = upload
	f.voice = voice
	if upload != nil {
		f.body, _ = io.ReadAll(upload.Body)
	}
	if f.err != nil {
		return &services.Run{State: services.StateFailed}, f.err
	}
	return f.run, nil
}

type fakeReader struct {
	records map[int64]models.ArtifactRecord
	err     error
}

func (f *fakeReader) Get(_ context.Context, id int64) (models.ArtifactRecord, error) {
	if f.err != nil {
		return models.ArtifactRecord{}, f.err
	}
	record, ok := f.records[id]
	if !ok {
		return models.ArtifactRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func testPodcast(id int64) models.Podcast {
	script := models.PodcastScript{
		Introduction:      "Welcome",
		MainTalkingPoints: []models.TalkingPoint{{Title: "One", Content: "first"}},
		Conclusion:        "Bye",
		CallToAction:      "Subscribe",
	}
	audio := models.SectionAudioMap{}
	for _, sid := range models.SectionIDs(script) {
		audio[sid] = "/audio/" + strconv.FormatInt(id, 10) + "/" + sid + ".mp3"
	}
	return models.Podcast{ID: id, AudioScript: script, AudioFiles: audio}
}

func testRecord(t *testing.T, id int64) models.ArtifactRecord {
	t.Helper()
	p := testPodcast(id)
	record, err := models.NewArtifactRecord(id, models.OCRResponse{}, p.AudioScript, p.AudioFiles)
	require.NoError(t, err)
	return record
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("test-secret"))))
	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.GET("/podcast", h.CurrentPodcast)
	r.GET("/podcasts/:id", h.GetPodcast)
	r.GET("/playback", h.Playback)
	return r
}

func newTestHandlers(proc Processor, reader PodcastReader) *Handlers {
	return New(proc, reader, storage.NewStorage(), []string{"http://localhost:3000"}, zerolog.Nop())
}

func multipartUpload(t *testing.T, fileName, contentType string, data []byte, voice string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if voice != "" {
		require.NoError(t, mw.WriteField("voice", voice))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUploadSuccess(t *testing.T) {
	podcast := testPodcast(77)
	proc := &fakeProcessor{run: &services.Run{
		ID:         77,
		State:      services.StateCompleted,
		Document:   models.UploadedDocument{FileName: "paper.pdf", Size: 9, TempPath: "/tmp/upload_1_abc.pdf"},
		OCR:        models.OCRResponse{Pages: []models.OCRPage{{Markdown: "text"}}},
		Script:     podcast.AudioScript,
		AudioFiles: podcast.AudioFiles,
	}}
	h := newTestHandlers(proc, &fakeReader{})
	r := newTestRouter(h)

	body, ct := multipartUpload(t, "paper.pdf", "application/pdf", []byte("%PDF-data"), "nova")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, proc.upload)
	assert.Equal(t, "paper.pdf", proc.upload.FileName)
	assert.Equal(t, "application/pdf", proc.upload.ContentType)
	assert.Equal(t, int64(9), proc.upload.Size)
	assert.Equal(t, "%PDF-data", string(proc.body))
	assert.Equal(t, "nova", proc.voice)

	out := decode(t, rec)
	assert.Equal(t, "File uploaded successfully", out["message"])
	assert.Equal(t, "paper.pdf", out["fileName"])
	assert.EqualValues(t, 9, out["fileSize"])
	assert.Equal(t, "/tmp/upload_1_abc.pdf", out["tempFilePath"])
	assert.Contains(t, out, "ocrResponse")
	assert.Contains(t, out, "audioScript")
	audio := out["audioFiles"].(map[string]any)
	assert.Len(t, audio, 4)
	assert.Equal(t, "/audio/77/introduction.mp3", audio["introduction"])

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/podcast", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var current struct {
		Podcast models.Podcast `json:"podcast"`
		State   struct {
			Index        int  `json:"currentSectionIndex"`
			SectionCount int  `json:"sectionCount"`
			IsPlaying    bool `json:"isPlaying"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, podcast, current.Podcast)
	assert.Equal(t, 0, current.State.Index)
	assert.Equal(t, 4, current.State.SectionCount)
	assert.False(t, current.State.IsPlaying)
}

func TestUploadErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid type", &models.PipelineFailure{Stage: "validate", Err: services.ErrInvalidType}, http.StatusBadRequest, "Invalid file type. Please upload a PDF file"},
		{"too large", &models.PipelineFailure{Stage: "validate", Err: services.ErrFileTooLarge}, http.StatusBadRequest, "File size too large. Maximum size is 10MB"},
		{"upstream", &models.PipelineFailure{Stage: "script", Err: &models.UpstreamServiceError{Kind: models.ErrScriptGenerationFailed, Err: io.ErrUnexpectedEOF}}, http.StatusInternalServerError, "Failed to process file"},
		{"storage", &models.PipelineFailure{Stage: "persist", Err: &models.StorageError{Message: "insert rows", Status: 500}}, http.StatusInternalServerError, "Failed to process file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(&fakeProcessor{err: tc.err}, &fakeReader{})
			body, ct := multipartUpload(t, "a.pdf", "application/pdf", []byte("x"), "")
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			newTestRouter(h).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, map[string]any{"error": tc.wantError}, decode(t, rec))
		})
	}
}

func TestUploadWithoutFilePassesNil(t *testing.T) {
	proc := &fakeProcessor{err: &models.PipelineFailure{Stage: "validate", Err: services.ErrNoFile}}
	h := newTestHandlers(proc, &fakeReader{})

	body, ct := multipartUpload(t, "", "", nil, "nova")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Nil(t, proc.upload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
}

func TestGetPodcast(t *testing.T) {
	reader := &fakeReader{records: map[int64]models.ArtifactRecord{5: testRecord(t, 5)}}
	r := newTestRouter(newTestHandlers(&fakeProcessor{}, reader))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/podcasts/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Podcast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testPodcast(5), got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/podcasts/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/podcasts/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPodcastStoreFailure(t *testing.T) {
	reader := &fakeReader{err: &models.StorageError{Message: "query", Status: 503}}
	rec := httptest.NewRecorder()
	newTestRouter(newTestHandlers(&fakeProcessor{}, reader)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/podcasts/5", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCurrentPodcastRequiresSession(t *testing.T) {
	r := newTestRouter(newTestHandlers(&fakeProcessor{}, &fakeReader{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/podcast", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["session_id"])

	req := httptest.NewRequest(http.MethodGet, "/podcast", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadWritesOneSessionCookie(t *testing.T) {
	podcast := testPodcast(77)
	proc := &fakeProcessor{run: &services.Run{
		ID:         77,
		State:      services.StateCompleted,
		Script:     podcast.AudioScript,
		AudioFiles: podcast.AudioFiles,
	}}
	body, ct := multipartUpload(t, "paper.pdf", "application/pdf", []byte("%PDF"), "")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newTestRouter(newTestHandlers(proc, &fakeReader{})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Header.Values("Set-Cookie"), 1)

	// A restarted process has an empty registry and falls back to the cookie.
	reader := &fakeReader{records: map[int64]models.ArtifactRecord{77: testRecord(t, 77)}}
	restarted := newTestRouter(newTestHandlers(&fakeProcessor{}, reader))
	req = httptest.NewRequest(http.MethodGet, "/podcast", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	restarted.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var current struct {
		Podcast models.Podcast `json:"podcast"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, podcast, current.Podcast)
}
