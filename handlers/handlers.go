package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/srgchrksv/pdfpodcaster/models"
	"github.com/srgchrksv/pdfpodcaster/services"
	"github.com/srgchrksv/pdfpodcaster/storage"
)

const (
	sessionIDKey = "sessionID"
	podcastIDKey = "podcastID"
)

// Processor runs an upload through the generation pipeline.
type Processor interface {
	Run(ctx context.Context, upload *services.Upload, voice string) (*services.Run, error)
}

// PodcastReader loads persisted podcasts.
type PodcastReader interface {
	Get(ctx context.Context, id int64) (models.ArtifactRecord, error)
}

type Handlers struct {
	pipeline Processor
	reader   PodcastReader
	sessions *storage.Storage
	origins  map[string]bool
	log      zerolog.Logger
}

func New(pipeline Processor, reader PodcastReader, sessions *storage.Storage, allowedOrigins []string, log zerolog.Logger) *Handlers {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handlers{
		pipeline: pipeline,
		reader:   reader,
		sessions: sessions,
		origins:  origins,
		log:      log,
	}
}

// Index issues a session id if the client has none.
func (h *Handlers) Index(c *gin.Context) {
	sessionID, fresh := h.ensureSession(c)
	if fresh {
		h.saveSession(c)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session ready", "session_id": sessionID})
}

// Upload accepts a multipart "file" field and an optional "voice" field and
// returns the generated podcast.
func (h *Handlers) Upload(c *gin.Context) {
	var upload *services.Upload
	if header, err := c.FormFile("file"); err == nil {
		file, err := header.Open()
		if err != nil {
			h.log.Error().Err(err).Msg("open uploaded file")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
		defer file.Close()
		upload = &services.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}

	// Upstream calls continue if the client disconnects.
	ctx := context.WithoutCancel(c.Request.Context())
	run, err := h.pipeline.Run(ctx, upload, c.PostForm("voice"))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		h.log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
		return
	}

	h.remember(c, run.Podcast())
	c.JSON(http.StatusOK, gin.H{
		"message":      "File uploaded successfully",
		"fileName":     run.Document.FileName,
		"fileSize":     run.Document.Size,
		"tempFilePath": run.Document.TempPath,
		"ocrResponse":  run.OCR,
		"audioFiles":   run.AudioFiles,
		"audioScript":  run.Script,
	})
}

// CurrentPodcast returns the session's podcast and its playback state.
func (h *Handlers) CurrentPodcast(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No sessions found"})
		return
	}
	ps, apiErr := h.podcastSession(c, sessionID, 0)
	if apiErr != nil {
		c.JSON(apiErr.status, gin.H{"error": apiErr.message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"podcast": ps.Podcast, "state": ps.Controller.State()})
}

// GetPodcast returns a persisted podcast by artifact id.
func (h *Handlers) GetPodcast(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast id"})
		return
	}
	podcast, apiErr := h.loadPodcast(c.Request.Context(), id)
	if apiErr != nil {
		c.JSON(apiErr.status, gin.H{"error": apiErr.message})
		return
	}
	c.JSON(http.StatusOK, podcast)
}

// apiError is a failure with the status and message the client sees.
type apiError struct {
	status  int
	message string
}

var (
	errNoPodcast       = &apiError{http.StatusNotFound, "No podcast for this session"}
	errPodcastNotFound = &apiError{http.StatusNotFound, "Podcast not found"}
	errPodcastLoad     = &apiError{http.StatusInternalServerError, "Failed to load podcast"}
)

func (h *Handlers) loadPodcast(ctx context.Context, id int64) (models.Podcast, *apiError) {
	record, err := h.reader.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Podcast{}, errPodcastNotFound
	}
	if err != nil {
		h.log.Error().Err(err).Int64("podcast_id", id).Msg("load podcast")
		return models.Podcast{}, errPodcastLoad
	}
	podcast, err := record.Podcast()
	if err != nil {
		h.log.Error().Err(err).Int64("podcast_id", id).Msg("decode podcast")
		return models.Podcast{}, errPodcastLoad
	}
	return podcast, nil
}

// podcastSession resolves the podcast a session is listening to. A non-zero
// id selects a persisted podcast; otherwise the in-process registry is
// consulted, falling back to the id remembered in the cookie.
func (h *Handlers) podcastSession(c *gin.Context, sessionID string, id int64) (*storage.PodcastSession, *apiError) {
	ps, ok := h.sessions.Get(sessionID)
	if id == 0 {
		if ok {
			return ps, nil
		}
		remembered, _ := sessions.Default(c).Get(podcastIDKey).(int64)
		if remembered == 0 {
			return nil, errNoPodcast
		}
		id = remembered
	} else if ok && ps.Podcast.ID == id {
		return ps, nil
	}

	podcast, apiErr := h.loadPodcast(c.Request.Context(), id)
	if apiErr != nil {
		return nil, apiErr
	}
	ps, err := h.sessions.SetPodcast(sessionID, podcast)
	if err != nil {
		h.log.Error().Err(err).Int64("podcast_id", id).Msg("stored podcast is not playable")
		return nil, errPodcastLoad
	}
	return ps, nil
}

// remember attaches a freshly generated podcast to the caller's session. The
// cookie is written once with both keys.
func (h *Handlers) remember(c *gin.Context, podcast models.Podcast) {
	sessionID, fresh := h.ensureSession(c)
	if _, err := h.sessions.SetPodcast(sessionID, podcast); err != nil {
		h.log.Warn().Err(err).Int64("podcast_id", podcast.ID).Msg("podcast not playable")
		if fresh {
			h.saveSession(c)
		}
		return
	}
	sessions.Default(c).Set(podcastIDKey, podcast.ID)
	h.saveSession(c)
}

func (h *Handlers) sessionID(c *gin.Context) (string, bool) {
	id, ok := sessions.Default(c).Get(sessionIDKey).(string)
	return id, ok && id != ""
}

// ensureSession assigns a session id if there is none. The caller saves.
func (h *Handlers) ensureSession(c *gin.Context) (string, bool) {
	if id, ok := h.sessionID(c); ok {
		return id, false
	}
	id := uuid.New().String()
	sessions.Default(c).Set(sessionIDKey, id)
	return id, true
}

func (h *Handlers) saveSession(c *gin.Context) {
	if err := sessions.Default(c).Save(); err != nil {
		h.log.Warn().Err(err).Msg("save session")
	}
}
