package routes

import (
	"fmt"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/srgchrksv/pdfpodcaster/handlers"
	"github.com/srgchrksv/pdfpodcaster/logger"
	"github.com/srgchrksv/pdfpodcaster/storage"
)

type Options struct {
	SessionSecret  string
	AllowedOrigins []string
	PublicDir      string
	// AudioDir must sit inside PublicDir; it is served under the matching path.
	AudioDir string
	Logger   zerolog.Logger
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) error {
	r.Use(logger.GinMiddleware(opts.Logger))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	r.Use(sessions.Sessions("podcastsession", store))

	config := cors.DefaultConfig()
	config.AllowOrigins = opts.AllowedOrigins
	config.AllowMethods = []string{"GET", "POST"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	audioPrefix, audioDir, err := audioRoute(opts.PublicDir, opts.AudioDir)
	if err != nil {
		return err
	}
	r.Static(audioPrefix, audioDir)

	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.POST("/api/upload", h.Upload)
	r.GET("/podcast", h.CurrentPodcast)
	r.GET("/podcasts/:id", h.GetPodcast)
	r.GET("/playback", h.Playback)
	return nil
}

// audioRoute maps the audio directory to the URL prefix the local publisher
// produces for files under it.
func audioRoute(publicDir, audioDir string) (string, string, error) {
	publicAbs, err := filepath.Abs(publicDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve public dir: %w", err)
	}
	audioAbs, err := filepath.Abs(audioDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve audio dir: %w", err)
	}
	prefix, err := storage.PublicPath(publicAbs, audioAbs)
	if err != nil {
		return "", "", fmt.Errorf("audio dir must be inside public dir: %w", err)
	}
	return prefix, audioAbs, nil
}
