package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// MaxUploadSize is the largest accepted document, inclusive.
const MaxUploadSize = 10 * 1024 * 1024

const pdfContentType = "application/pdf"

type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StateStaged      State = "staged"
	StateExtracted   State = "extracted"
	StateScripted    State = "scripted"
	StateSynthesized State = "synthesized"
	StatePersisted   State = "persisted"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

var (
	ErrNoFile       = &models.ValidationError{Message: "No file uploaded"}
	ErrInvalidType  = &models.ValidationError{Message: "Invalid file type. Please upload a PDF file"}
	ErrFileTooLarge = &models.ValidationError{Message: "File size too large. Maximum size is 10MB"}
)

// Upload is an incoming document as declared by the client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ArtifactInserter persists a finished run.
type ArtifactInserter interface {
	Insert(ctx context.Context, record models.ArtifactRecord) error
}

// AudioPublisher turns local clip paths into URLs a browser can fetch.
type AudioPublisher interface {
	Publish(ctx context.Context, runID string, files models.SectionAudioMap) (models.SectionAudioMap, error)
}

// Run is the state of one upload moving through the pipeline.
type Run struct {
	ID         int64
	State      State
	Voice      string
	Document   models.UploadedDocument
	OCR        models.OCRResponse
	Script     models.PodcastScript
	AudioFiles models.SectionAudioMap

	upload *Upload
}

// Podcast returns the playable part of a completed run.
func (r *Run) Podcast() models.Podcast {
	return models.Podcast{ID: r.ID, AudioScript: r.Script, AudioFiles: r.AudioFiles}
}

type PipelineConfig struct {
	Extractor  TextExtractor
	Scripts    *ScriptGenerator
	Audio      *AudioSynthesizer
	Publisher  AudioPublisher
	Store      ArtifactInserter
	AudioOpts  AudioOptions
	ScratchDir string
	Logger     zerolog.Logger
}

// Pipeline turns an uploaded PDF into a persisted, playable podcast.
type Pipeline struct {
	extractor  TextExtractor
	scripts    *ScriptGenerator
	audio      *AudioSynthesizer
	publisher  AudioPublisher
	store      ArtifactInserter
	audioOpts  AudioOptions
	scratchDir string
	log        zerolog.Logger

	newID func() int64
	now   func() time.Time
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	return &Pipeline{
		extractor:  cfg.Extractor,
		scripts:    cfg.Scripts,
		audio:      cfg.Audio,
		publisher:  cfg.Publisher,
		store:      cfg.Store,
		audioOpts:  cfg.AudioOpts,
		scratchDir: scratch,
		log:        cfg.Logger,
		newID:      newArtifactID,
		now:        time.Now,
	}
}

// newArtifactID returns a positive id that fits the store's 32-bit INTEGER column.
func newArtifactID() int64 {
	return int64(uuid.New().ID() & 0x7fffffff)
}

type transition struct {
	stage string
	to    State
	fn    func(ctx context.Context, run *Run) error
}

func (p *Pipeline) transitions() []transition {
	return []transition{
		{"validate", StateValidated, p.validate},
		{"stage", StateStaged, p.stage},
		{"extract", StateExtracted, p.extract},
		{"script", StateScripted, p.script},
		{"synthesize", StateSynthesized, p.synthesize},
		{"persist", StatePersisted, p.persist},
	}
}

// Run drives upload through every stage. upload is nil when the request had
// no file. On failure the returned run is in StateFailed and the error is a
// *models.PipelineFailure naming the stage that failed. Nothing is cleaned up.
func (p *Pipeline) Run(ctx context.Context, upload *Upload, voice string) (*Run, error) {
	run := &Run{ID: p.newID(), State: StateReceived, Voice: voice, upload: upload}
	log := p.log.With().Int64("run_id", run.ID).Logger()

	for _, t := range p.transitions() {
		if err := t.fn(ctx, run); err != nil {
			run.State = StateFailed
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				log.Error().Err(err).Str("stage", t.stage).Msg("pipeline failed")
			}
			return run, &models.PipelineFailure{Stage: t.stage, Err: err}
		}
		run.State = t.to
		log.Debug().Str("state", string(run.State)).Msg("pipeline transition")
	}
	run.State = StateCompleted
	log.Info().Str("file", run.Document.FileName).Int("sections", len(run.AudioFiles)).Msg("pipeline completed")
	return run, nil
}

func (p *Pipeline) validate(_ context.Context, run *Run) error {
	return ValidateUpload(run.upload)
}

// ValidateUpload checks presence, declared type and size. It makes no
// outbound calls.
func ValidateUpload(upload *Upload) error {
	switch {
	case upload == nil || upload.Body == nil:
		return ErrNoFile
	case upload.ContentType != pdfContentType:
		return ErrInvalidType
	case upload.Size > MaxUploadSize:
		return ErrFileTooLarge
	}
	return nil
}

func (p *Pipeline) stage(_ context.Context, run *Run) error {
	if err := os.MkdirAll(p.scratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	name := fmt.Sprintf("upload_%d_%s.pdf", p.now().UnixMilli(), uuid.NewString()[:8])
	path := filepath.Join(p.scratchDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(run.upload.Body, MaxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}
	if n > MaxUploadSize {
		return ErrFileTooLarge
	}

	run.Document = models.UploadedDocument{
		FileName:    run.upload.FileName,
		ContentType: run.upload.ContentType,
		Size:        run.upload.Size,
		TempPath:    path,
	}
	return nil
}

func (p *Pipeline) extract(ctx context.Context, run *Run) error {
	data, err := os.ReadFile(run.Document.TempPath)
	if err != nil {
		return fmt.Errorf("read scratch file: %w", err)
	}
	resp, err := p.extractor.Extract(ctx, data, run.Document.FileName)
	if err != nil {
		return err
	}
	run.OCR = resp
	return nil
}

func (p *Pipeline) script(ctx context.Context, run *Run) error {
	script, err := p.scripts.Generate(ctx, run.OCR.Text())
	if err != nil {
		return err
	}
	run.Script = script
	return nil
}

func (p *Pipeline) synthesize(ctx context.Context, run *Run) error {
	opts := p.audioOpts
	if run.Voice != "" {
		opts.Voice = run.Voice
	}
	opts.OutputDir = filepath.Join(p.audioOpts.OutputDir, strconv.FormatInt(run.ID, 10))
	files, err := p.audio.Synthesize(ctx, run.Script, opts)
	if err != nil {
		return err
	}
	run.AudioFiles = files
	return nil
}

func (p *Pipeline) persist(ctx context.Context, run *Run) error {
	published, err := p.publisher.Publish(ctx, strconv.FormatInt(run.ID, 10), run.AudioFiles)
	if err != nil {
		return fmt.Errorf("publish audio: %w", err)
	}
	if err := models.CheckAlignment(run.Script, published); err != nil {
		return err
	}
	record, err := models.NewArtifactRecord(run.ID, run.OCR, run.Script, published)
	if err != nil {
		return err
	}
	if err := p.store.Insert(ctx, record); err != nil {
		return err
	}
	run.AudioFiles = published
	return nil
}
