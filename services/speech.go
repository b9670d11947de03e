package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// SpeechRequest is one clip to synthesize.
type SpeechRequest struct {
	Model        string
	Voice        string
	Instructions string
	Format       string
	Text         string
}

// SpeechSynthesizer is the text-to-speech provider contract.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// AudioOptions configures a synthesis run. OutputDir is created if absent.
type AudioOptions struct {
	Model        string
	Voice        string
	Instructions string
	Format       string
	OutputDir    string
}

// AudioSynthesizer renders every script section to its own audio file.
type AudioSynthesizer struct {
	speech SpeechSynthesizer
	log    zerolog.Logger
}

func NewAudioSynthesizer(speech SpeechSynthesizer, log zerolog.Logger) *AudioSynthesizer {
	return &AudioSynthesizer{speech: speech, log: log}
}

// Synthesize writes <OutputDir>/<sectionId>.<Format> for each section, one at
// a time, and returns the absolute paths keyed by section id. Any failure
// discards the whole map.
func (a *AudioSynthesizer) Synthesize(ctx context.Context, script models.PodcastScript, opts AudioOptions) (models.SectionAudioMap, error) {
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	dir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := make(models.SectionAudioMap, script.SectionCount())
	for _, section := range models.SynthesisOrder(script) {
		audio, err := a.speech.Synthesize(ctx, SpeechRequest{
			Model:        opts.Model,
			Voice:        opts.Voice,
			Instructions: opts.Instructions,
			Format:       opts.Format,
			Text:         section.Text,
		})
		if err != nil {
			return nil, &models.UpstreamServiceError{
				Kind: models.ErrSynthesisFailed,
				Err:  fmt.Errorf("section %s: %w", section.ID, err),
			}
		}
		path := filepath.Join(dir, section.ID+"."+opts.Format)
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", section.ID, err)
		}
		a.log.Debug().Str("section", section.ID).Int("bytes", len(audio)).Msg("section synthesized")
		files[section.ID] = path
	}
	return files, nil
}

// DefaultGoogleVoice stands in for OpenAI voice names, which Cloud
// Text-to-Speech does not know.
const DefaultGoogleVoice = "en-US-Standard-C"

var openAIVoices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true, "echo": true,
	"fable": true, "nova": true, "onyx": true, "sage": true, "shimmer": true,
}

// GoogleSpeech synthesizes with Cloud Text-to-Speech. That API has no style
// directive, so SpeechRequest.Instructions is not sent.
type GoogleSpeech struct {
	client       *texttospeech.Client
	languageCode string
}

func NewGoogleSpeech(client *texttospeech.Client, languageCode string) *GoogleSpeech {
	return &GoogleSpeech{client: client, languageCode: languageCode}
}

func (s *GoogleSpeech) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	resp, err := s.client.SynthesizeSpeech(ctx, googleSpeechRequest(req, s.languageCode))
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}

func googleSpeechRequest(req SpeechRequest, languageCode string) *texttospeechpb.SynthesizeSpeechRequest {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
			Name:         googleVoice(req.Voice),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: googleEncoding(req.Format),
		},
	}
}

func googleVoice(name string) string {
	if openAIVoices[strings.ToLower(name)] {
		return DefaultGoogleVoice
	}
	return name
}

func googleEncoding(format string) texttospeechpb.AudioEncoding {
	switch strings.ToLower(format) {
	case "wav", "pcm":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "ogg", "opus":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}
