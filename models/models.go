package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type TalkingPoint struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PodcastScript is the structured script returned by the language model.
type PodcastScript struct {
	Introduction      string         `json:"introduction"`
	MainTalkingPoints []TalkingPoint `json:"main_talking_points"`
	Conclusion        string         `json:"conclusion"`
	CallToAction      string         `json:"call_to_action"`
}

// SectionAudioMap maps a section id to the location of its audio clip.
type SectionAudioMap map[string]string

// OCRPage is one page of extracted markdown.
type OCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type OCRResponse struct {
	Model string    `json:"model,omitempty"`
	Pages []OCRPage `json:"pages"`
}

// Text concatenates page markdown in page order, one newline after each page.
func (r OCRResponse) Text() string {
	var b strings.Builder
	for _, page := range r.Pages {
		b.WriteString(page.Markdown)
		b.WriteString("\n")
	}
	return b.String()
}

// UploadedDocument describes an upload staged on local disk.
type UploadedDocument struct {
	FileName    string
	ContentType string
	Size        int64
	TempPath    string
}

// ArtifactRecord is one persisted row. Blob fields hold JSON text.
type ArtifactRecord struct {
	ID          int64
	OCRResponse string
	AudioScript string
	AudioFiles  string
}

// Podcast is a generated script paired with its audio clips.
type Podcast struct {
	ID          int64           `json:"id"`
	AudioScript PodcastScript   `json:"audioScript"`
	AudioFiles  SectionAudioMap `json:"audioFiles"`
}

// NewArtifactRecord serializes the pipeline outputs into a row.
func NewArtifactRecord(id int64, ocr OCRResponse, script PodcastScript, audio SectionAudioMap) (ArtifactRecord, error) {
	ocrData, err := json.Marshal(ocr)
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("marshal ocr response: %w", err)
	}
	scriptData, err := json.Marshal(script)
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("marshal audio script: %w", err)
	}
	audioData, err := json.Marshal(audio)
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("marshal audio files: %w", err)
	}
	return ArtifactRecord{
		ID:          id,
		OCRResponse: string(ocrData),
		AudioScript: string(scriptData),
		AudioFiles:  string(audioData),
	}, nil
}

// Podcast decodes the script and audio map stored in the record.
func (r ArtifactRecord) Podcast() (Podcast, error) {
	podcast := Podcast{ID: r.ID}
	if err := json.Unmarshal([]byte(r.AudioScript), &podcast.AudioScript); err != nil {
		return Podcast{}, fmt.Errorf("unmarshal audio script: %w", err)
	}
	if err := json.Unmarshal([]byte(r.AudioFiles), &podcast.AudioFiles); err != nil {
		return Podcast{}, fmt.Errorf("unmarshal audio files: %w", err)
	}
	return podcast, nil
}
