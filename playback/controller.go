// Package playback holds the sectioned-audio player state for one listener.
package playback

import (
	"fmt"
	"sync"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// Player drives the audio element that actually makes sound.
type Player interface {
	Play(url string) error
	Pause() error
}

type nopPlayer struct{}

func (nopPlayer) Play(string) error { return nil }
func (nopPlayer) Pause() error      { return nil }

// State is a snapshot of the controller.
type State struct {
	PodcastID    int64          `json:"podcastId"`
	Index        int            `json:"currentSectionIndex"`
	SectionCount int            `json:"sectionCount"`
	Section      models.Section `json:"section"`
	AudioURL     string         `json:"audioUrl"`
	IsPlaying    bool           `json:"isPlaying"`
	CurrentTime  float64        `json:"currentTime"`
	Duration     float64        `json:"duration"`
}

// Controller keeps a cursor over the sections of one podcast. Index 0 is the
// introduction and SectionCount()-1 the call to action.
type Controller struct {
	mu          sync.Mutex
	podcast     models.Podcast
	player      Player
	index       int
	playing     bool
	currentTime float64
	duration    float64
}

// New returns a controller positioned on the introduction. The audio map must
// have exactly one entry per script section.
func New(podcast models.Podcast, player Player) (*Controller, error) {
	if err := models.CheckAlignment(podcast.AudioScript, podcast.AudioFiles); err != nil {
		return nil, fmt.Errorf("new playback controller: %w", err)
	}
	if player == nil {
		player = nopPlayer{}
	}
	return &Controller{podcast: podcast, player: player}, nil
}

// SetPlayer swaps the output, e.g. when a listener reconnects.
func (c *Controller) SetPlayer(player Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if player == nil {
		player = nopPlayer{}
	}
	c.player = player
}

// ReleasePlayer detaches player if it is still the current output. A newer
// player installed by SetPlayer is left in place.
func (c *Controller) ReleasePlayer(player Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == player {
		c.player = nopPlayer{}
	}
}

func (c *Controller) SectionCount() int {
	return c.podcast.AudioScript.SectionCount()
}

func (c *Controller) last() int {
	return c.SectionCount() - 1
}

// Next advances one section. It is a no-op on the call to action.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= c.last() {
		return nil
	}
	return c.moveTo(c.index + 1)
}

// Previous goes back one section. It is a no-op on the introduction.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index <= 0 {
		return nil
	}
	return c.moveTo(c.index - 1)
}

// Select jumps to index, which must be within [0, SectionCount()-1].
func (c *Controller) Select(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index > c.last() {
		return fmt.Errorf("section index %d out of range [0, %d]", index, c.last())
	}
	return c.moveTo(index)
}

// TogglePlay starts or pauses the current section.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.playing = false
		return c.player.Pause()
	}
	c.playing = true
	return c.player.Play(c.audioURL(c.index))
}

// Ended handles the natural end of a clip: advance and keep playing, or stop
// after the call to action.
func (c *Controller) Ended() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= c.last() {
		c.playing = false
		c.currentTime = c.duration
		return c.player.Pause()
	}
	return c.moveTo(c.index + 1)
}

// UpdateTime records the position reported by the audio element.
func (c *Controller) UpdateTime(currentTime, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = currentTime
	c.duration = duration
}

func (c *Controller) Current() models.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	section, _ := models.SectionAt(c.podcast.AudioScript, c.index)
	return section
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	section, _ := models.SectionAt(c.podcast.AudioScript, c.index)
	return State{
		PodcastID:    c.podcast.ID,
		Index:        c.index,
		SectionCount: c.SectionCount(),
		Section:      section,
		AudioURL:     c.podcast.AudioFiles[section.ID],
		IsPlaying:    c.playing,
		CurrentTime:  c.currentTime,
		Duration:     c.duration,
	}
}

// moveTo changes section and, while playing, starts the new clip.
func (c *Controller) moveTo(index int) error {
	c.index = index
	c.currentTime = 0
	c.duration = 0
	if !c.playing {
		return nil
	}
	return c.player.Play(c.audioURL(index))
}

func (c *Controller) audioURL(index int) string {
	section, _ := models.SectionAt(c.podcast.AudioScript, index)
	return c.podcast.AudioFiles[section.ID]
}
