package storage

import (
	"sync"

	"github.com/srgchrksv/pdfpodcaster/models"
	"github.com/srgchrksv/pdfpodcaster/playback"
)

// PodcastSession is the in-process state of one browser session.
type PodcastSession struct {
	Podcast    models.Podcast
	Controller *playback.Controller
}

// Storage keeps podcast sessions keyed by the cookie session id.
type Storage struct {
	mu              sync.Mutex
	podcastSessions map[string]*PodcastSession
}

func NewStorage() *Storage {
	return &Storage{
		podcastSessions: make(map[string]*PodcastSession),
	}
}

// SetPodcast replaces the session's podcast and resets its playback cursor.
func (s *Storage) SetPodcast(sessionID string, podcast models.Podcast) (*PodcastSession, error) {
	controller, err := playback.New(podcast, nil)
	if err != nil {
		return nil, err
	}
	session := &PodcastSession{Podcast: podcast, Controller: controller}
	s.mu.Lock()
	s.podcastSessions[sessionID] = session
	s.mu.Unlock()
	return session, nil
}

func (s *Storage) Get(sessionID string) (*PodcastSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.podcastSessions[sessionID]
	return session, ok
}
