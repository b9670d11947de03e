package handlers

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/srgchrksv/pdfpodcaster/playback"
)

// frame is a server to browser websocket message.
type frame struct {
	Type  string          `json:"type"`
	URL   string          `json:"url,omitempty"`
	State *playback.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// wsPlayer relays play and pause commands to the browser's audio element.
type wsPlayer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPlayer) send(f frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(f)
}

func (p *wsPlayer) Play(url string) error {
	return p.send(frame{Type: "play", URL: url})
}

func (p *wsPlayer) Pause() error {
	return p.send(frame{Type: "pause"})
}

func (p *wsPlayer) sendState(c *playback.Controller) error {
	state := c.State()
	return p.send(frame{Type: "state", State: &state})
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.origins[origin]
}

// Playback upgrades to a websocket and drives the session's playback
// controller from action frames. ?id= switches the session to a persisted
// podcast first.
func (h *Handlers) Playback(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No sessions found"})
		return
	}
	var id int64
	if raw := c.Query("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast id"})
			return
		}
		id = parsed
	}
	ps, apiErr := h.podcastSession(c, sessionID, id)
	if apiErr != nil {
		c.JSON(apiErr.status, gin.H{"error": apiErr.message})
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("session_id", sessionID).Int64("podcast_id", ps.Podcast.ID).Logger()
	player := &wsPlayer{conn: conn}
	ps.Controller.SetPlayer(player)
	defer ps.Controller.ReleasePlayer(player)

	if err := player.sendState(ps.Controller); err != nil {
		log.Warn().Err(err).Msg("write state")
		return
	}
	for {
		var action playback.Action
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("read action")
			}
			return
		}
		if err := playback.Apply(ps.Controller, action); err != nil {
			if werr := player.send(frame{Type: "error", Error: err.Error()}); werr != nil {
				log.Warn().Err(werr).Msg("write error")
				return
			}
			continue
		}
		if err := player.sendState(ps.Controller); err != nil {
			log.Warn().Err(err).Msg("write state")
			return
		}
	}
}
