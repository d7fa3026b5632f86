package handlers

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/knx2openhab/dashboard/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the requested host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// PanelHandler pushes panel updates of a session to the browser.
type PanelHandler struct {
	hub *Hub
}

// NewPanelHandler creates a new PanelHandler instance.
func NewPanelHandler(hub *Hub) *PanelHandler {
	return &PanelHandler{hub: hub}
}

// HandleWebSocket streams panel updates over a websocket. Every new
// connection starts with a full replay of the session state.
func (h *PanelHandler) HandleWebSocket(c *gin.Context) {
	s := middleware.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusGone, gin.H{"error": "session expired"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade: %v", err)
		return
	}
	defer func() { _ = ws.Close() }()

	messages, cancel := h.hub.Subscribe(s.ID())
	defer cancel()
	log.Printf("[WS] Session %s connected (%d connections)", s.ID(), h.hub.Connections(s.ID()))
	s.Replay()
	s.Attach()
	defer s.Detach()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.SetReadLimit(4096)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			s.Touch()
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[WS] Read error: %v", err)
				}
				return
			}
			s.Touch()
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			log.Printf("[WS] Session %s disconnected", s.ID())
			return
		case msg, ok := <-messages:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := ws.WriteJSON(msg); err != nil {
				log.Printf("[WS] Write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
