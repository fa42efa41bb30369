package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/accelerometer_bridge/internal/bridge"
)

// eventBuffer bounds how far a slow socket may fall behind before events
// are dropped for it.
const eventBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// EventMessage is what event stream sockets receive.
type EventMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// events upgrades to a websocket and streams one plugin event (default
// "measurement") until the client goes away.
func (r *Router) events(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "plugin")
	p, ok := r.host.Plugin(name)
	if !ok {
		http.Error(w, "unknown plugin "+name, http.StatusNotFound)
		return
	}

	event := req.URL.Query().Get("event")
	if event == "" {
		event = bridge.EventMeasurement
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Error().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	log := r.log.With().Str("plugin", name).Str("event", event).Str("remote", req.RemoteAddr).Logger()

	queue := make(chan map[string]any, eventBuffer)
	handle := p.Listeners().Add(event, func(payload map[string]any) {
		select {
		case queue <- payload:
		default:
			// fire and forget: a full queue drops the event for this socket
		}
	})
	defer handle.Remove()

	log.Info().Msg("event stream opened")
	defer log.Info().Msg("event stream closed")

	// The read loop only notices the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-req.Context().Done():
			return
		case payload := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(EventMessage{Event: event, Data: payload}); err != nil {
				log.Warn().Err(err).Msg("websocket write error")
				return
			}
		}
	}
}
