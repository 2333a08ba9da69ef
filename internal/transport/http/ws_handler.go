package http

import (
	"errors"
	"log"
	"net/http"

	"exam-sim-service/internal/app"
	"exam-sim-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams live simulation statistics to reporting dashboards.
type WSHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExamService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pushes a statistics snapshot on every
// completed attempt, starting with the current state. The subscription is
// dropped as soon as the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	simulationID := r.URL.Query().Get("simulationId")
	if simulationID == "" {
		http.Error(w, "missing simulationId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.WatchStats(r.Context(), simulationID)
	if err != nil {
		if errors.Is(err, domain.ErrSimulationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("watch stats failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "statistics", Payload: stats}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
