package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
)

const (
	liveReadLimit = 64 << 10
	livePongWait  = 60 * time.Second
	livePingEvery = livePongWait * 9 / 10
	liveWriteWait = 10 * time.Second
)

// NutriScoreHandler serves grade previews over HTTP and WebSocket
type NutriScoreHandler struct {
	service  *service.ProductService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewNutriScoreHandler creates a new preview handler
func NewNutriScoreHandler(service *service.ProductService, logger *slog.Logger) *NutriScoreHandler {
	return &NutriScoreHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer for HTTP; previews carry
			// no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// PreviewResponse is the result of grading a set of facts.
type PreviewResponse struct {
	Success   bool              `json:"success"`
	Grade     nutriscore.Grade  `json:"grade"`
	Score     int               `json:"score"`
	Breakdown nutriscore.Points `json:"breakdown"`
	Display   nutriscore.Info   `json:"display"`
}

func newPreviewResponse(res nutriscore.Result) PreviewResponse {
	return PreviewResponse{
		Success:   true,
		Grade:     res.Grade,
		Score:     res.Score,
		Breakdown: res.Points,
		Display:   res.Grade.Info(),
	}
}

// Preview handles POST /api/nutriscore/preview
func (h *NutriScoreHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var facts nutriscore.NutritionFacts
	if err := decodeJSON(w, r, &facts); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, newPreviewResponse(h.service.Preview(facts)), h.logger)
}

// Live handles GET /api/nutriscore/live. Each frame from the client is a
// NutritionFacts document; the server answers each with a preview, or with
// an error envelope if the frame is not JSON.
func (h *NutriScoreHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(liveReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn("live preview connection closed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))

		var reply any
		var facts nutriscore.NutritionFacts
		if err := json.Unmarshal(msg, &facts); err != nil {
			reply = ErrorResponse{Success: false, Error: "Invalid JSON body"}
		} else {
			reply = newPreviewResponse(h.service.Preview(facts))
		}

		if err := h.write(conn, reply); err != nil {
			h.logger.Debug("live preview write failed", "error", err)
			return
		}
	}
}

// ping keeps the connection alive until done is closed.
func (h *NutriScoreHandler) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(livePingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *NutriScoreHandler) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(v)
}
