package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/landmark"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StreamHandler classifies a live stream of hand landmarks via WebSocket.
// Each inbound frame carries one set of landmarks and receives one
// prediction in reply.
type StreamHandler struct {
	model *classifier.Model
}

// NewStreamHandler creates a new StreamHandler with the given model.
func NewStreamHandler(m *classifier.Model) *StreamHandler {
	return &StreamHandler{model: m}
}

type streamFrame struct {
	Landmarks []landmark.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

type streamResult struct {
	classifier.PredictionResult
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// ServeHTTP handles WebSocket upgrade requests and runs the per-connection
// prediction loop.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		msg := streamResult{Timestamp: frame.Timestamp}
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}

		result, err := h.model.Predict(frame.Landmarks)
		if err != nil {
			msg.Prediction = classifier.Unknown
			msg.Error = streamErrorMessage(err)
		} else {
			msg.PredictionResult = *result
		}

		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func streamErrorMessage(err error) string {
	var verr *landmark.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, classifier.ErrNotTrained):
		return "no trained model available"
	default:
		return "prediction failed"
	}
}
