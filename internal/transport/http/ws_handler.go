package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler runs one quiz session per connection: register, open articles,
// answer questions. The read gate lives with the connection, one per session,
// and resets whenever the participant opens the next article.
type WSHandler struct {
	scoring  *app.ScoringService
	dwell    time.Duration
	upgrader websocket.Upgrader
}

func NewWSHandler(scoring *app.ScoringService, dwell time.Duration) *WSHandler {
	return &WSHandler{
		scoring: scoring,
		dwell:   dwell,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type openArticlePayload struct {
	QuestionID string `json:"questionId"`
}

type answerPayload struct {
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
	AttemptNumber int    `json:"attemptNumber"`
}

type gateOpenedPayload struct {
	QuestionID string    `json:"questionId"`
	UnlocksAt  time.Time `json:"unlocksAt"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// participation use cases. The identity comes from query params the identity
// provider stamped on the client; a missing identity aborts before any write.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	contestID := r.URL.Query().Get("contestId")
	userID := r.URL.Query().Get("userId")
	email := r.URL.Query().Get("email")
	if contestID == "" {
		http.Error(w, "missing contestId", http.StatusBadRequest)
		return
	}
	if userID == "" || email == "" {
		http.Error(w, domain.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	participation, err := h.scoring.Register(r.Context(), contestID, userID, email)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	_ = conn.WriteJSON(outboundMessage[domain.Participation]{Type: "registered", Payload: participation})

	// One reader loop per connection, so writing inline is race-free.
	gate := app.NewGate(h.dwell)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "openArticle":
			var payload openArticlePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid openArticle payload"}})
				continue
			}
			unlocksAt := gate.OpenArticle(payload.QuestionID)
			_ = conn.WriteJSON(outboundMessage[gateOpenedPayload]{Type: "gateOpened", Payload: gateOpenedPayload{
				QuestionID: payload.QuestionID,
				UnlocksAt:  unlocksAt,
			}})
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			result, err := h.scoring.SubmitAnswer(r.Context(), gate, contestID, userID, domain.AnswerSubmission{
				QuestionID:    payload.QuestionID,
				Answer:        payload.Answer,
				AttemptNumber: payload.AttemptNumber,
			})
			if err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			gate.Advance()
			_ = conn.WriteJSON(outboundMessage[domain.AnswerResult]{Type: "answerResult", Payload: result})
		default:
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
