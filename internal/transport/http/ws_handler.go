package http

import (
	"encoding/json"
	"log"
	"net/http"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/session"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
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

type renamePayload struct {
	Name string `json:"name"`
}

type startRoundPayload struct {
	Order       []string `json:"order"`
	PointTarget int      `json:"pointTarget"`
}

type startTurnPayload struct {
	FromTurnID string `json:"fromTurnId"`
}

type answerPayload struct {
	TurnID    string   `json:"turnId"`
	AnswerIDs []string `json:"answerIds"`
}

type turnRefPayload struct {
	TurnID string `json:"turnId"`
}

type gradedPayload struct {
	TurnID string            `json:"turnId"`
	Grades []app.PlayerGrade `json:"grades"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// room session use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	playerID := r.URL.Query().Get("playerId")
	name := r.URL.Query().Get("name")
	if roomID == "" || playerID == "" || name == "" {
		http.Error(w, "missing roomId, playerId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), roomID, playerID, name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), roomID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), roomID, playerID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		lastGradedTurn := ""
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "room", Payload: update}}
				if msg, ok := h.gradedMessage(r, roomID, playerID, update, &lastGradedTurn); ok {
					msgs = append(msgs, msg)
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, roomID, playerID, inbound); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch turns one inbound client action into a service call. Successful
// actions answer through the room broadcast, not a direct reply.
func (h *WSHandler) dispatch(r *http.Request, roomID, playerID string, inbound inboundMessage) error {
	ctx := r.Context()
	switch inbound.Type {
	case "rename":
		var p renamePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.Rename(ctx, roomID, playerID, p.Name)
		return err
	case "startRound":
		var p startRoundPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.StartRound(ctx, roomID, playerID, p.Order, p.PointTarget)
		return err
	case "startTurn":
		var p startTurnPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.StartTurn(ctx, roomID, p.FromTurnID)
		return err
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.SubmitAnswers(ctx, roomID, playerID, p.TurnID, p.AnswerIDs)
		return err
	case "feedback":
		var p turnRefPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.RevealFeedback(ctx, roomID, p.TurnID)
		return err
	case "endTurn":
		var p turnRefPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.EndTurn(ctx, roomID, p.TurnID)
		return err
	}
	return errUnsupportedType
}

// gradedMessage attaches graded feedback to a feedback-phase snapshot,
// honoring the trivia's feedback scope: direct feedback reaches only the
// turn owner, room feedback reaches everyone.
func (h *WSHandler) gradedMessage(r *http.Request, roomID, playerID string, update app.Snapshot, lastGradedTurn *string) (outboundMessage[any], bool) {
	if update.Turn == nil {
		return outboundMessage[any]{}, false
	}
	inFeedback := update.Phase == session.PhaseDirectFeedback || update.Phase == session.PhaseRoomFeedback
	if !inFeedback || update.Turn.TurnID == *lastGradedTurn {
		return outboundMessage[any]{}, false
	}
	if update.Phase == session.PhaseDirectFeedback {
		if update.Round == nil || update.Round.NextOwner != playerID {
			return outboundMessage[any]{}, false
		}
	}

	grades, err := h.service.Grades(r.Context(), roomID)
	if err != nil {
		return outboundMessage[any]{}, false
	}
	*lastGradedTurn = update.Turn.TurnID
	return outboundMessage[any]{Type: "graded", Payload: gradedPayload{
		TurnID: update.Turn.TurnID,
		Grades: grades,
	}}, true
}
