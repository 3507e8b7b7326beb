package wsocket

import (
	"context"
	"net/http"
	"time"

	"github.com/DAVIPRADIPTA/anemia-app/internal/broker"
	"github.com/DAVIPRADIPTA/anemia-app/internal/models"
	"github.com/DAVIPRADIPTA/anemia-app/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler streams a consultation's live events to a connected party.
// Messages are sent over the REST API; the socket is outbound-only apart
// from client pings.
type Handler struct {
	consultationService *services.ConsultationService
	messageBroker       *broker.Broker
	upgrader            websocket.Upgrader
	statusCheckInterval time.Duration
}

// Message is the envelope written to the client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func NewHandler(consultationService *services.ConsultationService, messageBroker *broker.Broker, upgrader websocket.Upgrader, statusCheckInterval time.Duration) *Handler {
	return &Handler{
		consultationService: consultationService,
		messageBroker:       messageBroker,
		upgrader:            upgrader,
		statusCheckInterval: statusCheckInterval,
	}
}

// HandleWebSocket subscribes user to consultationID's channel for the life
// of the connection. Access is checked before the upgrade; the broker itself
// does not validate membership.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user *models.User, consultationID uint) {
	if _, err := h.consultationService.Consultation(r.Context(), consultationID, user.ID); err != nil {
		http.Error(w, "Access forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := services.ChannelName(consultationID)
	events := h.messageBroker.Subscribe(topic)
	defer h.messageBroker.Unsubscribe(topic, events)

	ticker := time.NewTicker(h.statusCheckInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, ok := event.(services.ChatMessagePayload)
				if !ok {
					continue
				}
				if err := conn.WriteJSON(Message{
					Type: "new_message",
					Data: services.HistoryEntry{
						ID:        payload.ID,
						SenderID:  payload.SenderID,
						Message:   payload.Message,
						Timestamp: payload.Timestamp,
						IsMe:      payload.SenderID == user.ID,
					},
				}); err != nil {
					log.Debug().Err(err).Msg("Failed to write chat event")
					return
				}
			case <-ticker.C:
				consultation, err := h.consultationService.Consultation(ctx, consultationID, user.ID)
				if err != nil {
					log.Debug().Err(err).Msg("Failed to load consultation status")
					continue
				}
				if err := conn.WriteJSON(Message{
					Type: "session_status",
					Data: map[string]interface{}{
						"status":     consultation.Status,
						"expired_at": consultation.ExpiredAt,
					},
				}); err != nil {
					return
				}
				if consultation.ExpiredAt != nil && time.Now().After(*consultation.ExpiredAt) {
					conn.WriteJSON(Message{Type: "expired"})
					cancel()
					return
				}
			}
		}
	}()

	// Reads only detect disconnects; clients send chat via the REST API.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
