package app

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

const defaultLiveReadTimeout = 60 * time.Second

// live serves the scene live channel.
//
// The protocol is request/response over one websocket: any inbound data
// frame asks for the game's current active scene, and the server answers
// with the scene document using the same message type the client sent.
// Clients that fall idle past the read deadline are disconnected; a close
// frame ends the loop through gorilla's default close handler.
func (h *Handler) live(w http.ResponseWriter, r *http.Request, callerID string) {
	gameID := r.PathValue("gameID")

	// Membership is checked before upgrading so an outsider gets a plain
	// HTTP error instead of a websocket close. No active scene yet is fine:
	// the client may connect and wait for one.
	if _, err := h.service.ActiveScene(r.Context(), callerID, gameID); err != nil &&
		!apperrors.IsCode(err, apperrors.CodeSceneNotActive) {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Printf("live upgrade for game %s: %v", gameID, err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(h.liveReadTimeout)); err != nil {
			return
		}
		messageType, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("live read for game %s: %v", gameID, err)
			}
			return
		}

		scene, err := h.service.ActiveScene(r.Context(), callerID, gameID)
		if err != nil {
			if writeErr := h.writeLiveError(conn, messageType, err); writeErr != nil {
				return
			}
			continue
		}

		payload, err := json.Marshal(sceneResponse(scene))
		if err != nil {
			log.Printf("live marshal for game %s: %v", gameID, err)
			return
		}
		if err := conn.WriteMessage(messageType, payload); err != nil {
			return
		}
	}
}

func (h *Handler) writeLiveError(conn *websocket.Conn, messageType int, err error) error {
	code := apperrors.GetCode(err)
	payload, marshalErr := json.Marshal(map[string]any{
		"error": map[string]any{"code": string(code), "message": clientMessage(code)},
	})
	if marshalErr != nil {
		return marshalErr
	}
	return conn.WriteMessage(messageType, payload)
}
