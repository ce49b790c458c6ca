// Package app exposes the encounter engine over HTTP.
//
// Routes are JSON over net/http with method-qualified ServeMux patterns.
// Callers authenticate with a bearer trainer token; authorization beyond
// identity (game master, self, presence) belongs to the service layer. The
// live channel at /games/{gameID}/scene/live is a websocket that answers
// every inbound frame with the current active scene.
package app

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/wildgrid/internal/encounter/domain"
	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	"github.com/louisbranch/wildgrid/internal/encounter/service"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
	"github.com/louisbranch/wildgrid/internal/platform/token"
)

const maxRequestBodyBytes = 64 * 1024

// Handler serves the encounter HTTP surface.
type Handler struct {
	service  *service.Service
	verifier *token.Verifier
	upgrader websocket.Upgrader

	// liveReadTimeout bounds how long a live connection may idle between
	// frames before the server closes it.
	liveReadTimeout time.Duration
}

// NewHandler builds the route table for the encounter service.
func NewHandler(svc *service.Service, verifier *token.Verifier) http.Handler {
	h := &Handler{
		service:  svc,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		liveReadTimeout: defaultLiveReadTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /games/{gameID}/scenes", h.withCaller(h.createScene))
	mux.HandleFunc("GET /games/{gameID}/scenes", h.withCaller(h.listScenes))
	mux.HandleFunc("DELETE /games/{gameID}/scenes", h.withCaller(h.deleteScenes))
	mux.HandleFunc("GET /games/{gameID}/scenes/active", h.withCaller(h.activeScene))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/activate", h.withCaller(h.activateScene))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/deactivate", h.withCaller(h.deactivateScene))
	mux.HandleFunc("DELETE /games/{gameID}/scenes/{sceneID}", h.withCaller(h.deleteScene))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/participants", h.withCaller(h.join))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/participants/{participantID}/position", h.withCaller(h.move))
	mux.HandleFunc("DELETE /games/{gameID}/scenes/{sceneID}/participants/{participantID}", h.withCaller(h.remove))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/capture", h.withCaller(h.capture))
	mux.HandleFunc("POST /games/{gameID}/scenes/{sceneID}/refresh-hp", h.withCaller(h.refreshHP))
	mux.HandleFunc("GET /games/{gameID}/log", h.withCaller(h.sessionLog))
	mux.HandleFunc("GET /games/{gameID}/scene/live", h.withCaller(h.live))

	return mux
}

// callerHandler is an authenticated route: callerID is the verified trainer ID.
type callerHandler func(w http.ResponseWriter, r *http.Request, callerID string)

func (h *Handler) withCaller(next callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := h.callerFromRequest(r)
		if err != nil {
			writeError(w, r, apperrors.New(apperrors.CodeCallerUnverified, "authentication required"))
			return
		}
		next(w, r, callerID)
	}
}

func (h *Handler) callerFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		return "", token.ErrInvalidToken
	}
	return h.verifier.Verify(raw)
}

type createSceneRequest struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	EnvironmentTags []string `json:"environment_tags"`
	ShopRefs        []string `json:"shop_refs"`
}

func (h *Handler) createScene(w http.ResponseWriter, r *http.Request, callerID string) {
	var req createSceneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	scene, err := h.service.CreateScene(r.Context(), callerID, domain.CreateSceneInput{
		GameID:          r.PathValue("gameID"),
		Name:            req.Name,
		Kind:            domain.ParseSceneKind(req.Kind),
		EnvironmentTags: req.EnvironmentTags,
		ShopRefs:        req.ShopRefs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sceneResponse(scene))
}

func (h *Handler) listScenes(w http.ResponseWriter, r *http.Request, callerID string) {
	scenes, err := h.service.ListScenes(r.Context(), callerID, r.PathValue("gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(scenes))
	for _, scene := range scenes {
		out = append(out, sceneResponse(scene))
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": out})
}

func (h *Handler) activeScene(w http.ResponseWriter, r *http.Request, callerID string) {
	scene, err := h.service.ActiveScene(r.Context(), callerID, r.PathValue("gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) activateScene(w http.ResponseWriter, r *http.Request, callerID string) {
	scene, err := h.service.ActivateScene(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) deactivateScene(w http.ResponseWriter, r *http.Request, callerID string) {
	scene, err := h.service.DeactivateScene(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) deleteScene(w http.ResponseWriter, r *http.Request, callerID string) {
	if err := h.service.DeleteScene(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteScenes(w http.ResponseWriter, r *http.Request, callerID string) {
	if err := h.service.DeleteScenes(r.Context(), callerID, r.PathValue("gameID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	ParticipantID string       `json:"participant_id"`
	Kind          string       `json:"kind"`
	Position      positionBody `json:"position"`
}

type positionBody struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request, callerID string) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	scene, err := h.service.Join(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"), service.JoinInput{
		ParticipantID: req.ParticipantID,
		Kind:          domain.ParseParticipantKind(req.Kind),
		Position:      grid.Position{X: req.Position.X, Y: req.Position.Y},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, callerID string) {
	var req positionBody
	if !decodeJSON(w, r, &req) {
		return
	}

	scene, err := h.service.Move(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"),
		r.PathValue("participantID"), grid.Position{X: req.X, Y: req.Y})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, callerID string) {
	scene, err := h.service.Remove(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"),
		r.PathValue("participantID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

type captureRequest struct {
	CreatureID string `json:"creature_id"`
	Ball       string `json:"ball"`
	CatchRate  int    `json:"catch_rate"`
	Nickname   string `json:"nickname"`
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request, callerID string) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Capture(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"), service.CaptureInput{
		CreatureID: req.CreatureID,
		Ball:       req.Ball,
		CatchRate:  req.CatchRate,
		Nickname:   req.Nickname,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   result.Success,
		"roll":      result.Roll,
		"modifier":  result.Modifier,
		"check":     result.Check,
		"team_slot": result.TeamSlot,
		"scene":     sceneResponse(result.Scene),
	})
}

func (h *Handler) refreshHP(w http.ResponseWriter, r *http.Request, callerID string) {
	scene, err := h.service.RefreshHP(r.Context(), callerID, r.PathValue("gameID"), r.PathValue("sceneID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse(scene))
}

func (h *Handler) sessionLog(w http.ResponseWriter, r *http.Request, callerID string) {
	entries, err := h.service.SessionLog(r.Context(), callerID, r.PathValue("gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"at":      entry.At.Format(time.RFC3339),
			"message": entry.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func sceneResponse(scene domain.Scene) map[string]any {
	participants := make([]map[string]any, 0, len(scene.Participants))
	for _, p := range scene.Participants {
		participants = append(participants, map[string]any{
			"id":           p.ID,
			"display_name": p.DisplayName,
			"kind":         p.Kind.String(),
			"alignment":    p.Alignment.String(),
			"current_hp":   p.CurrentHP,
			"speed":        p.Speed,
			"position":     map[string]int{"x": p.Position.X, "y": p.Position.Y},
		})
	}
	return map[string]any{
		"id":               scene.ID,
		"game_id":          scene.GameID,
		"name":             scene.Name,
		"kind":             scene.Kind.String(),
		"is_active":        scene.IsActive,
		"participants":     participants,
		"environment_tags": scene.EnvironmentTags,
		"shop_refs":        scene.ShopRefs,
		"created_at":       scene.CreatedAt.Format(time.RFC3339),
		"updated_at":       scene.UpdatedAt.Format(time.RFC3339),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": "MALFORMED_BODY", "message": "request body is not valid JSON"},
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	body := map[string]any{"code": string(code), "message": clientMessage(code)}
	if metadata := apperrors.GetMetadata(err); len(metadata) > 0 {
		body["metadata"] = metadata
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// clientMessage keeps internal error text out of responses.
func clientMessage(code apperrors.Code) string {
	switch code {
	case apperrors.CodeSceneNameInvalid:
		return "scene name is invalid"
	case apperrors.CodeSceneKindInvalid:
		return "scene kind is invalid"
	case apperrors.CodeSceneEmptyGameID:
		return "game id is required"
	case apperrors.CodeSceneActiveExists:
		return "another scene is already active"
	case apperrors.CodeSceneNotActive:
		return "scene is not active"
	case apperrors.CodeParticipantEmptyID:
		return "participant id is required"
	case apperrors.CodeParticipantKindInvalid:
		return "participant kind is invalid"
	case apperrors.CodeParticipantAlreadyJoined:
		return "participant is already in the scene"
	case apperrors.CodePositionOccupied:
		return "position is occupied"
	case apperrors.CodeMoveOutOfRange:
		return "move exceeds the participant's speed"
	case apperrors.CodeCaptureInvalidCatchRate:
		return "catch rate must be between 1 and 255"
	case apperrors.CodeCaptureUnknownBall:
		return "unknown ball"
	case apperrors.CodeCreatureAlreadyOwned:
		return "creature already has an owner"
	case apperrors.CodeCallerUnverified:
		return "authentication required"
	case apperrors.CodeNotGameMaster:
		return "game master access required"
	case apperrors.CodeNotSelf:
		return "callers may only act as themselves"
	case apperrors.CodeTrainerOffline:
		return "trainer is not connected"
	case apperrors.CodeNotFound:
		return "not found"
	default:
		return "something went wrong"
	}
}
