// Package errors provides structured error handling for the encounter engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Scene errors
	CodeSceneNameInvalid  Code = "SCENE_NAME_INVALID"
	CodeSceneKindInvalid  Code = "SCENE_KIND_INVALID"
	CodeSceneEmptyGameID  Code = "SCENE_EMPTY_GAME_ID"
	CodeSceneActiveExists Code = "SCENE_ACTIVE_EXISTS"
	CodeSceneNotActive    Code = "SCENE_NOT_ACTIVE"

	// Participant errors
	CodeParticipantEmptyID       Code = "PARTICIPANT_EMPTY_ID"
	CodeParticipantKindInvalid   Code = "PARTICIPANT_KIND_INVALID"
	CodeParticipantAlreadyJoined Code = "PARTICIPANT_ALREADY_JOINED"
	CodePositionOccupied         Code = "POSITION_OCCUPIED"
	CodeMoveOutOfRange           Code = "MOVE_OUT_OF_RANGE"

	// Capture errors
	CodeCaptureInvalidCatchRate Code = "CAPTURE_INVALID_CATCH_RATE"
	CodeCaptureUnknownBall      Code = "CAPTURE_UNKNOWN_BALL"
	CodeCreatureAlreadyOwned    Code = "CREATURE_ALREADY_OWNED"

	// Authorization errors
	CodeCallerUnverified Code = "CALLER_UNVERIFIED"
	CodeNotGameMaster    Code = "NOT_GAME_MASTER"
	CodeNotSelf          Code = "NOT_SELF"
	CodeTrainerOffline   Code = "TRAINER_OFFLINE"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// HTTPStatus maps domain codes to HTTP status codes for client responses.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed input
	case CodeSceneNameInvalid,
		CodeSceneKindInvalid,
		CodeSceneEmptyGameID,
		CodeParticipantEmptyID,
		CodeParticipantKindInvalid,
		CodeCaptureInvalidCatchRate,
		CodeCaptureUnknownBall:
		return http.StatusBadRequest

	// Conflict - invariant violation
	case CodeSceneActiveExists,
		CodeSceneNotActive,
		CodeParticipantAlreadyJoined,
		CodePositionOccupied,
		CodeCreatureAlreadyOwned:
		return http.StatusConflict

	// Unprocessable - the move is well-formed but exceeds the speed budget
	case CodeMoveOutOfRange:
		return http.StatusUnprocessableEntity

	case CodeCallerUnverified:
		return http.StatusUnauthorized

	case CodeNotGameMaster,
		CodeNotSelf,
		CodeTrainerOffline:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
