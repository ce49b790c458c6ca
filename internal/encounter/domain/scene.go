// Package domain defines the scene aggregate for the live encounter engine.
//
// A Scene is one tabletop vignette within a game: a roster of participants
// placed on a discrete grid, plus the environment tags the capture engine
// reads. At most one scene per game is active at a time; that invariant is
// enforced by the storage layer's conditional writes, while the aggregate
// enforces the per-document ones (unique roster entries, unique positions,
// movement budgets).
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
	"github.com/louisbranch/wildgrid/internal/platform/id"
)

// MaxSceneNameLength is the longest accepted scene name.
const MaxSceneNameLength = 30

// SceneKind describes the tone of a scene.
type SceneKind int

const (
	// SceneKindUnspecified represents an invalid scene kind value.
	SceneKindUnspecified SceneKind = iota
	// SceneKindHostile indicates a combat scene.
	SceneKindHostile
	// SceneKindNonHostile indicates a social or exploration scene.
	SceneKindNonHostile
	// SceneKindHybrid indicates a scene that can turn either way.
	SceneKindHybrid
)

func (k SceneKind) String() string {
	switch k {
	case SceneKindHostile:
		return "hostile"
	case SceneKindNonHostile:
		return "non-hostile"
	case SceneKindHybrid:
		return "hybrid"
	default:
		return "unspecified"
	}
}

// ParseSceneKind resolves a wire value to a SceneKind.
func ParseSceneKind(value string) SceneKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hostile":
		return SceneKindHostile
	case "non-hostile", "nonhostile":
		return SceneKindNonHostile
	case "hybrid":
		return SceneKindHybrid
	default:
		return SceneKindUnspecified
	}
}

// Scene is the authoritative representation of one encounter.
//
// Revision is the optimistic-concurrency token: storage writes succeed only
// when the persisted revision still matches, so two racing mutations cannot
// both apply against the same read.
type Scene struct {
	ID              string        `json:"id"`
	GameID          string        `json:"game_id"`
	Name            string        `json:"name"`
	Kind            SceneKind     `json:"kind"`
	IsActive        bool          `json:"is_active"`
	Participants    []Participant `json:"participants"`
	EnvironmentTags []string      `json:"environment_tags"`
	ShopRefs        []string      `json:"shop_refs"`
	Revision        int64         `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CreateSceneInput describes the metadata needed to create a scene.
type CreateSceneInput struct {
	GameID          string
	Name            string
	Kind            SceneKind
	EnvironmentTags []string
	ShopRefs        []string
}

// CreateScene creates a new inactive scene with a generated ID and timestamps.
func CreateScene(input CreateSceneInput, now func() time.Time, idGenerator func() (string, error)) (Scene, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateSceneInput(input)
	if err != nil {
		return Scene{}, err
	}

	sceneID, err := idGenerator()
	if err != nil {
		return Scene{}, fmt.Errorf("generate scene id: %w", err)
	}

	createdAt := now().UTC()
	return Scene{
		ID:              sceneID,
		GameID:          normalized.GameID,
		Name:            normalized.Name,
		Kind:            normalized.Kind,
		IsActive:        false,
		Participants:    []Participant{},
		EnvironmentTags: normalized.EnvironmentTags,
		ShopRefs:        normalized.ShopRefs,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// NormalizeCreateSceneInput trims and validates scene input metadata.
func NormalizeCreateSceneInput(input CreateSceneInput) (CreateSceneInput, error) {
	input.GameID = strings.TrimSpace(input.GameID)
	if input.GameID == "" {
		return CreateSceneInput{}, apperrors.New(apperrors.CodeSceneEmptyGameID, "game id is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || len(input.Name) > MaxSceneNameLength {
		return CreateSceneInput{}, apperrors.WithMetadata(
			apperrors.CodeSceneNameInvalid,
			fmt.Sprintf("scene name must be between 1 and %d characters", MaxSceneNameLength),
			map[string]string{"name": input.Name},
		)
	}
	if input.Kind == SceneKindUnspecified {
		return CreateSceneInput{}, apperrors.New(apperrors.CodeSceneKindInvalid, "scene kind is required")
	}

	tags := make([]string, 0, len(input.EnvironmentTags))
	for _, tag := range input.EnvironmentTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	input.EnvironmentTags = tags

	refs := make([]string, 0, len(input.ShopRefs))
	for _, ref := range input.ShopRefs {
		ref = strings.TrimSpace(ref)
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	input.ShopRefs = refs
	return input, nil
}

// Participant returns the roster entry with the given ID.
func (s *Scene) Participant(participantID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == participantID {
			return p, true
		}
	}
	return Participant{}, false
}

// OccupiedPositions returns every cell held by a roster entry, excluding
// the participant with excludeID when non-empty.
func (s *Scene) OccupiedPositions(excludeID string) []grid.Position {
	positions := make([]grid.Position, 0, len(s.Participants))
	for _, p := range s.Participants {
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		positions = append(positions, p.Position)
	}
	return positions
}

// IsOccupied reports whether any roster entry holds pos.
func (s *Scene) IsOccupied(pos grid.Position) bool {
	return grid.IsOccupied(s.OccupiedPositions(""), pos)
}

// Join appends a participant to the roster.
//
// It fails when the participant is already present or its cell is held by
// another roster entry. The scene is not modified on failure.
func (s *Scene) Join(p Participant) error {
	normalized, err := NormalizeParticipant(p)
	if err != nil {
		return err
	}
	if _, ok := s.Participant(normalized.ID); ok {
		return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyJoined,
			"participant is already in the scene",
			map[string]string{"participant_id": normalized.ID})
	}
	if grid.IsOccupied(s.OccupiedPositions(normalized.ID), normalized.Position) {
		return occupiedError(normalized.Position)
	}
	s.Participants = append(s.Participants, normalized)
	return nil
}

// Leave removes and returns the participant with the given ID.
func (s *Scene) Leave(participantID string) (Participant, error) {
	for i, p := range s.Participants {
		if p.ID == participantID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return p, nil
		}
	}
	return Participant{}, apperrors.WithMetadata(apperrors.CodeNotFound,
		"participant is not in the scene",
		map[string]string{"participant_id": participantID})
}

// Move repositions a participant.
//
// A game master moves anyone anywhere; a self-move is limited to the
// participant's speed. Either way the target cell must be free. The scene is
// not modified on failure.
func (s *Scene) Move(participantID string, newPos grid.Position, asGameMaster bool) error {
	idx := -1
	for i, p := range s.Participants {
		if p.ID == participantID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			"participant is not in the scene",
			map[string]string{"participant_id": participantID})
	}

	current := s.Participants[idx]
	if !asGameMaster {
		if distance := grid.Distance(current.Position, newPos); distance > float64(current.Speed) {
			return apperrors.WithMetadata(apperrors.CodeMoveOutOfRange,
				fmt.Sprintf("move distance %.2f exceeds speed %d", distance, current.Speed),
				map[string]string{"participant_id": participantID})
		}
	}
	if grid.IsOccupied(s.OccupiedPositions(participantID), newPos) {
		return occupiedError(newPos)
	}

	s.Participants[idx].Position = newPos
	return nil
}

func occupiedError(pos grid.Position) error {
	return apperrors.WithMetadata(apperrors.CodePositionOccupied,
		fmt.Sprintf("cell (%d,%d) is already occupied", pos.X, pos.Y),
		map[string]string{
			"x": fmt.Sprintf("%d", pos.X),
			"y": fmt.Sprintf("%d", pos.Y),
		})
}
