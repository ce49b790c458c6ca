// Package service orchestrates encounter operations.
//
// Every mutation follows the same shape: gate the caller, load the scene,
// apply the aggregate mutation, persist with a conditional write, append a
// session log line. Conditional writes that lose a race are retried once
// against a fresh read; a second loss surfaces the conflict to the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/access"
	"github.com/louisbranch/wildgrid/internal/encounter/domain"
	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	"github.com/louisbranch/wildgrid/internal/encounter/storage"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
	"github.com/louisbranch/wildgrid/internal/platform/id"
	"github.com/louisbranch/wildgrid/internal/platform/random"
)

// Service coordinates scenes, rosters, captures, and the session log.
type Service struct {
	scenes    storage.SceneStore
	trainers  storage.TrainerStore
	creatures storage.CreatureStore
	npcs      storage.NPCStore
	logs      storage.LogStore
	dex       storage.DexStore
	gate      *access.Gate

	now     func() time.Time
	newID   func() (string, error)
	newSeed func() (int64, error)
}

// Deps collects the collaborators a Service needs.
type Deps struct {
	Scenes    storage.SceneStore
	Trainers  storage.TrainerStore
	Creatures storage.CreatureStore
	NPCs      storage.NPCStore
	Logs      storage.LogStore
	Dex       storage.DexStore
	Gate      *access.Gate

	// Now, NewID, and NewSeed default to the wall clock, the platform ID
	// generator, and a crypto-seeded source when nil.
	Now     func() time.Time
	NewID   func() (string, error)
	NewSeed func() (int64, error)
}

// New returns a Service wired to the given collaborators.
func New(deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = id.NewID
	}
	if deps.NewSeed == nil {
		deps.NewSeed = random.NewSeed
	}
	return &Service{
		scenes:    deps.Scenes,
		trainers:  deps.Trainers,
		creatures: deps.Creatures,
		npcs:      deps.NPCs,
		logs:      deps.Logs,
		dex:       deps.Dex,
		gate:      deps.Gate,
		now:       deps.Now,
		newID:     deps.NewID,
		newSeed:   deps.NewSeed,
	}
}

// CreateScene stages a new inactive scene. Game master only.
func (s *Service) CreateScene(ctx context.Context, callerID string, input domain.CreateSceneInput) (domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, input.GameID); err != nil {
		return domain.Scene{}, err
	}

	scene, err := domain.CreateScene(input, s.now, s.newID)
	if err != nil {
		return domain.Scene{}, err
	}
	if err := s.scenes.PutScene(ctx, scene); err != nil {
		return domain.Scene{}, s.storageError("create scene", err)
	}

	s.appendLog(ctx, scene.GameID, scene.CreatedAt, fmt.Sprintf("Scene %q staged.", scene.Name))
	return scene, nil
}

// ListScenes returns every scene of a game. Game master only.
func (s *Service) ListScenes(ctx context.Context, callerID, gameID string) ([]domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return nil, err
	}
	scenes, err := s.scenes.ListScenes(ctx, gameID)
	if err != nil {
		return nil, s.storageError("list scenes", err)
	}
	return scenes, nil
}

// ActiveScene returns the game's active scene. Any game member.
func (s *Service) ActiveScene(ctx context.Context, callerID, gameID string) (domain.Scene, error) {
	if err := s.gate.RequireMember(ctx, callerID, gameID); err != nil {
		return domain.Scene{}, err
	}
	scene, err := s.scenes.GetActiveScene(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Scene{}, apperrors.WithMetadata(apperrors.CodeSceneNotActive,
				"no scene is active for this game",
				map[string]string{"game_id": gameID})
		}
		return domain.Scene{}, s.storageError("load active scene", err)
	}
	return scene, nil
}

// ActivateScene makes a scene the game's active one. Game master only.
//
// Activating the already-active scene is a no-op; activating while another
// scene is active is a conflict.
func (s *Service) ActivateScene(ctx context.Context, callerID, gameID, sceneID string) (domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return domain.Scene{}, err
	}

	scene, err := s.loadScene(ctx, gameID, sceneID)
	if err != nil {
		return domain.Scene{}, err
	}
	if scene.IsActive {
		return scene, nil
	}

	updated, err := s.mutateScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		scene.IsActive = true
		return nil
	})
	if err != nil {
		return domain.Scene{}, err
	}

	activator := callerID
	if trainer, err := s.trainers.GetTrainer(ctx, callerID); err == nil {
		activator = trainer.Name
	}
	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("%s activated scene %q.", activator, updated.Name))
	return updated, nil
}

// DeactivateScene ends a scene. Game master only. Deactivating an inactive
// scene is a no-op.
func (s *Service) DeactivateScene(ctx context.Context, callerID, gameID, sceneID string) (domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return domain.Scene{}, err
	}

	scene, err := s.loadScene(ctx, gameID, sceneID)
	if err != nil {
		return domain.Scene{}, err
	}
	if !scene.IsActive {
		return scene, nil
	}

	updated, err := s.mutateScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		scene.IsActive = false
		return nil
	})
	if err != nil {
		return domain.Scene{}, err
	}

	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("Scene %q has ended.", updated.Name))
	return updated, nil
}

// DeleteScene removes one scene. Game master only.
func (s *Service) DeleteScene(ctx context.Context, callerID, gameID, sceneID string) error {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return err
	}
	scene, err := s.loadScene(ctx, gameID, sceneID)
	if err != nil {
		return err
	}
	at := s.now().UTC()
	if err := s.scenes.DeleteScene(ctx, sceneID); err != nil {
		return s.storageError("delete scene", err)
	}
	s.appendLog(ctx, gameID, at, fmt.Sprintf("Scene %q was deleted.", scene.Name))
	return nil
}

// DeleteScenes removes every scene of a game. Game master only.
func (s *Service) DeleteScenes(ctx context.Context, callerID, gameID string) error {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return err
	}
	at := s.now().UTC()
	if err := s.scenes.DeleteScenesByGame(ctx, gameID); err != nil {
		return s.storageError("delete scenes", err)
	}
	s.appendLog(ctx, gameID, at, "All scenes were deleted.")
	return nil
}

// JoinInput places an existing trainer, creature, or NPC record on a scene.
type JoinInput struct {
	ParticipantID string
	Kind          domain.ParticipantKind
	Position      grid.Position
}

// Join adds a participant to a scene.
//
// Trainers join as themselves (or are placed by the game master) and must be
// online; creatures and NPCs are placed by the game master only. The
// participant's stats come from its underlying record, never the request.
func (s *Service) Join(ctx context.Context, callerID, gameID, sceneID string, input JoinInput) (domain.Scene, error) {
	switch input.Kind {
	case domain.ParticipantKindTrainer:
		if err := s.gate.RequireSelfOrGameMaster(ctx, callerID, input.ParticipantID, gameID); err != nil {
			return domain.Scene{}, err
		}
		if err := s.gate.RequireOnline(ctx, input.ParticipantID); err != nil {
			return domain.Scene{}, err
		}
	case domain.ParticipantKindCreature, domain.ParticipantKindNPC:
		if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
			return domain.Scene{}, err
		}
	default:
		return domain.Scene{}, apperrors.New(apperrors.CodeParticipantKindInvalid, "participant kind is required")
	}

	participant, err := s.resolveParticipant(ctx, gameID, input)
	if err != nil {
		return domain.Scene{}, err
	}

	updated, err := s.mutateActiveScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		return scene.Join(participant)
	})
	if err != nil {
		return domain.Scene{}, err
	}

	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("%s joined the scene at (%d,%d).",
		participant.DisplayName, participant.Position.X, participant.Position.Y))
	return updated, nil
}

// Move repositions a participant on the active scene's grid.
//
// A self-move is bounded by the participant's speed; the game master moves
// anyone anywhere. The target cell must be free either way.
func (s *Service) Move(ctx context.Context, callerID, gameID, sceneID, participantID string, newPos grid.Position) (domain.Scene, error) {
	asGameMaster, err := s.gate.IsGameMaster(ctx, callerID, gameID)
	if err != nil {
		return domain.Scene{}, err
	}
	if !asGameMaster {
		if err := s.gate.RequireSelfOrGameMaster(ctx, callerID, participantID, gameID); err != nil {
			return domain.Scene{}, err
		}
	}

	var moved domain.Participant
	updated, err := s.mutateActiveScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		if err := scene.Move(participantID, newPos, asGameMaster); err != nil {
			return err
		}
		moved, _ = scene.Participant(participantID)
		return nil
	})
	if err != nil {
		return domain.Scene{}, err
	}

	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("%s moved to (%d,%d).",
		moved.DisplayName, newPos.X, newPos.Y))
	return updated, nil
}

// Remove takes a participant off a scene. Game master only.
func (s *Service) Remove(ctx context.Context, callerID, gameID, sceneID, participantID string) (domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return domain.Scene{}, err
	}

	var removed domain.Participant
	updated, err := s.mutateScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		participant, err := scene.Leave(participantID)
		if err != nil {
			return err
		}
		removed = participant
		return nil
	})
	if err != nil {
		return domain.Scene{}, err
	}

	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("%s has been removed from scene %q.", removed.DisplayName, updated.Name))
	return updated, nil
}

// RefreshHP reconciles every participant's scene-local HP with its
// authoritative trainer/creature/NPC record. Game master only.
//
// Damage applied outside the scene only touches the underlying records;
// refreshing pulls those values back onto the roster.
func (s *Service) RefreshHP(ctx context.Context, callerID, gameID, sceneID string) (domain.Scene, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return domain.Scene{}, err
	}

	updated, err := s.mutateScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		for i := range scene.Participants {
			hp, err := s.recordHP(ctx, scene.Participants[i])
			if err != nil {
				return err
			}
			scene.Participants[i].CurrentHP = hp
		}
		return nil
	})
	if err != nil {
		return domain.Scene{}, err
	}

	s.appendLog(ctx, gameID, updated.UpdatedAt, fmt.Sprintf("Hit points refreshed for scene %q.", updated.Name))
	return updated, nil
}

// SessionLog returns a game's session log. Game master only.
func (s *Service) SessionLog(ctx context.Context, callerID, gameID string) ([]storage.LogEntry, error) {
	if err := s.gate.RequireGameMaster(ctx, callerID, gameID); err != nil {
		return nil, err
	}
	entries, err := s.logs.ListLog(ctx, gameID)
	if err != nil {
		return nil, s.storageError("list session log", err)
	}
	return entries, nil
}

func (s *Service) resolveParticipant(ctx context.Context, gameID string, input JoinInput) (domain.Participant, error) {
	participantID := strings.TrimSpace(input.ParticipantID)
	if participantID == "" {
		return domain.Participant{}, apperrors.New(apperrors.CodeParticipantEmptyID, "participant id is required")
	}

	switch input.Kind {
	case domain.ParticipantKindTrainer:
		trainer, err := s.trainers.GetTrainer(ctx, participantID)
		if err != nil {
			return domain.Participant{}, s.recordError("trainer", participantID, err)
		}
		if trainer.GameID != gameID {
			return domain.Participant{}, recordNotInGame("trainer", participantID)
		}
		return domain.Participant{
			ID:          trainer.ID,
			DisplayName: trainer.Name,
			Kind:        domain.ParticipantKindTrainer,
			Alignment:   domain.AlignmentFriendly,
			CurrentHP:   trainer.CurrentHP,
			Speed:       trainer.Speed,
			Position:    input.Position,
		}, nil

	case domain.ParticipantKindCreature:
		creature, err := s.creatures.GetCreature(ctx, participantID)
		if err != nil {
			return domain.Participant{}, s.recordError("creature", participantID, err)
		}
		if creature.GameID != gameID {
			return domain.Participant{}, recordNotInGame("creature", participantID)
		}
		alignment := domain.AlignmentEnemy
		if creature.OwnerID != "" {
			alignment = domain.AlignmentFriendly
		}
		return domain.Participant{
			ID:          creature.ID,
			DisplayName: creatureDisplayName(creature),
			Kind:        domain.ParticipantKindCreature,
			Alignment:   alignment,
			CurrentHP:   creature.CurrentHP,
			Speed:       creature.Speed,
			Position:    input.Position,
		}, nil

	case domain.ParticipantKindNPC:
		npc, err := s.npcs.GetNPC(ctx, participantID)
		if err != nil {
			return domain.Participant{}, s.recordError("npc", participantID, err)
		}
		if npc.GameID != gameID {
			return domain.Participant{}, recordNotInGame("npc", participantID)
		}
		alignment := domain.ParseAlignment(npc.Alignment)
		if alignment == domain.AlignmentUnspecified {
			alignment = domain.AlignmentNeutral
		}
		return domain.Participant{
			ID:          npc.ID,
			DisplayName: npc.Name,
			Kind:        domain.ParticipantKindNPC,
			Alignment:   alignment,
			CurrentHP:   npc.CurrentHP,
			Speed:       npc.Speed,
			Position:    input.Position,
		}, nil
	}
	return domain.Participant{}, apperrors.New(apperrors.CodeParticipantKindInvalid, "participant kind is required")
}

// recordHP reads the authoritative HP for a participant's underlying record.
func (s *Service) recordHP(ctx context.Context, participant domain.Participant) (int, error) {
	switch participant.Kind {
	case domain.ParticipantKindTrainer:
		trainer, err := s.trainers.GetTrainer(ctx, participant.ID)
		if err != nil {
			return 0, s.recordError("trainer", participant.ID, err)
		}
		return trainer.CurrentHP, nil
	case domain.ParticipantKindCreature:
		creature, err := s.creatures.GetCreature(ctx, participant.ID)
		if err != nil {
			return 0, s.recordError("creature", participant.ID, err)
		}
		return creature.CurrentHP, nil
	case domain.ParticipantKindNPC:
		npc, err := s.npcs.GetNPC(ctx, participant.ID)
		if err != nil {
			return 0, s.recordError("npc", participant.ID, err)
		}
		return npc.CurrentHP, nil
	}
	return participant.CurrentHP, nil
}

// loadScene fetches a scene and verifies it belongs to the game. A scene ID
// from another game reads as missing, never as someone else's scene.
func (s *Service) loadScene(ctx context.Context, gameID, sceneID string) (domain.Scene, error) {
	scene, err := s.scenes.GetScene(ctx, sceneID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Scene{}, sceneNotFound(sceneID)
		}
		return domain.Scene{}, s.storageError("load scene", err)
	}
	if scene.GameID != gameID {
		return domain.Scene{}, sceneNotFound(sceneID)
	}
	return scene, nil
}

// mutateScene applies mutate to a fresh read of the scene and persists it
// conditionally. A lost race is retried once against a re-read.
func (s *Service) mutateScene(ctx context.Context, gameID, sceneID string, mutate func(*domain.Scene) error) (domain.Scene, error) {
	for attempt := 0; ; attempt++ {
		scene, err := s.loadScene(ctx, gameID, sceneID)
		if err != nil {
			return domain.Scene{}, err
		}
		if err := mutate(&scene); err != nil {
			return domain.Scene{}, err
		}
		scene.UpdatedAt = s.now().UTC()

		updated, err := s.scenes.UpdateScene(ctx, scene)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, storage.ErrRevisionMismatch) && attempt == 0 {
			continue
		}
		switch {
		case errors.Is(err, storage.ErrActiveSceneExists):
			return domain.Scene{}, apperrors.WithMetadata(apperrors.CodeSceneActiveExists,
				"another scene is already active for this game",
				map[string]string{"game_id": gameID})
		case errors.Is(err, storage.ErrNotFound):
			return domain.Scene{}, sceneNotFound(sceneID)
		default:
			return domain.Scene{}, s.storageError("update scene", err)
		}
	}
}

// mutateActiveScene is mutateScene restricted to the game's active scene.
func (s *Service) mutateActiveScene(ctx context.Context, gameID, sceneID string, mutate func(*domain.Scene) error) (domain.Scene, error) {
	return s.mutateScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		if !scene.IsActive {
			return apperrors.WithMetadata(apperrors.CodeSceneNotActive,
				"scene is not active",
				map[string]string{"scene_id": scene.ID})
		}
		return mutate(scene)
	})
}

// appendLog records a session log line. The entry carries the mutating
// call's validation time, not the append time, so concurrent mutations read
// back in causal order. Log failures are reported but never fail the
// operation that produced them.
func (s *Service) appendLog(ctx context.Context, gameID string, at time.Time, message string) {
	entry := storage.LogEntry{GameID: gameID, At: at.UTC(), Message: message}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		log.Printf("append session log for game %s: %v", gameID, err)
	}
}

func (s *Service) storageError(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorageFailure, op, err)
}

func (s *Service) recordError(kind, recordID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			kind+" record not found",
			map[string]string{"id": recordID})
	}
	return s.storageError("load "+kind, err)
}

func recordNotInGame(kind, recordID string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		kind+" record not found",
		map[string]string{"id": recordID})
}

func sceneNotFound(sceneID string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		"scene not found",
		map[string]string{"scene_id": sceneID})
}

func creatureDisplayName(creature storage.Creature) string {
	if creature.Nickname != "" {
		return creature.Nickname
	}
	return creature.SpeciesName
}
