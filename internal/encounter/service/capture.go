package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/wildgrid/internal/encounter/capture"
	"github.com/louisbranch/wildgrid/internal/encounter/domain"
	"github.com/louisbranch/wildgrid/internal/encounter/storage"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

// CaptureInput describes one capture attempt against a wild creature.
type CaptureInput struct {
	CreatureID string
	Ball       string
	CatchRate  int    // species catch rate, 1-255
	Nickname   string // optional, applied on success
}

// CaptureResult reports the resolved attempt and its side effects.
type CaptureResult struct {
	Success  bool
	Roll     int
	Modifier int
	Check    int
	TeamSlot int // 1-6 when the creature joined the team, 0 when boxed or free
	Scene    domain.Scene
}

// Capture resolves a capture attempt by the calling trainer.
//
// The target must be a wild creature on the game's active scene. On success
// the creature record flips to the thrower (ball recorded, team slot
// auto-assigned while the team has room, nickname applied) and the species
// is marked in the thrower's dex. Either outcome appends exactly one
// session log line.
func (s *Service) Capture(ctx context.Context, callerID, gameID, sceneID string, input CaptureInput) (CaptureResult, error) {
	if err := s.gate.RequireMember(ctx, callerID, gameID); err != nil {
		return CaptureResult{}, err
	}
	if err := s.gate.RequireOnline(ctx, callerID); err != nil {
		return CaptureResult{}, err
	}

	if input.CatchRate < 1 || input.CatchRate > 255 {
		return CaptureResult{}, apperrors.WithMetadata(apperrors.CodeCaptureInvalidCatchRate,
			"catch rate must be between 1 and 255",
			map[string]string{"catch_rate": fmt.Sprintf("%d", input.CatchRate)})
	}
	ball := capture.ParseBall(input.Ball)
	if ball == capture.BallUnspecified {
		return CaptureResult{}, apperrors.WithMetadata(apperrors.CodeCaptureUnknownBall,
			"unknown ball",
			map[string]string{"ball": input.Ball})
	}

	scene, err := s.loadScene(ctx, gameID, sceneID)
	if err != nil {
		return CaptureResult{}, err
	}
	if !scene.IsActive {
		return CaptureResult{}, apperrors.WithMetadata(apperrors.CodeSceneNotActive,
			"scene is not active",
			map[string]string{"scene_id": sceneID})
	}
	participant, ok := scene.Participant(input.CreatureID)
	if !ok || participant.Kind != domain.ParticipantKindCreature {
		return CaptureResult{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			"creature is not in the scene",
			map[string]string{"creature_id": input.CreatureID})
	}

	creature, err := s.creatures.GetCreature(ctx, input.CreatureID)
	if err != nil {
		return CaptureResult{}, s.recordError("creature", input.CreatureID, err)
	}
	if creature.OwnerID != "" {
		return CaptureResult{}, apperrors.WithMetadata(apperrors.CodeCreatureAlreadyOwned,
			"creature already has an owner",
			map[string]string{"creature_id": creature.ID, "owner_id": creature.OwnerID})
	}

	caughtBefore, err := s.dex.HasBeenCaught(ctx, callerID, creature.DexNumber)
	if err != nil {
		return CaptureResult{}, s.storageError("read dex history", err)
	}

	seed, err := s.newSeed()
	if err != nil {
		return CaptureResult{}, apperrors.Wrap(apperrors.CodeUnknown, "generate capture seed", err)
	}

	// Every check has passed; the attempt happens now as far as the log
	// is concerned, whichever way the ball rolls. The record's HP drives
	// the downed-target rule: damage applied outside the scene does not
	// touch the roster's cached value.
	at := s.now().UTC()

	resolved := capture.ResolveAttempt(capture.Attempt{
		Target: capture.Target{
			SpeciesTypes: creature.SpeciesTypes,
			WeightClass:  creature.WeightClass,
			CurrentHP:    creature.CurrentHP,
			Status:       capture.Status(creature.Status),
			DexNumber:    creature.DexNumber,
		},
		Ball:            ball,
		EnvironmentTags: scene.EnvironmentTags,
		CaughtBefore:    caughtBefore,
		CatchRate:       input.CatchRate,
		Seed:            seed,
	})

	thrower, err := s.trainers.GetTrainer(ctx, callerID)
	if err != nil {
		return CaptureResult{}, s.recordError("trainer", callerID, err)
	}

	result := CaptureResult{
		Success:  resolved.Success,
		Roll:     resolved.Roll,
		Modifier: resolved.Modifier,
		Check:    resolved.Check,
		Scene:    scene,
	}

	if !resolved.Success {
		s.appendLog(ctx, gameID, at, fmt.Sprintf("%s threw a %s ball at %s, but it broke free.",
			thrower.Name, ball, creatureDisplayName(creature)))
		return result, nil
	}

	teamSlot, err := s.applyCapture(ctx, callerID, creature, ball, input.Nickname)
	if err != nil {
		return CaptureResult{}, err
	}
	result.TeamSlot = teamSlot

	// The captured creature stays on the roster with its allegiance flipped.
	updated, err := s.mutateActiveScene(ctx, gameID, sceneID, func(scene *domain.Scene) error {
		for i := range scene.Participants {
			if scene.Participants[i].ID == creature.ID {
				scene.Participants[i].Alignment = domain.AlignmentFriendly
				if input.Nickname != "" {
					scene.Participants[i].DisplayName = strings.TrimSpace(input.Nickname)
				}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return CaptureResult{}, err
	}
	result.Scene = updated

	s.appendLog(ctx, gameID, at, fmt.Sprintf("%s caught %s with a %s ball!",
		thrower.Name, creatureDisplayName(creature), ball))
	return result, nil
}

// applyCapture rewrites the creature record for its new owner and records
// the species in the thrower's dex. Returns the assigned team slot, 0 when
// the team is full and the creature is boxed.
func (s *Service) applyCapture(ctx context.Context, ownerID string, creature storage.Creature, ball capture.Ball, nickname string) (int, error) {
	teamSize, err := s.creatures.CountTeam(ctx, ownerID)
	if err != nil {
		return 0, s.storageError("count team", err)
	}
	teamSlot := 0
	if teamSize < storage.MaxTeamSize {
		teamSlot = teamSize + 1
	}

	creature.OwnerID = ownerID
	creature.CaughtBall = ball.String()
	creature.TeamSlot = teamSlot
	if nickname = strings.TrimSpace(nickname); nickname != "" {
		creature.Nickname = nickname
	}
	if err := s.creatures.PutCreature(ctx, creature); err != nil {
		return 0, s.storageError("record capture", err)
	}
	if err := s.dex.RecordCaught(ctx, ownerID, creature.DexNumber, s.now().UTC()); err != nil {
		return 0, s.storageError("record dex entry", err)
	}
	return teamSlot, nil
}
