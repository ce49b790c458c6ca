// Package access answers authorization questions for encounter operations.
//
// The gate distinguishes between the two authority levels the engine knows:
// the game master, who can stage anything, and an ordinary trainer, who can
// only act as themselves. Every answer is backed by the trainer roster.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/louisbranch/wildgrid/internal/encounter/storage"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

// Gate resolves caller identities against the trainer roster.
type Gate struct {
	trainers storage.TrainerStore
}

// NewGate returns a gate backed by the given trainer store.
func NewGate(trainers storage.TrainerStore) *Gate {
	return &Gate{trainers: trainers}
}

// RequireGameMaster verifies the caller is the game master of the given game.
func (g *Gate) RequireGameMaster(ctx context.Context, callerID, gameID string) error {
	trainer, err := g.lookup(ctx, callerID)
	if err != nil {
		return err
	}
	if !trainer.IsGameMaster || trainer.GameID != gameID {
		return apperrors.WithMetadata(apperrors.CodeNotGameMaster,
			"caller is not the game master of this game",
			map[string]string{"caller_id": callerID, "game_id": gameID})
	}
	return nil
}

// IsGameMaster reports whether the caller is the game master of the game.
func (g *Gate) IsGameMaster(ctx context.Context, callerID, gameID string) (bool, error) {
	trainer, err := g.lookup(ctx, callerID)
	if err != nil {
		return false, err
	}
	return trainer.IsGameMaster && trainer.GameID == gameID, nil
}

// RequireSelfOrGameMaster verifies the caller is either the subject trainer
// or the game master of the game.
func (g *Gate) RequireSelfOrGameMaster(ctx context.Context, callerID, subjectID, gameID string) error {
	if callerID == subjectID && strings.TrimSpace(callerID) != "" {
		return nil
	}
	gm, err := g.IsGameMaster(ctx, callerID, gameID)
	if err != nil {
		return err
	}
	if !gm {
		return apperrors.WithMetadata(apperrors.CodeNotSelf,
			"caller may only act as themselves",
			map[string]string{"caller_id": callerID, "subject_id": subjectID})
	}
	return nil
}

// RequireMember verifies the caller is a trainer in the given game.
func (g *Gate) RequireMember(ctx context.Context, callerID, gameID string) error {
	trainer, err := g.lookup(ctx, callerID)
	if err != nil {
		return err
	}
	if trainer.GameID != gameID {
		return apperrors.WithMetadata(apperrors.CodeNotSelf,
			"caller is not a trainer in this game",
			map[string]string{"caller_id": callerID, "game_id": gameID})
	}
	return nil
}

// RequireOnline verifies the trainer is currently connected.
func (g *Gate) RequireOnline(ctx context.Context, trainerID string) error {
	trainer, err := g.lookup(ctx, trainerID)
	if err != nil {
		return err
	}
	if !trainer.IsOnline {
		return apperrors.WithMetadata(apperrors.CodeTrainerOffline,
			"trainer is not connected",
			map[string]string{"trainer_id": trainerID})
	}
	return nil
}

func (g *Gate) lookup(ctx context.Context, trainerID string) (storage.Trainer, error) {
	if strings.TrimSpace(trainerID) == "" {
		return storage.Trainer{}, apperrors.New(apperrors.CodeCallerUnverified, "caller identity is required")
	}
	trainer, err := g.trainers.GetTrainer(ctx, trainerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Trainer{}, apperrors.WithMetadata(apperrors.CodeCallerUnverified,
				"caller is not a known trainer",
				map[string]string{"trainer_id": trainerID})
		}
		return storage.Trainer{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load trainer", err)
	}
	return trainer, nil
}
