package service

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/wildgrid/internal/encounter/capture"
	"github.com/louisbranch/wildgrid/internal/encounter/domain"
	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	"github.com/louisbranch/wildgrid/internal/encounter/storage"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

// stageWildEncounter activates a scene with trainer-1 and the wild creature
// on the grid, ready for a capture attempt.
func (f *fixture) stageWildEncounter(t *testing.T) domain.Scene {
	t.Helper()
	ctx := context.Background()
	scene := f.stageScene(t)
	if _, err := f.service.Join(ctx, "trainer-1", "game-1", scene.ID, JoinInput{
		ParticipantID: "trainer-1",
		Kind:          domain.ParticipantKindTrainer,
		Position:      grid.Position{X: 0, Y: 0},
	}); err != nil {
		t.Fatalf("Join() trainer error = %v", err)
	}
	scene, err := f.service.Join(ctx, "gm-1", "game-1", scene.ID, JoinInput{
		ParticipantID: "creature-1",
		Kind:          domain.ParticipantKindCreature,
		Position:      grid.Position{X: 3, Y: 3},
	})
	if err != nil {
		t.Fatalf("Join() creature error = %v", err)
	}
	return scene
}

func TestCaptureSuccessSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	// A master ball succeeds for any legal catch rate.
	result, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1",
		Ball:       "master",
		CatchRate:  1,
		Nickname:   "Gale",
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Capture() with master ball success = false, result %+v", result)
	}
	if result.TeamSlot != 1 {
		t.Errorf("Capture() team slot = %d, want 1", result.TeamSlot)
	}

	creature := f.creatures.creatures["creature-1"]
	if creature.OwnerID != "trainer-1" || creature.CaughtBall != "master" || creature.Nickname != "Gale" {
		t.Errorf("Capture() creature record = %+v", creature)
	}

	caught, err := f.dex.HasBeenCaught(ctx, "trainer-1", 17)
	if err != nil {
		t.Fatalf("HasBeenCaught() error = %v", err)
	}
	if !caught {
		t.Error("Capture() did not record the dex entry")
	}

	participant, ok := result.Scene.Participant("creature-1")
	if !ok {
		t.Fatal("Capture() removed the creature from the roster")
	}
	if participant.Alignment != domain.AlignmentFriendly {
		t.Errorf("Capture() roster alignment = %v, want friendly", participant.Alignment)
	}
	if participant.DisplayName != "Gale" {
		t.Errorf("Capture() roster name = %q, want Gale", participant.DisplayName)
	}

	entries, _ := f.logs.ListLog(ctx, "game-1")
	last := entries[len(entries)-1]
	if !strings.Contains(last.Message, "caught") {
		t.Errorf("Capture() log line = %q, want a caught line", last.Message)
	}
}

func TestCaptureFailureLeavesCreatureWild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	// A basic ball against catch rate 1 can never land: the lowest possible
	// check is the minimum roll of 1.
	result, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1",
		Ball:       "basic",
		CatchRate:  1,
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if result.Success {
		t.Fatalf("Capture() basic ball at catch rate 1 success = true, result %+v", result)
	}
	if result.TeamSlot != 0 {
		t.Errorf("Capture() failed attempt team slot = %d, want 0", result.TeamSlot)
	}

	creature := f.creatures.creatures["creature-1"]
	if creature.OwnerID != "" {
		t.Errorf("Capture() failed attempt owner = %q, want wild", creature.OwnerID)
	}

	entries, _ := f.logs.ListLog(ctx, "game-1")
	last := entries[len(entries)-1]
	if !strings.Contains(last.Message, "broke free") {
		t.Errorf("Capture() log line = %q, want a broke-free line", last.Message)
	}
}

func TestCaptureValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	tests := []struct {
		name     string
		input    CaptureInput
		wantCode apperrors.Code
	}{
		{
			name:     "catch rate too low",
			input:    CaptureInput{CreatureID: "creature-1", Ball: "basic", CatchRate: 0},
			wantCode: apperrors.CodeCaptureInvalidCatchRate,
		},
		{
			name:     "catch rate too high",
			input:    CaptureInput{CreatureID: "creature-1", Ball: "basic", CatchRate: 256},
			wantCode: apperrors.CodeCaptureInvalidCatchRate,
		},
		{
			name:     "unknown ball",
			input:    CaptureInput{CreatureID: "creature-1", Ball: "beast", CatchRate: 100},
			wantCode: apperrors.CodeCaptureUnknownBall,
		},
		{
			name:     "creature not in scene",
			input:    CaptureInput{CreatureID: "creature-9", Ball: "basic", CatchRate: 100},
			wantCode: apperrors.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, tt.input)
			if !apperrors.IsCode(err, tt.wantCode) {
				t.Errorf("Capture() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestCaptureOwnedCreature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	if _, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1", Ball: "master", CatchRate: 100,
	}); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	_, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1", Ball: "master", CatchRate: 100,
	})
	if !apperrors.IsCode(err, apperrors.CodeCreatureAlreadyOwned) {
		t.Errorf("Capture() owned creature error = %v, want CREATURE_ALREADY_OWNED", err)
	}
}

func TestCaptureDownedCreatureUsesRecordHP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	// Damage lands on the record outside the scene; the roster still
	// caches the HP it had at join time.
	downed := f.creatures.creatures["creature-1"]
	downed.CurrentHP = 0
	f.creatures.creatures["creature-1"] = downed

	result, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1", Ball: "master", CatchRate: 255,
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if result.Success {
		t.Error("Capture() succeeded against a downed creature")
	}
	if result.Modifier != capture.ModifierImpossible {
		t.Errorf("Capture() modifier = %d, want %d", result.Modifier, capture.ModifierImpossible)
	}
	if got := f.creatures.creatures["creature-1"].OwnerID; got != "" {
		t.Errorf("creature owner = %q, want wild", got)
	}
}

func TestCaptureOfflineThrower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	_, err := f.service.Capture(ctx, "trainer-2", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1", Ball: "basic", CatchRate: 100,
	})
	if !apperrors.IsCode(err, apperrors.CodeTrainerOffline) {
		t.Errorf("Capture() offline thrower error = %v, want TRAINER_OFFLINE", err)
	}
}

func TestCaptureFullTeamBoxesCreature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scene := f.stageWildEncounter(t)

	for i := 1; i <= storage.MaxTeamSize; i++ {
		f.creatures.creatures["team-"+string(rune('0'+i))] = storage.Creature{
			ID:       "team-" + string(rune('0'+i)),
			GameID:   "game-1",
			OwnerID:  "trainer-1",
			TeamSlot: i,
		}
	}

	result, err := f.service.Capture(ctx, "trainer-1", "game-1", scene.ID, CaptureInput{
		CreatureID: "creature-1", Ball: "master", CatchRate: 100,
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if !result.Success {
		t.Fatal("Capture() with master ball success = false")
	}
	if result.TeamSlot != 0 {
		t.Errorf("Capture() with full team slot = %d, want 0 (boxed)", result.TeamSlot)
	}

	creature := f.creatures.creatures["creature-1"]
	if creature.OwnerID != "trainer-1" || creature.TeamSlot != 0 {
		t.Errorf("Capture() boxed record = %+v", creature)
	}
}
