package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 14, 15, 0, 0, 0, time.UTC)
}

func fixedID() (string, error) {
	return "scene-1", nil
}

func trainerAt(id string, x, y, speed int) Participant {
	return Participant{
		ID:          id,
		DisplayName: id,
		Kind:        ParticipantKindTrainer,
		CurrentHP:   20,
		Speed:       speed,
		Position:    grid.Position{X: x, Y: y},
	}
}

func TestCreateScene(t *testing.T) {
	scene, err := CreateScene(CreateSceneInput{
		GameID:          "game-1",
		Name:            "  Viridian Cave  ",
		Kind:            SceneKindHostile,
		EnvironmentTags: []string{" Cave ", ""},
		ShopRefs:        []string{"shop-1"},
	}, fixedNow, fixedID)
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}

	if scene.ID != "scene-1" {
		t.Fatalf("id = %q, want scene-1", scene.ID)
	}
	if scene.Name != "Viridian Cave" {
		t.Fatalf("name = %q, want trimmed", scene.Name)
	}
	if scene.IsActive {
		t.Fatal("new scenes must start inactive")
	}
	if len(scene.Participants) != 0 {
		t.Fatal("new scenes must start with an empty roster")
	}
	if len(scene.EnvironmentTags) != 1 || scene.EnvironmentTags[0] != "cave" {
		t.Fatalf("environment tags = %v, want [cave]", scene.EnvironmentTags)
	}
	if !scene.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %v, want %v", scene.CreatedAt, fixedNow())
	}
}

func TestCreateSceneValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateSceneInput
		code  apperrors.Code
	}{
		{"empty game id", CreateSceneInput{Name: "Cave", Kind: SceneKindHostile}, apperrors.CodeSceneEmptyGameID},
		{"empty name", CreateSceneInput{GameID: "game-1", Kind: SceneKindHostile}, apperrors.CodeSceneNameInvalid},
		{"name too long", CreateSceneInput{GameID: "game-1", Name: strings.Repeat("x", 31), Kind: SceneKindHostile}, apperrors.CodeSceneNameInvalid},
		{"unspecified kind", CreateSceneInput{GameID: "game-1", Name: "Cave"}, apperrors.CodeSceneKindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateScene(tt.input, fixedNow, fixedID)
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestCreateSceneAcceptsMaxLengthName(t *testing.T) {
	_, err := CreateScene(CreateSceneInput{
		GameID: "game-1",
		Name:   strings.Repeat("x", MaxSceneNameLength),
		Kind:   SceneKindHybrid,
	}, fixedNow, fixedID)
	if err != nil {
		t.Fatalf("expected 30-character name to be accepted, got %v", err)
	}
}

func TestParseSceneKind(t *testing.T) {
	tests := []struct {
		value string
		want  SceneKind
	}{
		{"hostile", SceneKindHostile},
		{"Hostile", SceneKindHostile},
		{"non-hostile", SceneKindNonHostile},
		{"nonhostile", SceneKindNonHostile},
		{"hybrid", SceneKindHybrid},
		{"combat", SceneKindUnspecified},
		{"", SceneKindUnspecified},
	}
	for _, tt := range tests {
		if got := ParseSceneKind(tt.value); got != tt.want {
			t.Fatalf("ParseSceneKind(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestJoinRejectsDuplicateParticipant(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 3)); err != nil {
		t.Fatalf("first join: %v", err)
	}

	err := scene.Join(trainerAt("trainer-1", 5, 5, 3))
	if !apperrors.IsCode(err, apperrors.CodeParticipantAlreadyJoined) {
		t.Fatalf("expected PARTICIPANT_ALREADY_JOINED, got %v", err)
	}
	if len(scene.Participants) != 1 {
		t.Fatalf("roster size = %d, want 1", len(scene.Participants))
	}
}

func TestJoinRejectsOccupiedCell(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 1, 1, 3)); err != nil {
		t.Fatalf("first join: %v", err)
	}

	err := scene.Join(trainerAt("trainer-2", 1, 1, 3))
	if !apperrors.IsCode(err, apperrors.CodePositionOccupied) {
		t.Fatalf("expected POSITION_OCCUPIED, got %v", err)
	}
	if len(scene.Participants) != 1 {
		t.Fatalf("roster size = %d, want 1", len(scene.Participants))
	}
}

func TestJoinValidatesParticipant(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}

	err := scene.Join(Participant{Kind: ParticipantKindTrainer})
	if !apperrors.IsCode(err, apperrors.CodeParticipantEmptyID) {
		t.Fatalf("expected PARTICIPANT_EMPTY_ID, got %v", err)
	}

	err = scene.Join(Participant{ID: "creature-1", Kind: ParticipantKindCreature})
	if !apperrors.IsCode(err, apperrors.CodeParticipantKindInvalid) {
		t.Fatalf("expected alignment requirement for creatures, got %v", err)
	}
}

func TestLeave(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 3)); err != nil {
		t.Fatalf("join: %v", err)
	}

	removed, err := scene.Leave("trainer-1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if removed.ID != "trainer-1" {
		t.Fatalf("removed id = %q, want trainer-1", removed.ID)
	}
	if len(scene.Participants) != 0 {
		t.Fatal("expected empty roster after leave")
	}

	_, err = scene.Leave("trainer-1")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for absent participant, got %v", err)
	}
}

func TestMoveWithinSpeedBudget(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 3)); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Distance (0,0)->(2,2) is ~2.83, inside a speed-3 budget.
	if err := scene.Move("trainer-1", grid.Position{X: 2, Y: 2}, false); err != nil {
		t.Fatalf("move to (2,2): %v", err)
	}

	// Distance (2,2)->(5,5) is ~4.24, over budget.
	err := scene.Move("trainer-1", grid.Position{X: 5, Y: 5}, false)
	if !apperrors.IsCode(err, apperrors.CodeMoveOutOfRange) {
		t.Fatalf("expected MOVE_OUT_OF_RANGE, got %v", err)
	}
	if got, _ := scene.Participant("trainer-1"); got.Position != (grid.Position{X: 2, Y: 2}) {
		t.Fatalf("rejected move must not change position, got %v", got.Position)
	}
}

func TestMoveBoundaryExactlyAtSpeed(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 3)); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Distance exactly 3 succeeds.
	if err := scene.Move("trainer-1", grid.Position{X: 3, Y: 0}, false); err != nil {
		t.Fatalf("move at exact speed: %v", err)
	}
	// One unit further fails.
	err := scene.Move("trainer-1", grid.Position{X: 7, Y: 0}, false)
	if !apperrors.IsCode(err, apperrors.CodeMoveOutOfRange) {
		t.Fatalf("expected MOVE_OUT_OF_RANGE one unit over, got %v", err)
	}
}

func TestMoveAsGameMasterIgnoresSpeed(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 1)); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := scene.Move("trainer-1", grid.Position{X: 20, Y: 20}, true); err != nil {
		t.Fatalf("gm move: %v", err)
	}
}

func TestMoveRejectsOccupiedCellEvenForGameMaster(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 0, 0, 3)); err != nil {
		t.Fatalf("join trainer-1: %v", err)
	}
	if err := scene.Join(trainerAt("trainer-2", 1, 0, 3)); err != nil {
		t.Fatalf("join trainer-2: %v", err)
	}

	err := scene.Move("trainer-1", grid.Position{X: 1, Y: 0}, true)
	if !apperrors.IsCode(err, apperrors.CodePositionOccupied) {
		t.Fatalf("expected POSITION_OCCUPIED, got %v", err)
	}
}

func TestMoveToOwnCellSucceeds(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	if err := scene.Join(trainerAt("trainer-1", 2, 2, 3)); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Standing still is not an occupancy conflict with yourself.
	if err := scene.Move("trainer-1", grid.Position{X: 2, Y: 2}, false); err != nil {
		t.Fatalf("move in place: %v", err)
	}
}

func TestMoveUnknownParticipant(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	err := scene.Move("ghost", grid.Position{X: 0, Y: 0}, false)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestNoTwoParticipantsShareACellAfterMutations(t *testing.T) {
	scene := Scene{ID: "scene-1", GameID: "game-1"}
	placements := []Participant{
		trainerAt("trainer-1", 0, 0, 10),
		trainerAt("trainer-2", 1, 0, 10),
		trainerAt("trainer-3", 0, 1, 10),
	}
	for _, p := range placements {
		if err := scene.Join(p); err != nil {
			t.Fatalf("join %s: %v", p.ID, err)
		}
	}

	moves := []struct {
		id string
		to grid.Position
	}{
		{"trainer-1", grid.Position{X: 5, Y: 5}},
		{"trainer-2", grid.Position{X: 0, Y: 0}},
		{"trainer-3", grid.Position{X: 5, Y: 5}}, // now occupied by trainer-1
		{"trainer-3", grid.Position{X: 1, Y: 1}},
	}
	for _, m := range moves {
		err := scene.Move(m.id, m.to, false)
		if err != nil && !errors.Is(err, apperrors.New(apperrors.CodePositionOccupied, "")) {
			t.Fatalf("move %s: %v", m.id, err)
		}
	}

	seen := make(map[grid.Position]string)
	for _, p := range scene.Participants {
		if other, ok := seen[p.Position]; ok {
			t.Fatalf("participants %s and %s share cell %v", other, p.ID, p.Position)
		}
		seen[p.Position] = p.ID
	}
}
