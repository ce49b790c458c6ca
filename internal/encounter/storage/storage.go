// Package storage defines persistence contracts for the encounter engine.
//
// The scene document is the unit of concurrency: participant entries are
// persisted inside their scene row and never written independently.
// SceneStore.UpdateScene is conditional on the scene's revision so racing
// mutations fail cleanly instead of overwriting each other.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrActiveSceneExists indicates another scene is already active for the game.
	ErrActiveSceneExists = errors.New("active scene exists")
	// ErrRevisionMismatch indicates a conditional scene write lost a race.
	ErrRevisionMismatch = errors.New("scene revision mismatch")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// SceneStore persists scene documents.
type SceneStore interface {
	// PutScene inserts a new scene document.
	PutScene(ctx context.Context, scene domain.Scene) error
	// GetScene returns one scene by ID.
	GetScene(ctx context.Context, sceneID string) (domain.Scene, error)
	// GetActiveScene returns the unique active scene for a game.
	GetActiveScene(ctx context.Context, gameID string) (domain.Scene, error)
	// ListScenes returns every scene for a game.
	ListScenes(ctx context.Context, gameID string) ([]domain.Scene, error)
	// UpdateScene replaces a scene document when the persisted revision still
	// matches scene.Revision, and returns the scene with its new revision.
	UpdateScene(ctx context.Context, scene domain.Scene) (domain.Scene, error)
	// DeleteScene removes one scene.
	DeleteScene(ctx context.Context, sceneID string) error
	// DeleteScenesByGame removes every scene for a game.
	DeleteScenesByGame(ctx context.Context, gameID string) error
}

// Trainer stores one player record.
type Trainer struct {
	ID           string
	GameID       string
	Name         string
	IsGameMaster bool
	IsOnline     bool
	CurrentHP    int
	Speed        int
}

// TrainerStore persists trainer records.
type TrainerStore interface {
	PutTrainer(ctx context.Context, trainer Trainer) error
	GetTrainer(ctx context.Context, trainerID string) (Trainer, error)
}

// Creature stores one creature record, wild or owned.
type Creature struct {
	ID           string
	GameID       string
	SpeciesName  string
	Nickname     string
	SpeciesTypes []string
	WeightClass  int
	CurrentHP    int
	Speed        int
	Status       string
	DexNumber    int
	OwnerID      string // empty while wild
	CaughtBall   string // ball that caught it, empty while wild
	TeamSlot     int    // 1-6 on the active team, 0 when boxed or wild
}

// MaxTeamSize is the largest active team a trainer can field.
const MaxTeamSize = 6

// CreatureStore persists creature records.
type CreatureStore interface {
	PutCreature(ctx context.Context, creature Creature) error
	GetCreature(ctx context.Context, creatureID string) (Creature, error)
	// CountTeam returns how many creatures occupy the owner's active team.
	CountTeam(ctx context.Context, ownerID string) (int, error)
}

// NPC stores one non-player character record.
type NPC struct {
	ID        string
	GameID    string
	Name      string
	Alignment string
	CurrentHP int
	Speed     int
}

// NPCStore persists NPC records.
type NPCStore interface {
	PutNPC(ctx context.Context, npc NPC) error
	GetNPC(ctx context.Context, npcID string) (NPC, error)
}

// LogEntry is one human-readable session log line.
type LogEntry struct {
	GameID  string
	At      time.Time
	Message string
}

// LogStore appends and reads the per-game session log.
type LogStore interface {
	// AppendLog records one entry. Entries are ordered by their At timestamp.
	AppendLog(ctx context.Context, entry LogEntry) error
	// ListLog returns a game's log entries in timestamp order.
	ListLog(ctx context.Context, gameID string) ([]LogEntry, error)
}

// DexStore tracks which species each trainer has caught.
type DexStore interface {
	// HasBeenCaught reports whether the trainer ever caught the species.
	HasBeenCaught(ctx context.Context, trainerID string, dexNumber int) (bool, error)
	// RecordCaught marks the species as caught by the trainer.
	RecordCaught(ctx context.Context, trainerID string, dexNumber int, at time.Time) error
}
