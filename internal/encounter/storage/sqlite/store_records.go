package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/storage"
)

// PutTrainer inserts or replaces a trainer record.
func (s *Store) PutTrainer(ctx context.Context, trainer storage.Trainer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(trainer.ID) == "" {
		return fmt.Errorf("trainer id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO trainers (id, game_id, name, is_game_master, is_online, current_hp, speed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   game_id = excluded.game_id,
		   name = excluded.name,
		   is_game_master = excluded.is_game_master,
		   is_online = excluded.is_online,
		   current_hp = excluded.current_hp,
		   speed = excluded.speed`,
		trainer.ID,
		trainer.GameID,
		trainer.Name,
		boolToInt(trainer.IsGameMaster),
		boolToInt(trainer.IsOnline),
		trainer.CurrentHP,
		trainer.Speed,
	)
	if err != nil {
		return fmt.Errorf("put trainer: %w", err)
	}
	return nil
}

// GetTrainer returns one trainer by ID.
func (s *Store) GetTrainer(ctx context.Context, trainerID string) (storage.Trainer, error) {
	if err := ctx.Err(); err != nil {
		return storage.Trainer{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Trainer{}, fmt.Errorf("storage is not configured")
	}
	trainerID = strings.TrimSpace(trainerID)
	if trainerID == "" {
		return storage.Trainer{}, fmt.Errorf("trainer id is required")
	}

	var trainer storage.Trainer
	var isGameMaster, isOnline int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, game_id, name, is_game_master, is_online, current_hp, speed
		   FROM trainers WHERE id = ?`,
		trainerID,
	).Scan(
		&trainer.ID,
		&trainer.GameID,
		&trainer.Name,
		&isGameMaster,
		&isOnline,
		&trainer.CurrentHP,
		&trainer.Speed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Trainer{}, storage.ErrNotFound
		}
		return storage.Trainer{}, fmt.Errorf("get trainer: %w", err)
	}
	trainer.IsGameMaster = isGameMaster != 0
	trainer.IsOnline = isOnline != 0
	return trainer, nil
}

// PutCreature inserts or replaces a creature record.
//
// Replacement is intentional: a successful capture rewrites the same record
// with its new owner, ball, and team slot.
func (s *Store) PutCreature(ctx context.Context, creature storage.Creature) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(creature.ID) == "" {
		return fmt.Errorf("creature id is required")
	}

	speciesTypes, err := json.Marshal(creature.SpeciesTypes)
	if err != nil {
		return fmt.Errorf("marshal species types: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO creatures (
		   id, game_id, species_name, nickname, species_types, weight_class,
		   current_hp, speed, status, dex_number, owner_id, caught_ball, team_slot
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   game_id = excluded.game_id,
		   species_name = excluded.species_name,
		   nickname = excluded.nickname,
		   species_types = excluded.species_types,
		   weight_class = excluded.weight_class,
		   current_hp = excluded.current_hp,
		   speed = excluded.speed,
		   status = excluded.status,
		   dex_number = excluded.dex_number,
		   owner_id = excluded.owner_id,
		   caught_ball = excluded.caught_ball,
		   team_slot = excluded.team_slot`,
		creature.ID,
		creature.GameID,
		creature.SpeciesName,
		creature.Nickname,
		string(speciesTypes),
		creature.WeightClass,
		creature.CurrentHP,
		creature.Speed,
		creature.Status,
		creature.DexNumber,
		creature.OwnerID,
		creature.CaughtBall,
		creature.TeamSlot,
	)
	if err != nil {
		return fmt.Errorf("put creature: %w", err)
	}
	return nil
}

// GetCreature returns one creature by ID.
func (s *Store) GetCreature(ctx context.Context, creatureID string) (storage.Creature, error) {
	if err := ctx.Err(); err != nil {
		return storage.Creature{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Creature{}, fmt.Errorf("storage is not configured")
	}
	creatureID = strings.TrimSpace(creatureID)
	if creatureID == "" {
		return storage.Creature{}, fmt.Errorf("creature id is required")
	}

	var creature storage.Creature
	var speciesTypes string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, game_id, species_name, nickname, species_types, weight_class,
		        current_hp, speed, status, dex_number, owner_id, caught_ball, team_slot
		   FROM creatures WHERE id = ?`,
		creatureID,
	).Scan(
		&creature.ID,
		&creature.GameID,
		&creature.SpeciesName,
		&creature.Nickname,
		&speciesTypes,
		&creature.WeightClass,
		&creature.CurrentHP,
		&creature.Speed,
		&creature.Status,
		&creature.DexNumber,
		&creature.OwnerID,
		&creature.CaughtBall,
		&creature.TeamSlot,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Creature{}, storage.ErrNotFound
		}
		return storage.Creature{}, fmt.Errorf("get creature: %w", err)
	}
	if err := json.Unmarshal([]byte(speciesTypes), &creature.SpeciesTypes); err != nil {
		return storage.Creature{}, fmt.Errorf("unmarshal species types: %w", err)
	}
	return creature, nil
}

// CountTeam returns how many creatures occupy the owner's active team.
func (s *Store) CountTeam(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, fmt.Errorf("owner id is required")
	}

	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM creatures WHERE owner_id = ? AND team_slot > 0`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count team: %w", err)
	}
	return count, nil
}

// PutNPC inserts or replaces an NPC record.
func (s *Store) PutNPC(ctx context.Context, npc storage.NPC) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(npc.ID) == "" {
		return fmt.Errorf("npc id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO npcs (id, game_id, name, alignment, current_hp, speed)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   game_id = excluded.game_id,
		   name = excluded.name,
		   alignment = excluded.alignment,
		   current_hp = excluded.current_hp,
		   speed = excluded.speed`,
		npc.ID,
		npc.GameID,
		npc.Name,
		npc.Alignment,
		npc.CurrentHP,
		npc.Speed,
	)
	if err != nil {
		return fmt.Errorf("put npc: %w", err)
	}
	return nil
}

// GetNPC returns one NPC by ID.
func (s *Store) GetNPC(ctx context.Context, npcID string) (storage.NPC, error) {
	if err := ctx.Err(); err != nil {
		return storage.NPC{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NPC{}, fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return storage.NPC{}, fmt.Errorf("npc id is required")
	}

	var npc storage.NPC
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, game_id, name, alignment, current_hp, speed FROM npcs WHERE id = ?`,
		npcID,
	).Scan(&npc.ID, &npc.GameID, &npc.Name, &npc.Alignment, &npc.CurrentHP, &npc.Speed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NPC{}, storage.ErrNotFound
		}
		return storage.NPC{}, fmt.Errorf("get npc: %w", err)
	}
	return npc, nil
}

// AppendLog records one session log entry.
func (s *Store) AppendLog(ctx context.Context, entry storage.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.GameID) == "" {
		return fmt.Errorf("game id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO session_log (game_id, at, message) VALUES (?, ?, ?)`,
		entry.GameID,
		toMillis(entry.At),
		entry.Message,
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// ListLog returns a game's log entries in timestamp order.
func (s *Store) ListLog(ctx context.Context, gameID string) ([]storage.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT game_id, at, message FROM session_log WHERE game_id = ? ORDER BY at ASC, id ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	entries := []storage.LogEntry{}
	for rows.Next() {
		var entry storage.LogEntry
		var at int64
		if err := rows.Scan(&entry.GameID, &at, &entry.Message); err != nil {
			return nil, fmt.Errorf("list log: %w", err)
		}
		entry.At = fromMillis(at)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	return entries, nil
}

// HasBeenCaught reports whether the trainer ever caught the species.
func (s *Store) HasBeenCaught(ctx context.Context, trainerID string, dexNumber int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	trainerID = strings.TrimSpace(trainerID)
	if trainerID == "" {
		return false, fmt.Errorf("trainer id is required")
	}

	var one int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM dex_records WHERE trainer_id = ? AND dex_number = ?`,
		trainerID,
		dexNumber,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("has been caught: %w", err)
	}
	return true, nil
}

// RecordCaught marks the species as caught by the trainer. Recording the same
// species twice keeps the first caught_at.
func (s *Store) RecordCaught(ctx context.Context, trainerID string, dexNumber int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	trainerID = strings.TrimSpace(trainerID)
	if trainerID == "" {
		return fmt.Errorf("trainer id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO dex_records (trainer_id, dex_number, caught_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(trainer_id, dex_number) DO NOTHING`,
		trainerID,
		dexNumber,
		toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("record caught: %w", err)
	}
	return nil
}
