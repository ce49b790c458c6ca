package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/domain"
	"github.com/louisbranch/wildgrid/internal/encounter/storage"
)

const sceneColumns = `id, game_id, name, kind, is_active,
       participants, environment_tags, shop_refs,
       revision, created_at, updated_at`

// PutScene inserts a new scene document.
func (s *Store) PutScene(ctx context.Context, scene domain.Scene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(scene.ID) == "" {
		return fmt.Errorf("scene id is required")
	}

	participants, tags, refs, err := marshalSceneColumns(scene)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO scenes (
		   id, game_id, name, kind, is_active,
		   participants, environment_tags, shop_refs,
		   revision, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		scene.ID,
		scene.GameID,
		scene.Name,
		int(scene.Kind),
		boolToInt(scene.IsActive),
		participants,
		tags,
		refs,
		toMillis(scene.CreatedAt),
		toMillis(scene.UpdatedAt),
	)
	if err != nil {
		if isActiveSceneViolation(err) {
			return storage.ErrActiveSceneExists
		}
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put scene: %w", err)
	}
	return nil
}

// GetScene returns one scene by ID.
func (s *Store) GetScene(ctx context.Context, sceneID string) (domain.Scene, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scene{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Scene{}, fmt.Errorf("storage is not configured")
	}
	sceneID = strings.TrimSpace(sceneID)
	if sceneID == "" {
		return domain.Scene{}, fmt.Errorf("scene id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE id = ?`,
		sceneID,
	)
	return scanScene(row)
}

// GetActiveScene returns the unique active scene for a game.
func (s *Store) GetActiveScene(ctx context.Context, gameID string) (domain.Scene, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scene{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Scene{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return domain.Scene{}, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE game_id = ? AND is_active = 1`,
		gameID,
	)
	return scanScene(row)
}

// ListScenes returns every scene for a game ordered by creation time.
func (s *Store) ListScenes(ctx context.Context, gameID string) ([]domain.Scene, error) {
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
		`SELECT `+sceneColumns+` FROM scenes WHERE game_id = ? ORDER BY created_at ASC, id ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	scenes := []domain.Scene{}
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("list scenes: %w", err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return scenes, nil
}

// UpdateScene replaces a scene document conditionally on its revision.
//
// The write succeeds only when the persisted revision still matches
// scene.Revision; a lost race surfaces as ErrRevisionMismatch so the caller
// can re-read and retry.
func (s *Store) UpdateScene(ctx context.Context, scene domain.Scene) (domain.Scene, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scene{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Scene{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(scene.ID) == "" {
		return domain.Scene{}, fmt.Errorf("scene id is required")
	}

	participants, tags, refs, err := marshalSceneColumns(scene)
	if err != nil {
		return domain.Scene{}, err
	}

	updatedAt := time.Now().UTC()
	if !scene.UpdatedAt.IsZero() {
		updatedAt = scene.UpdatedAt.UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE scenes
		    SET name = ?, kind = ?, is_active = ?,
		        participants = ?, environment_tags = ?, shop_refs = ?,
		        revision = revision + 1, updated_at = ?
		  WHERE id = ? AND revision = ?`,
		scene.Name,
		int(scene.Kind),
		boolToInt(scene.IsActive),
		participants,
		tags,
		refs,
		toMillis(updatedAt),
		scene.ID,
		scene.Revision,
	)
	if err != nil {
		if isActiveSceneViolation(err) {
			return domain.Scene{}, storage.ErrActiveSceneExists
		}
		return domain.Scene{}, fmt.Errorf("update scene: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Scene{}, fmt.Errorf("update scene: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing scene.
		if _, getErr := s.GetScene(ctx, scene.ID); getErr != nil {
			return domain.Scene{}, getErr
		}
		return domain.Scene{}, storage.ErrRevisionMismatch
	}

	scene.Revision++
	scene.UpdatedAt = updatedAt
	return scene, nil
}

// DeleteScene removes one scene.
func (s *Store) DeleteScene(ctx context.Context, sceneID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sceneID = strings.TrimSpace(sceneID)
	if sceneID == "" {
		return fmt.Errorf("scene id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, sceneID)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteScenesByGame removes every scene for a game.
func (s *Store) DeleteScenesByGame(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM scenes WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("delete scenes by game: %w", err)
	}
	return nil
}

func marshalSceneColumns(scene domain.Scene) (participants, tags, refs string, err error) {
	participantsJSON, err := json.Marshal(scene.Participants)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal participants: %w", err)
	}
	tagsJSON, err := json.Marshal(scene.EnvironmentTags)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal environment tags: %w", err)
	}
	refsJSON, err := json.Marshal(scene.ShopRefs)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal shop refs: %w", err)
	}
	return string(participantsJSON), string(tagsJSON), string(refsJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (domain.Scene, error) {
	var scene domain.Scene
	var kind int
	var isActive int
	var participants, tags, refs string
	var createdAt, updatedAt int64

	err := row.Scan(
		&scene.ID,
		&scene.GameID,
		&scene.Name,
		&kind,
		&isActive,
		&participants,
		&tags,
		&refs,
		&scene.Revision,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Scene{}, storage.ErrNotFound
		}
		return domain.Scene{}, fmt.Errorf("scan scene: %w", err)
	}

	scene.Kind = domain.SceneKind(kind)
	scene.IsActive = isActive != 0
	scene.CreatedAt = fromMillis(createdAt)
	scene.UpdatedAt = fromMillis(updatedAt)

	if err := json.Unmarshal([]byte(participants), &scene.Participants); err != nil {
		return domain.Scene{}, fmt.Errorf("unmarshal participants: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &scene.EnvironmentTags); err != nil {
		return domain.Scene{}, fmt.Errorf("unmarshal environment tags: %w", err)
	}
	if err := json.Unmarshal([]byte(refs), &scene.ShopRefs); err != nil {
		return domain.Scene{}, fmt.Errorf("unmarshal shop refs: %w", err)
	}
	return scene, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
