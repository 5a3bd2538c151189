package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcoot/gamelobby/internal/model"
)

// GameRegistrationRepository implements storage.GameRegistrationRepository using SQLite
type GameRegistrationRepository struct {
	db *sql.DB
}

const gameColumns = `id, unique_name, display_name, short_description, rule, image_url,
	min_players, max_players, front_end_url, back_end_url, created_at`

func (r *GameRegistrationRepository) findOne(ctx context.Context, notFound error, where string, arg any) (*model.GameRegistration, error) {
	game := &model.GameRegistration{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM game_registrations `+where, arg).Scan(
		&game.ID, &game.UniqueName, &game.DisplayName, &game.ShortDescription, &game.Rule, &game.ImageURL,
		&game.MinPlayers, &game.MaxPlayers, &game.FrontEndURL, &game.BackEndURL, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("query game: %w", err)
	}
	game.CreatedAt = fromUnix(createdAt)
	return game, nil
}

func (r *GameRegistrationRepository) FindByID(ctx context.Context, id model.GameID) (*model.GameRegistration, error) {
	return r.findOne(ctx, model.GameNotFound("id", string(id)), `WHERE id = ?`, id)
}

func (r *GameRegistrationRepository) FindByUniqueName(ctx context.Context, uniqueName string) (*model.GameRegistration, error) {
	return r.findOne(ctx, model.GameNotFound("uniqueName", uniqueName), `WHERE unique_name = ?`, uniqueName)
}

func (r *GameRegistrationRepository) RegisterGame(ctx context.Context, game *model.GameRegistration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_registrations (`+gameColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		game.ID, game.UniqueName, game.DisplayName, game.ShortDescription, game.Rule, game.ImageURL,
		game.MinPlayers, game.MaxPlayers, game.FrontEndURL, game.BackEndURL, toUnix(game.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err, "game_registrations.unique_name") {
			return model.DuplicateGame(game.UniqueName)
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (r *GameRegistrationRepository) UpdateGame(ctx context.Context, game *model.GameRegistration) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE game_registrations SET unique_name = ?, display_name = ?, short_description = ?, rule = ?,
			image_url = ?, min_players = ?, max_players = ?, front_end_url = ?, back_end_url = ?
		 WHERE id = ?`,
		game.UniqueName, game.DisplayName, game.ShortDescription, game.Rule,
		game.ImageURL, game.MinPlayers, game.MaxPlayers, game.FrontEndURL, game.BackEndURL,
		game.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err, "game_registrations.unique_name") {
			return model.DuplicateGame(game.UniqueName)
		}
		return fmt.Errorf("update game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return model.GameNotFound("id", string(game.ID))
	}
	return nil
}
