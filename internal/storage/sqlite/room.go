package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcoot/gamelobby/internal/model"
)

// RoomRepository implements storage.RoomRepository using SQLite
type RoomRepository struct {
	db *sql.DB
}

const roomColumns = `id, game_id, game_unique_name, game_display_name, host_id, host_nickname,
	password_hash, status, name, min_players, max_players, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*model.Room, error) {
	room := &model.Room{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&room.ID, &room.Game.ID, &room.Game.UniqueName, &room.Game.DisplayName,
		&room.Host.ID, &room.Host.Nickname, &room.PasswordHash, &room.Status, &room.Name,
		&room.MinPlayers, &room.MaxPlayers, &room.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.CreatedAt = fromUnix(createdAt)
	room.UpdatedAt = fromUnix(updatedAt)
	return room, nil
}

// loadPlayers fills in the players of each room, in join order
func loadPlayers(ctx context.Context, q querier, rooms ...*model.Room) error {
	for _, room := range rooms {
		rows, err := q.QueryContext(ctx,
			`SELECT user_id, nickname, readiness FROM room_players WHERE room_id = ? ORDER BY position`, room.ID)
		if err != nil {
			return fmt.Errorf("query players: %w", err)
		}

		room.Players = []model.Player{}
		for rows.Next() {
			var p model.Player
			if err := rows.Scan(&p.ID, &p.Nickname, &p.Readiness); err != nil {
				rows.Close()
				return fmt.Errorf("scan player: %w", err)
			}
			room.Players = append(room.Players, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func insertPlayers(ctx context.Context, tx *sql.Tx, room *model.Room) error {
	for i, p := range room.Players {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_players (room_id, user_id, nickname, readiness, position) VALUES (?, ?, ?, ?, ?)`,
			room.ID, p.ID, p.Nickname, p.Readiness, i,
		)
		if err != nil {
			if isUniqueConstraintError(err, "room_players.user_id") {
				return model.PlayerAlreadyInRoom(p.ID)
			}
			return fmt.Errorf("insert player: %w", err)
		}
	}
	return nil
}

func (r *RoomRepository) FindByID(ctx context.Context, id model.RoomID) (*model.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.RoomNotFound(id)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	if err := loadPlayers(ctx, r.db, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			room.ID, room.Game.ID, room.Game.UniqueName, room.Game.DisplayName,
			room.Host.ID, room.Host.Nickname, room.PasswordHash, room.Status, room.Name,
			room.MinPlayers, room.MaxPlayers, toUnix(room.CreatedAt), toUnix(room.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		return insertPlayers(ctx, tx, room)
	})
	if err != nil {
		return err
	}
	room.Version = 1
	return nil
}

func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE rooms SET game_id = ?, game_unique_name = ?, game_display_name = ?,
				host_id = ?, host_nickname = ?, password_hash = ?, status = ?, name = ?,
				min_players = ?, max_players = ?, updated_at = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			room.Game.ID, room.Game.UniqueName, room.Game.DisplayName,
			room.Host.ID, room.Host.Nickname, room.PasswordHash, room.Status, room.Name,
			room.MinPlayers, room.MaxPlayers, toUnix(room.UpdatedAt),
			room.ID, room.Version,
		)
		if err != nil {
			return fmt.Errorf("update room: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)`, room.ID).Scan(&exists); err != nil {
				return fmt.Errorf("query room: %w", err)
			}
			if !exists {
				return model.RoomNotFound(room.ID)
			}
			return model.ErrRoomConflict
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = ?`, room.ID); err != nil {
			return fmt.Errorf("clear players: %w", err)
		}
		return insertPlayers(ctx, tx, room)
	})
	if err != nil {
		return err
	}
	room.Version++
	return nil
}

func (r *RoomRepository) DeleteByID(ctx context.Context, id model.RoomID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = ?`, id); err != nil {
			return fmt.Errorf("delete players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
}

func (r *RoomRepository) FindByStatus(ctx context.Context, status model.RoomStatus, page model.PageRequest) (model.Pagination[*model.Room], error) {
	page = page.Normalize()
	result := model.Pagination[*model.Room]{
		Page:   page.Page,
		Offset: page.Offset,
		Data:   []*model.Room{},
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE status = ?`, status).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count rooms: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE status = ? ORDER BY created_at, id LIMIT ? OFFSET ?`,
		status, page.Offset, page.Start(),
	)
	if err != nil {
		return result, fmt.Errorf("query rooms: %w", err)
	}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return result, fmt.Errorf("scan room: %w", err)
		}
		result.Data = append(result.Data, room)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return result, err
	}

	// Players load after the room cursor is closed; the pool has one connection
	if err := loadPlayers(ctx, r.db, result.Data...); err != nil {
		return result, err
	}
	return result, nil
}

func (r *RoomRepository) HasPlayerJoinedRoom(ctx context.Context, id model.UserID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_players WHERE user_id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query players: %w", err)
	}
	return exists, nil
}

func (r *RoomRepository) DeleteAll(ctx context.Context) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_players`); err != nil {
			return fmt.Errorf("delete players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms`); err != nil {
			return fmt.Errorf("delete rooms: %w", err)
		}
		return nil
	})
}
