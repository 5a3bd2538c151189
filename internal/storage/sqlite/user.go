package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcoot/gamelobby/internal/model"
)

// UserRepository implements storage.UserRepository using SQLite
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) findOne(ctx context.Context, notFound error, where string, arg any) (*model.User, error) {
	user := &model.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.nickname, u.created_at FROM users u `+where, arg,
	).Scan(&user.ID, &user.Email, &user.Nickname, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.CreatedAt = fromUnix(createdAt)

	identities, err := identitiesOf(ctx, r.db, user.ID)
	if err != nil {
		return nil, err
	}
	user.Identities = identities
	return user, nil
}

func identitiesOf(ctx context.Context, q querier, id model.UserID) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT identity FROM user_identities WHERE user_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	identities := []string{}
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

func (r *UserRepository) FindByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return r.findOne(ctx, model.UserNotFound("id", string(id)), `WHERE u.id = ?`, id)
}

func (r *UserRepository) FindByIdentity(ctx context.Context, identity string) (*model.User, error) {
	return r.findOne(ctx, model.UserNotFound("identity", identity),
		`JOIN user_identities i ON i.user_id = u.id WHERE i.identity = ?`, identity)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, model.UserNotFound("email", email), `WHERE u.email = ?`, email)
}

func (r *UserRepository) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_identities WHERE identity = ?)`, identity,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query identity: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, nickname, created_at) VALUES (?, ?, ?, ?)`,
			user.ID, user.Email, user.Nickname, toUnix(user.CreatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err, "users.email") {
				return model.DuplicateEmail(user.Email)
			}
			return fmt.Errorf("insert user: %w", err)
		}

		for i, identity := range user.Identities {
			if err := insertIdentity(ctx, tx, user.ID, identity, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertIdentity(ctx context.Context, q querier, id model.UserID, identity string, position int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_identities (identity, user_id, position) VALUES (?, ?, ?)`,
		identity, id, position,
	)
	if err != nil {
		if isUniqueConstraintError(err, "user_identities.identity") {
			return model.DuplicateIdentity(identity)
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (r *UserRepository) AddIdentity(ctx context.Context, id model.UserID, identity string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("query user: %w", err)
		}
		if !exists {
			return model.UserNotFound("id", string(id))
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_identities WHERE user_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("count identities: %w", err)
		}

		var owner model.UserID
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM user_identities WHERE identity = ?`, identity).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("query identity: %w", err)
		case owner == id:
			return nil
		default:
			return model.DuplicateIdentity(identity)
		}

		return insertIdentity(ctx, tx, id, identity, count)
	})
}

func (r *UserRepository) FindAllByID(ctx context.Context, ids []model.UserID) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_identities`); err != nil {
			return fmt.Errorf("delete identities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		return nil
	})
}
