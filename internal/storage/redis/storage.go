package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Users() storage.UserRepository { return (*userRepo)(s) }

func (s *Storage) Rooms() storage.RoomRepository { return (*roomRepo)(s) }

func (s *Storage) Games() storage.GameRegistrationRepository { return (*gameRepo)(s) }

func getJSON[T any](ctx context.Context, c redis.Cmdable, key string, notFound func() error) (*T, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound()
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func (s *Storage) deleteByPattern(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// User operations

type userRepo Storage

func (r *userRepo) FindByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return getJSON[model.User](ctx, r.client, userKey(id), func() error {
		return model.UserNotFound("id", string(id))
	})
}

func (r *userRepo) findByIndex(ctx context.Context, indexKey, key, value string) (*model.User, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.UserNotFound(key, value)
		}
		return nil, err
	}
	return getJSON[model.User](ctx, r.client, userKey(model.UserID(id)), func() error {
		return model.UserNotFound(key, value)
	})
}

func (r *userRepo) FindByIdentity(ctx context.Context, identity string) (*model.User, error) {
	return r.findByIndex(ctx, userIdentityIndexKey(identity), "identity", identity)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findByIndex(ctx, userEmailIndexKey(email), "email", email)
}

func (r *userRepo) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	n, err := r.client.Exists(ctx, userIdentityIndexKey(identity)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.client.Exists(ctx, userEmailIndexKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	emailKey := userEmailIndexKey(user.Email)
	watched := []string{emailKey}
	for _, identity := range user.Identities {
		watched = append(watched, userIdentityIndexKey(identity))
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		if n, err := tx.Exists(ctx, emailKey).Result(); err != nil {
			return err
		} else if n > 0 {
			return model.DuplicateEmail(user.Email)
		}
		for _, identity := range user.Identities {
			if n, err := tx.Exists(ctx, userIdentityIndexKey(identity)).Result(); err != nil {
				return err
			} else if n > 0 {
				return model.DuplicateIdentity(identity)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			pipe.Set(ctx, emailKey, string(user.ID), 0)
			for _, identity := range user.Identities {
				pipe.Set(ctx, userIdentityIndexKey(identity), string(user.ID), 0)
			}
			return nil
		})
		return err
	}, watched...)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepo) AddIdentity(ctx context.Context, id model.UserID, identity string) error {
	key := userKey(id)
	identityKey := userIdentityIndexKey(identity)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		user, err := getJSON[model.User](ctx, tx, key, func() error {
			return model.UserNotFound("id", string(id))
		})
		if err != nil {
			return err
		}

		owner, err := tx.Get(ctx, identityKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		case owner == string(id):
			return nil
		default:
			return model.DuplicateIdentity(identity)
		}

		user.Identities = append(user.Identities, identity)
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, identityKey, string(id), 0)
			return nil
		})
		return err
	}, key, identityKey)
	if err != nil {
		return fmt.Errorf("add identity: %w", err)
	}
	return nil
}

func (r *userRepo) FindAllByID(ctx context.Context, ids []model.UserID) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // Missing
		}
		var user model.User
		if err := json.Unmarshal([]byte(str), &user); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, &user)
	}
	return users, nil
}

func (r *userRepo) DeleteAll(ctx context.Context) error {
	return (*Storage)(r).deleteByPattern(ctx, userPatterns...)
}

// Room operations

type roomRepo Storage

func (r *roomRepo) FindByID(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return getJSON[model.Room](ctx, r.client, roomKey(id), func() error {
		return model.RoomNotFound(id)
	})
}

func statusScore(room *model.Room) float64 {
	return float64(room.CreatedAt.UnixMilli())
}

func playerRoomKeys(room *model.Room) []string {
	keys := make([]string, len(room.Players))
	for i, p := range room.Players {
		keys[i] = playerRoomKey(p.ID)
	}
	return keys
}

// checkPlayersFree fails if any player of the room is indexed to a different room
func checkPlayersFree(ctx context.Context, tx *redis.Tx, room *model.Room) error {
	for _, p := range room.Players {
		other, err := tx.Get(ctx, playerRoomKey(p.ID)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		if other != string(room.ID) {
			return model.PlayerAlreadyInRoom(p.ID)
		}
	}
	return nil
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	next := room.Clone()
	next.Version = 1
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkPlayersFree(ctx, tx, next); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(next.ID), data, r.cfg.RoomTTL)
			pipe.ZAdd(ctx, roomsByStatusKey(next.Status), redis.Z{Score: statusScore(next), Member: string(next.ID)})
			for _, p := range next.Players {
				pipe.Set(ctx, playerRoomKey(p.ID), string(next.ID), r.cfg.RoomTTL)
			}
			return nil
		})
		return err
	}, playerRoomKeys(next)...)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return model.ErrRoomConflict
		}
		return fmt.Errorf("create room: %w", err)
	}

	room.Version = next.Version
	return nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	key := roomKey(room.ID)
	next := room.Clone()
	next.Version = room.Version + 1
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	watched := append([]string{key}, playerRoomKeys(next)...)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := getJSON[model.Room](ctx, tx, key, func() error {
			return model.RoomNotFound(room.ID)
		})
		if err != nil {
			return err
		}
		if stored.Version != room.Version {
			return model.ErrRoomConflict
		}
		if err := checkPlayersFree(ctx, tx, next); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.cfg.RoomTTL)
			if stored.Status != next.Status {
				pipe.ZRem(ctx, roomsByStatusKey(stored.Status), string(next.ID))
				pipe.ZAdd(ctx, roomsByStatusKey(next.Status), redis.Z{Score: statusScore(next), Member: string(next.ID)})
			}
			for _, p := range stored.Players {
				if !next.HasPlayer(p.ID) {
					pipe.Del(ctx, playerRoomKey(p.ID))
				}
			}
			for _, p := range next.Players {
				pipe.Set(ctx, playerRoomKey(p.ID), string(next.ID), r.cfg.RoomTTL)
			}
			return nil
		})
		return err
	}, watched...)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return model.ErrRoomConflict
		}
		return fmt.Errorf("update room: %w", err)
	}

	room.Version = next.Version
	return nil
}

// maxDeleteAttempts bounds retries when a room keeps changing under a delete
const maxDeleteAttempts = 5

func (r *roomRepo) DeleteByID(ctx context.Context, id model.RoomID) error {
	key := roomKey(id)

	var err error
	for range maxDeleteAttempts {
		err = r.client.Watch(ctx, func(tx *redis.Tx) error {
			room, err := getJSON[model.Room](ctx, tx, key, func() error {
				return model.RoomNotFound(id)
			})
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, roomsByStatusKey(room.Status), string(id))
				for _, p := range room.Players {
					pipe.Del(ctx, playerRoomKey(p.ID))
				}
				return nil
			})
			return err
		}, key)
		// a write landed between the read and the delete; read again
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil, errors.Is(err, model.ErrRoomNotFound):
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return model.ErrRoomConflict
	}
	return fmt.Errorf("delete room: %w", err)
}

func (r *roomRepo) FindByStatus(ctx context.Context, status model.RoomStatus, page model.PageRequest) (model.Pagination[*model.Room], error) {
	indexKey := roomsByStatusKey(status)

	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return model.Pagination[*model.Room]{}, err
	}
	if len(ids) == 0 {
		return model.Paginate([]*model.Room{}, page), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(model.RoomID(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return model.Pagination[*model.Room]{}, err
	}

	rooms := make([]*model.Room, 0, len(values))
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var room model.Room
		if err := json.Unmarshal([]byte(str), &room); err != nil {
			return model.Pagination[*model.Room]{}, fmt.Errorf("decode room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	// Rooms that expired through TTL leave their index entry behind
	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, indexKey, expired...).Err(); err != nil {
			return model.Pagination[*model.Room]{}, err
		}
	}

	// Scores only hold milliseconds; settle finer ordering here
	slices.SortFunc(rooms, func(a, b *model.Room) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return model.Paginate(rooms, page), nil
}

func (r *roomRepo) HasPlayerJoinedRoom(ctx context.Context, id model.UserID) (bool, error) {
	n, err := r.client.Exists(ctx, playerRoomKey(model.PlayerID(id))).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *roomRepo) DeleteAll(ctx context.Context) error {
	return (*Storage)(r).deleteByPattern(ctx, roomPatterns...)
}

// Game registration operations

type gameRepo Storage

func (r *gameRepo) FindByID(ctx context.Context, id model.GameID) (*model.GameRegistration, error) {
	return getJSON[model.GameRegistration](ctx, r.client, gameKey(id), func() error {
		return model.GameNotFound("id", string(id))
	})
}

func (r *gameRepo) FindByUniqueName(ctx context.Context, uniqueName string) (*model.GameRegistration, error) {
	id, err := r.client.Get(ctx, gameNameIndexKey(uniqueName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.GameNotFound("uniqueName", uniqueName)
		}
		return nil, err
	}
	return getJSON[model.GameRegistration](ctx, r.client, gameKey(model.GameID(id)), func() error {
		return model.GameNotFound("uniqueName", uniqueName)
	})
}

func (r *gameRepo) RegisterGame(ctx context.Context, game *model.GameRegistration) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	nameKey := gameNameIndexKey(game.UniqueName)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		if n, err := tx.Exists(ctx, nameKey).Result(); err != nil {
			return err
		} else if n > 0 {
			return model.DuplicateGame(game.UniqueName)
		}

		// the record and its name index are written together or not at all
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(game.ID), data, 0)
			pipe.Set(ctx, nameKey, string(game.ID), 0)
			return nil
		})
		return err
	}, nameKey)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// someone else claimed the name first
			return model.DuplicateGame(game.UniqueName)
		}
		return fmt.Errorf("register game: %w", err)
	}
	return nil
}

func (r *gameRepo) UpdateGame(ctx context.Context, game *model.GameRegistration) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	key := gameKey(game.ID)
	nameKey := gameNameIndexKey(game.UniqueName)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := getJSON[model.GameRegistration](ctx, tx, key, func() error {
			return model.GameNotFound("id", string(game.ID))
		})
		if err != nil {
			return err
		}

		owner, err := tx.Get(ctx, nameKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && owner != string(game.ID) {
			return model.DuplicateGame(game.UniqueName)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if stored.UniqueName != game.UniqueName {
				pipe.Del(ctx, gameNameIndexKey(stored.UniqueName))
			}
			pipe.Set(ctx, nameKey, string(game.ID), 0)
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key, nameKey)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}
