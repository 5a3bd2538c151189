package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/dependencies/ids"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

// Service resolves users and registers them on first login
type Service struct {
	users  storage.UserRepository
	clock  clock.Clock
	ids    ids.Generator
	logger *slog.Logger
}

// New creates a new user Service
func New(users storage.UserRepository, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
}

// GetUser returns the user with the given id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

// GetUserByIdentity returns the user bound to an identity-provider reference
func (s *Service) GetUserByIdentity(ctx context.Context, identity string) (*model.User, error) {
	return s.users.FindByIdentity(ctx, identity)
}

// GetUserMe returns the caller's own user record, looked up by email
func (s *Service) GetUserMe(ctx context.Context, email string) (*model.User, error) {
	return s.users.FindByEmail(ctx, email)
}

// EnsureUser returns the user for a principal, creating or linking one on
// first login: an existing identity wins, then an existing email gets the
// identity linked, otherwise a new user is created.
func (s *Service) EnsureUser(ctx context.Context, p model.Principal) (*model.User, error) {
	if p.Identity == "" {
		return nil, model.InvalidInput("identity is required")
	}
	if p.Email == "" {
		return nil, model.InvalidInput("email is required")
	}

	user, err := s.users.FindByIdentity(ctx, p.Identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	user, err = s.users.FindByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return s.linkIdentity(ctx, user, p.Identity)
	case !errors.Is(err, model.ErrUserNotFound):
		return nil, err
	}

	user = &model.User{
		ID:         model.UserID(s.ids.NewID()),
		Email:      p.Email,
		Nickname:   nicknameFor(p),
		Identities: []string{p.Identity},
		CreatedAt:  s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent first login for the same principal won the race
		if errors.Is(err, model.ErrDuplicateIdentity) || errors.Is(err, model.ErrDuplicateEmail) {
			return s.resolveAfterRace(ctx, p)
		}
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("user_id", string(user.ID)),
		slog.String("identity", p.Identity))
	return user, nil
}

func (s *Service) linkIdentity(ctx context.Context, user *model.User, identity string) (*model.User, error) {
	if err := s.users.AddIdentity(ctx, user.ID, identity); err != nil {
		return nil, err
	}
	s.logger.Info("identity linked",
		slog.String("user_id", string(user.ID)),
		slog.String("identity", identity))
	return s.users.FindByID(ctx, user.ID)
}

func (s *Service) resolveAfterRace(ctx context.Context, p model.Principal) (*model.User, error) {
	user, err := s.users.FindByIdentity(ctx, p.Identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}
	user, err = s.users.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	return s.linkIdentity(ctx, user, p.Identity)
}

// nicknameFor falls back to the local part of the email
func nicknameFor(p model.Principal) string {
	if p.Nickname != "" {
		return p.Nickname
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
