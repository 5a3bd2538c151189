package game

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/dependencies/ids"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

// Registration holds the caller-supplied fields of a game registration
type Registration struct {
	UniqueName       string
	DisplayName      string
	ShortDescription string
	Rule             string
	ImageURL         string
	MinPlayers       int
	MaxPlayers       int
	FrontEndURL      string
	BackEndURL       string
}

func (r *Registration) validate() error {
	if strings.TrimSpace(r.UniqueName) == "" {
		return model.InvalidInput("uniqueName is required")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return model.InvalidInput("displayName is required")
	}
	if r.MinPlayers <= 0 || r.MinPlayers > r.MaxPlayers {
		return model.InvalidInput("minPlayers must be positive and at most maxPlayers, got %d and %d",
			r.MinPlayers, r.MaxPlayers)
	}
	return nil
}

func (r *Registration) applyTo(g *model.GameRegistration) {
	g.UniqueName = r.UniqueName
	g.DisplayName = r.DisplayName
	g.ShortDescription = r.ShortDescription
	g.Rule = r.Rule
	g.ImageURL = r.ImageURL
	g.MinPlayers = r.MinPlayers
	g.MaxPlayers = r.MaxPlayers
	g.FrontEndURL = r.FrontEndURL
	g.BackEndURL = r.BackEndURL
}

// Service registers games and looks them up
type Service struct {
	games  storage.GameRegistrationRepository
	clock  clock.Clock
	ids    ids.Generator
	logger *slog.Logger
}

// New creates a new game Service
func New(games storage.GameRegistrationRepository, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Service {
	return &Service{
		games:  games,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
}

// RegisterGame validates and persists a new game registration
func (s *Service) RegisterGame(ctx context.Context, reg Registration) (*model.GameRegistration, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}

	game := &model.GameRegistration{
		ID:        model.GameID(s.ids.NewID()),
		CreatedAt: s.clock.Now(),
	}
	reg.applyTo(game)

	if err := s.games.RegisterGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game registered",
		slog.String("game_id", string(game.ID)),
		slog.String("unique_name", game.UniqueName))
	return game, nil
}

// UpdateGame replaces the fields of an existing registration
func (s *Service) UpdateGame(ctx context.Context, id model.GameID, reg Registration) (*model.GameRegistration, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}

	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reg.applyTo(game)

	if err := s.games.UpdateGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game updated",
		slog.String("game_id", string(game.ID)),
		slog.String("unique_name", game.UniqueName))
	return game, nil
}

// GetGame returns the game registration with the given id
func (s *Service) GetGame(ctx context.Context, id model.GameID) (*model.GameRegistration, error) {
	return s.games.FindByID(ctx, id)
}

// GetGameByUniqueName returns the game registration with the given unique name
func (s *Service) GetGameByUniqueName(ctx context.Context, uniqueName string) (*model.GameRegistration, error) {
	return s.games.FindByUniqueName(ctx, uniqueName)
}
