package service

import (
	"quantum_quest_backend/internal/model"
)

// GameCatalog is the slice of the game repository the catalog endpoints need.
type GameCatalog interface {
	ListActive() ([]model.Game, error)
	FindByTier(tier model.EducationTier) ([]model.Game, error)
	FindBySlug(slug string) (*model.Game, error)
}

// GameService serves the game and level catalog.
type GameService struct {
	games  GameCatalog
	levels LevelReader
}

func NewGameService(games GameCatalog, levels LevelReader) *GameService {
	return &GameService{games: games, levels: levels}
}

// ListGames returns active games, optionally filtered to one education tier.
func (s *GameService) ListGames(tier string) ([]model.Game, error) {
	if tier == "" {
		return s.games.ListActive()
	}
	return s.games.FindByTier(model.EducationTier(tier))
}

func (s *GameService) GetGame(slug string) (*model.Game, error) {
	return s.games.FindBySlug(slug)
}

// ListLevels returns a game's levels ordered by sequence.
func (s *GameService) ListLevels(slug string) ([]model.Level, error) {
	game, err := s.games.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	return s.levels.FindByGame(game.ID)
}
