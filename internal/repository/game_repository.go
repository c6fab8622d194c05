package repository

import (
	"errors"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"

	"gorm.io/gorm"
)

type GameRepository struct {
	DB *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{DB: db}
}

func (r *GameRepository) Create(game *model.Game) error {
	return r.DB.Create(game).Error
}

func (r *GameRepository) FindByID(id string) (*model.Game, error) {
	var game model.Game
	err := r.DB.First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrGameNotFound
	}
	return &game, err
}

func (r *GameRepository) FindBySlug(slug string) (*model.Game, error) {
	var game model.Game
	err := r.DB.Where("slug = ?", slug).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrGameNotFound
	}
	return &game, err
}

func (r *GameRepository) ListActive() ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Where("is_active = ?", true).Order("slug").Find(&games).Error
	return games, err
}

// FindByTier returns the active games targeted at the given tier.
func (r *GameRepository) FindByTier(tier model.EducationTier) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Where("target_tier = ? AND is_active = ?", tier, true).Find(&games).Error
	return games, err
}
