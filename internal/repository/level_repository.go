package repository

import (
	"errors"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"

	"gorm.io/gorm"
)

type LevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: db}
}

func (r *LevelRepository) Create(level *model.Level) error {
	return r.DB.Create(level).Error
}

func (r *LevelRepository) FindByID(id string) (*model.Level, error) {
	var level model.Level
	err := r.DB.First(&level, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLevelNotFound
	}
	return &level, err
}

func (r *LevelRepository) FindByGame(gameID string) ([]model.Level, error) {
	var levels []model.Level
	err := r.DB.Where("game_id = ? AND is_active = ?", gameID, true).
		Order("sequence").Find(&levels).Error
	return levels, err
}

func (r *LevelRepository) FindBySequence(gameID string, sequence int) (*model.Level, error) {
	var level model.Level
	err := r.DB.Where("game_id = ? AND sequence = ?", gameID, sequence).First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLevelNotFound
	}
	return &level, err
}
