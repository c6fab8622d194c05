package repository

import (
	"errors"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"

	"gorm.io/gorm"
)

type ProctoringRepository struct {
	DB *gorm.DB
}

func NewProctoringRepository(db *gorm.DB) *ProctoringRepository {
	return &ProctoringRepository{DB: db}
}

func (r *ProctoringRepository) Create(session *model.ProctoredSession) error {
	return r.DB.Create(session).Error
}

func (r *ProctoringRepository) FindByID(id string) (*model.ProctoredSession, error) {
	var s model.ProctoredSession
	err := r.DB.Preload("Flags").First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	return &s, err
}

func (r *ProctoringRepository) FindByToken(token string) (*model.ProctoredSession, error) {
	var s model.ProctoredSession
	err := r.DB.Preload("Flags").Where("session_token = ?", token).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	return &s, err
}

func (r *ProctoringRepository) Update(session *model.ProctoredSession) error {
	return r.DB.Save(session).Error
}

func (r *ProctoringRepository) AddFlag(flag *model.ProctoringFlag) error {
	return r.DB.Create(flag).Error
}

func (r *ProctoringRepository) ListFlags(sessionID string) ([]model.ProctoringFlag, error) {
	var flags []model.ProctoringFlag
	err := r.DB.Where("session_id = ?", sessionID).Order("timestamp").Find(&flags).Error
	return flags, err
}

func (r *ProctoringRepository) ListByUser(userID string) ([]model.ProctoredSession, error) {
	var sessions []model.ProctoredSession
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}
