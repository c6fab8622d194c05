package repository

import (
	"encoding/json"
	"errors"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndLevel(userID, levelID string) (*model.Progress, error) {
	var p model.Progress
	err := r.DB.Where("user_id = ? AND level_id = ?", userID, levelID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgressNotFound
	}
	return &p, err
}

func (r *ProgressRepository) FindByUser(userID string) ([]model.Progress, error) {
	var list []model.Progress
	err := r.DB.Where("user_id = ?", userID).Find(&list).Error
	return list, err
}

// CountCompletedInGame returns how many of a game's levels the user has
// completed.
func (r *ProgressRepository) CountCompletedInGame(userID, gameID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Progress{}).
		Joins("JOIN levels ON levels.id = progress.level_id").
		Where("progress.user_id = ? AND levels.game_id = ? AND progress.completed = ?", userID, gameID, true).
		Count(&count).Error
	return count, err
}

// CountGamesWithMastery counts distinct games among gameIDs where the user
// holds at least minStars stars on some level.
func (r *ProgressRepository) CountGamesWithMastery(userID string, gameIDs []string, minStars int) (int64, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.Model(&model.Progress{}).
		Joins("JOIN levels ON levels.id = progress.level_id").
		Where("progress.user_id = ? AND progress.stars >= ? AND levels.game_id IN ?", userID, minStars, gameIDs).
		Distinct("levels.game_id").
		Count(&count).Error
	return count, err
}

// FindOthersBestSolutions returns the stored best solutions of other users on
// the same level, newest first, for similarity comparison.
func (r *ProgressRepository) FindOthersBestSolutions(levelID, excludeUserID string, limit int) ([]json.RawMessage, error) {
	var rows []model.Progress
	err := r.DB.Select("best_solution").
		Where("level_id = ? AND user_id <> ? AND best_solution IS NOT NULL", levelID, excludeUserID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		if len(row.BestSolution) > 0 {
			out = append(out, row.BestSolution)
		}
	}
	return out, nil
}

// SubmissionUpdate carries the accepted result of one submission into the
// durable progress record.
type SubmissionUpdate struct {
	Score       int
	MaxScore    int
	TimeSeconds *int
	Solution    json.RawMessage
	XPReward    int
}

// ApplySubmission upserts the progress row and awards XP, all in one
// transaction. Score and best time only improve; Completed and the XP award
// fire exactly once, on the first submission earning a star.
func (r *ProgressRepository) ApplySubmission(userID, levelID string, upd SubmissionUpdate) (*model.Progress, error) {
	var result *model.Progress
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var p model.Progress
		err := tx.Where("user_id = ? AND level_id = ?", userID, levelID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = model.Progress{UserID: userID, LevelID: levelID, MaxScore: upd.MaxScore}
		} else if err != nil {
			return err
		}

		p.Attempts++
		p.MaxScore = upd.MaxScore

		if upd.Score > p.Score {
			p.Score = upd.Score
			// A score-only submission must not wipe the stored solution.
			if upd.Solution != nil {
				p.BestSolution = upd.Solution
			}
		}
		if upd.TimeSeconds != nil && (p.BestTimeSeconds == nil || *upd.TimeSeconds < *p.BestTimeSeconds) {
			t := *upd.TimeSeconds
			p.BestTimeSeconds = &t
		}

		stars := model.StarsForScore(p.Score, p.MaxScore)
		if stars > p.Stars {
			p.Stars = stars
		}

		if !p.Completed && p.Stars >= 1 {
			now := time.Now()
			p.Completed = true
			p.CompletedAt = &now
			if upd.XPReward > 0 {
				err := tx.Model(&model.User{}).
					Where("id = ?", userID).
					Update("total_xp", gorm.Expr("total_xp + ?", upd.XPReward)).Error
				if err != nil {
					return err
				}
			}
		}

		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		result = &p
		return nil
	})
	return result, err
}
