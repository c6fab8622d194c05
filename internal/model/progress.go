package model

import (
	"encoding/json"
	"time"
)

// Progress is the durable per-(user, level) record. Score and best time move
// monotonically; Completed flips to true at most once, the first submission
// that earns a star.
// swagger:model Progress
type Progress struct {
	UUIDBase

	UserID          string          `gorm:"index:idx_user_level,unique;type:varchar(36);not null" json:"userId"`
	LevelID         string          `gorm:"index:idx_user_level,unique;type:varchar(36);not null" json:"levelId"`
	Score           int             `gorm:"default:0" json:"score"`
	MaxScore        int             `gorm:"default:100" json:"maxScore"`
	Stars           int             `gorm:"default:0" json:"stars"`
	Attempts        int             `gorm:"default:0" json:"attempts"`
	BestTimeSeconds *int            `json:"bestTimeSeconds,omitempty"`
	BestSolution    json.RawMessage `gorm:"type:json" json:"-"`
	Completed       bool            `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

func (Progress) TableName() string {
	return "progress"
}

// StarsForScore maps a score ratio onto the 0-3 star scale.
func StarsForScore(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	ratio := float64(score) / float64(maxScore)
	switch {
	case ratio >= 0.9:
		return 3
	case ratio >= 0.7:
		return 2
	case ratio >= 0.5:
		return 1
	default:
		return 0
	}
}
