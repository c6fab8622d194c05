package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/repository"
	"quantum_quest_backend/internal/util"
	"quantum_quest_backend/pkg/logger"
	"quantum_quest_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SubmitRequest is one level-completion submission.
type SubmitRequest struct {
	Score                 int             `json:"score"`
	TimeSeconds           *int            `json:"timeSeconds,omitempty"`
	Solution              json.RawMessage `json:"solution,omitempty"`
	ProctoredSessionToken string          `json:"proctoredSessionToken,omitempty"`
	Browser               *BrowserInfo    `json:"browserInfo,omitempty"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitResult is the accepted outcome of a submission.
type SubmitResult struct {
	Score            int                    `json:"score"`
	MaxScore         int                    `json:"maxScore"`
	Stars            int                    `json:"stars"`
	Attempts         int                    `json:"attempts"`
	Completed        bool                   `json:"completed"`
	CompletedAt      *time.Time             `json:"completedAt,omitempty"`
	Warnings         []Warning              `json:"validationWarnings"`
	PrerequisitesMet bool                   `json:"prerequisitesMet"`
	Breakdown        map[string]interface{} `json:"scoreBreakdown,omitempty"`
}

// UserGetter is the slice of the user repository the pipeline needs.
type UserGetter interface {
	FindByID(id string) (*model.User, error)
}

// GameGetter locates games by id or slug.
type GameGetter interface {
	FindByID(id string) (*model.Game, error)
	FindBySlug(slug string) (*model.Game, error)
}

// LevelReader is the level access the pipeline needs.
type LevelReader interface {
	FindByID(id string) (*model.Level, error)
	FindByGame(gameID string) ([]model.Level, error)
}

// ProgressStore is the durable progress access the pipeline needs.
type ProgressStore interface {
	ApplySubmission(userID, levelID string, upd repository.SubmissionUpdate) (*model.Progress, error)
	FindByUserAndLevel(userID, levelID string) (*model.Progress, error)
	FindByUser(userID string) ([]model.Progress, error)
}

// ProgressService runs the full submission pipeline: proctoring validation,
// anti-cheat gates, server-side re-scoring, diversity screening, then the
// durable progress update. All checks run before anything is written.
type ProgressService struct {
	users      UserGetter
	games      GameGetter
	levels     LevelReader
	progress   ProgressStore
	anticheat  *AnticheatService
	scoring    *ScoringService
	proctoring *ProctoringService
}

func NewProgressService(
	users UserGetter,
	games GameGetter,
	levels LevelReader,
	progress ProgressStore,
	anticheat *AnticheatService,
	scoring *ScoringService,
	proctoring *ProctoringService,
) *ProgressService {
	return &ProgressService{
		users:      users,
		games:      games,
		levels:     levels,
		progress:   progress,
		anticheat:  anticheat,
		scoring:    scoring,
		proctoring: proctoring,
	}
}

func (s *ProgressService) SubmitLevel(ctx context.Context, userID, levelID string, req SubmitRequest) (*SubmitResult, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	level, err := s.levels.FindByID(levelID)
	if err != nil {
		return nil, err
	}
	game, err := s.games.FindByID(level.GameID)
	if err != nil {
		return nil, err
	}

	cfg := level.DecodeConfig()
	gameCfg := game.DecodeConfig()

	// Proctoring gate runs first: nothing else is evaluated on an invalid
	// session.
	if cfg.RequiresProctoring {
		if req.ProctoredSessionToken == "" {
			return nil, s.reject(game, util.Reject(util.CodeProctoringRequired,
				"This level requires a verified proctored session", nil))
		}
		browser := BrowserInfo{}
		if req.Browser != nil {
			browser = *req.Browser
		}
		session, err := s.proctoring.ValidateActive(req.ProctoredSessionToken, browser)
		if err != nil {
			if errors.Is(err, util.ErrSessionNotFound) {
				err = util.Reject(util.CodeInvalidProctoredSess, "Invalid session token", nil)
			}
			return nil, s.reject(game, err)
		}
		if session.UserID != userID || session.LevelID != levelID {
			return nil, s.reject(game, util.Reject(util.CodeInvalidProctoredSess,
				"Session does not belong to this user and level", nil))
		}
	}

	if err := s.anticheat.ValidateCompletionTime(level, req.TimeSeconds); err != nil {
		return nil, s.reject(game, err)
	}
	if err := s.anticheat.CheckPrerequisites(userID, game, level); err != nil {
		return nil, s.reject(game, err)
	}
	if err := s.anticheat.CheckEducationTierMastery(userID, game.TargetTier); err != nil {
		return nil, s.reject(game, err)
	}

	var warnings []Warning
	breakdown := map[string]interface{}(nil)
	score := req.Score

	if gameCfg.ServerSideScoring && len(req.Solution) > 0 {
		result, err := s.scoring.Score(ctx, game, level, req.Solution)
		if err != nil {
			return nil, s.reject(game, err)
		}
		if result.Score != req.Score {
			monitoring.ScoreAdjustments.WithLabelValues(game.Slug).Inc()
			logger.Log.Info("server score overrode client report",
				zap.String("user_id", userID),
				zap.String("level_id", levelID),
				zap.Int("client_score", req.Score),
				zap.Int("server_score", result.Score))
		}
		score = result.Score
		breakdown = result.Breakdown
	}

	if err := s.anticheat.ValidateScoreBounds(score, cfg.MaxScore); err != nil {
		return nil, s.reject(game, err)
	}

	if cfg.CheckSolutionDiversity && len(req.Solution) > 0 {
		diversity, err := s.anticheat.CheckSolutionDiversity(ctx, userID, level, req.Solution)
		if err != nil {
			return nil, err
		}
		if !diversity.Unique {
			if cfg.StrictDiversity {
				return nil, s.reject(game, util.Reject(util.CodeVerificationFailed,
					diversity.Message, diversity.Details))
			}
			score = int(float64(score) * (1 - s.anticheat.policyView().DiversityPenalty))
			warnings = append(warnings, Warning{
				Code:    "SOLUTION_SIMILARITY",
				Message: diversity.Message,
			})
		}
	}

	progress, err := s.progress.ApplySubmission(userID, levelID, repository.SubmissionUpdate{
		Score:       score,
		MaxScore:    cfg.MaxScore,
		TimeSeconds: req.TimeSeconds,
		Solution:    req.Solution,
		XPReward:    level.XPReward,
	})
	if err != nil {
		return nil, err
	}

	if cfg.RequiresProctoring {
		if _, err := s.proctoring.Complete(req.ProctoredSessionToken, ""); err != nil {
			// The submission is already committed; a completion race only
			// affects the session audit record.
			logger.Log.Warn("failed to complete proctored session after submission",
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}

	if warnings == nil {
		warnings = []Warning{}
	}

	return &SubmitResult{
		Score:            progress.Score,
		MaxScore:         progress.MaxScore,
		Stars:            progress.Stars,
		Attempts:         progress.Attempts,
		Completed:        progress.Completed,
		CompletedAt:      progress.CompletedAt,
		Warnings:         warnings,
		PrerequisitesMet: true,
		Breakdown:        breakdown,
	}, nil
}

// LevelProgress returns the user's progress row for one level.
func (s *ProgressService) LevelProgress(userID, levelID string) (*model.Progress, error) {
	return s.progress.FindByUserAndLevel(userID, levelID)
}

// GameProgress returns the user's progress rows across a game's levels.
func (s *ProgressService) GameProgress(userID, gameSlug string) ([]model.Progress, error) {
	game, err := s.games.FindBySlug(gameSlug)
	if err != nil {
		return nil, err
	}
	levelList, err := s.levels.FindByGame(game.ID)
	if err != nil {
		return nil, err
	}
	levelIDs := map[string]bool{}
	for _, l := range levelList {
		levelIDs[l.ID] = true
	}

	all, err := s.progress.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Progress, 0, len(all))
	for _, p := range all {
		if levelIDs[p.LevelID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProgressService) reject(game *model.Game, err error) error {
	if re, ok := util.AsRejection(err); ok {
		monitoring.SubmissionRejections.WithLabelValues(re.Code, game.Slug).Inc()
		logger.Log.Info("submission rejected",
			zap.String("game", game.Slug),
			zap.String("code", re.Code),
			zap.String("reason", re.Message))
	}
	return err
}
