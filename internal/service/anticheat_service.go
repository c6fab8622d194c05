package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
	"quantum_quest_backend/pkg/logger"

	"go.uber.org/zap"
)

// GameFinder is the slice of the game repository the anti-cheat checks need.
type GameFinder interface {
	FindBySlug(slug string) (*model.Game, error)
	FindByTier(tier model.EducationTier) ([]model.Game, error)
}

// LevelSeqFinder locates a level by its position within a game.
type LevelSeqFinder interface {
	FindBySequence(gameID string, sequence int) (*model.Level, error)
}

// ProgressReader is the read-only progress access the checks need.
type ProgressReader interface {
	FindByUserAndLevel(userID, levelID string) (*model.Progress, error)
	CountCompletedInGame(userID, gameID string) (int64, error)
	CountGamesWithMastery(userID string, gameIDs []string, minStars int) (int64, error)
	FindOthersBestSolutions(levelID, excludeUserID string, limit int) ([]json.RawMessage, error)
}

// AnticheatService runs the independent integrity checks a submission must
// pass. Each check is side-effect free; the submission pipeline decides what
// a failure means.
type AnticheatService struct {
	games    GameFinder
	levels   LevelSeqFinder
	progress ProgressReader
	cache    *SolutionCache

	policyMu sync.RWMutex
	policy   config.IntegrityConfig
}

func NewAnticheatService(games GameFinder, levels LevelSeqFinder, progress ProgressReader, cache *SolutionCache, policy config.IntegrityConfig) *AnticheatService {
	return &AnticheatService{
		games:    games,
		levels:   levels,
		progress: progress,
		cache:    cache,
		policy:   policy,
	}
}

// SetPolicy swaps the integrity policy; the config watcher calls this on
// reload.
func (s *AnticheatService) SetPolicy(policy config.IntegrityConfig) {
	s.policyMu.Lock()
	s.policy = policy
	s.policyMu.Unlock()
}

func (s *AnticheatService) policyView() config.IntegrityConfig {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	return s.policy
}

// ValidateCompletionTime rejects completions faster than a difficulty-scaled
// fraction of the level's estimate. A missing time passes trivially.
func (s *AnticheatService) ValidateCompletionTime(level *model.Level, timeSeconds *int) error {
	if timeSeconds == nil {
		return nil
	}

	pol := s.policyView()
	estimatedSeconds := level.EstimatedMinutes * 60
	minTime := int(float64(estimatedSeconds) * pol.MinTimeFraction)
	if minTime < pol.AbsoluteMinSeconds {
		minTime = pol.AbsoluteMinSeconds
	}

	multiplier := 1.0 + float64(level.Difficulty-1)*0.05
	minTime = int(float64(minTime) * multiplier)

	if *timeSeconds < minTime {
		return util.Reject(util.CodeTimeAnomaly,
			fmt.Sprintf("Completion time (%ds) is below minimum threshold (%ds) for this level. Please attempt the level legitimately.", *timeSeconds, minTime),
			map[string]interface{}{
				"time_seconds": *timeSeconds,
				"min_time":     minTime,
			})
	}
	return nil
}

// ValidateScoreBounds rejects negative scores and scores beyond the bonus
// tolerance over the maximum.
func (s *AnticheatService) ValidateScoreBounds(score, maxScore int) error {
	if score < 0 {
		return util.Reject(util.CodeInvalidScore, "Score cannot be negative", nil)
	}
	if float64(score) > float64(maxScore)*s.policyView().ScoreBonusTolerance {
		return util.Reject(util.CodeInvalidScore,
			fmt.Sprintf("Score (%d) exceeds maximum possible (%d)", score, maxScore),
			map[string]interface{}{"score": score, "max_score": maxScore})
	}
	return nil
}

// CheckPrerequisites verifies game-level prerequisites (at least one
// completed level in every prerequisite game) and the previous sequence in
// the same game.
func (s *AnticheatService) CheckPrerequisites(userID string, game *model.Game, level *model.Level) error {
	var missing []map[string]interface{}

	for _, slug := range game.DecodeConfig().PrerequisiteGames {
		prereq, err := s.games.FindBySlug(slug)
		if err != nil {
			continue
		}
		count, err := s.progress.CountCompletedInGame(userID, prereq.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			missing = append(missing, map[string]interface{}{
				"type": "game",
				"slug": slug,
				"name": prereq.Name,
			})
		}
	}

	if level.Sequence > 1 {
		prev, err := s.levels.FindBySequence(level.GameID, level.Sequence-1)
		if err == nil {
			p, err := s.progress.FindByUserAndLevel(userID, prev.ID)
			if err != nil || !p.Completed {
				missing = append(missing, map[string]interface{}{
					"type":      "level",
					"game_slug": game.Slug,
					"sequence":  level.Sequence - 1,
					"title":     prev.Title,
				})
			}
		}
	}

	if len(missing) > 0 {
		return util.Reject(util.CodePrerequisitesNotMet, "Prerequisites not met",
			map[string]interface{}{"missing": missing})
	}
	return nil
}

// CheckEducationTierMastery gates access to a tier on demonstrated mastery of
// the one below it. The first tier has no gate.
func (s *AnticheatService) CheckEducationTierMastery(userID string, targetTier model.EducationTier) error {
	prevTier, ok := model.PreviousTier(targetTier)
	if !ok {
		return nil
	}

	prevGames, err := s.games.FindByTier(prevTier)
	if err != nil {
		return err
	}
	gameIDs := make([]string, len(prevGames))
	for i, g := range prevGames {
		gameIDs[i] = g.ID
	}

	pol := s.policyView()
	masteryCount, err := s.progress.CountGamesWithMastery(userID, gameIDs, pol.MasteryMinStars)
	if err != nil {
		return err
	}

	details := map[string]interface{}{
		"previous_tier":       string(prevTier),
		"games_with_mastery":  masteryCount,
		"required_games":      pol.MasteryMinGames,
		"total_games_in_tier": len(prevGames),
	}

	if masteryCount < int64(pol.MasteryMinGames) {
		return util.Reject(util.CodeTierMasteryRequired,
			fmt.Sprintf("You need to achieve %d+ stars in at least %d game(s) from %s before accessing %s content. Current progress: %d/%d",
				pol.MasteryMinStars, pol.MasteryMinGames,
				tierTitle(prevTier), tierTitle(targetTier),
				masteryCount, pol.MasteryMinGames),
			details)
	}
	return nil
}

// DiversityResult is the outcome of a solution-diversity screen. The caller
// decides reject vs penalize; this check only reports.
type DiversityResult struct {
	Unique  bool
	Message string
	Details map[string]interface{}
}

// CheckSolutionDiversity screens a solution against other students' stored
// best solutions on the same level: exact hash duplicates and structural
// near-duplicates above the similarity threshold. The similarity measure is
// a heuristic (gate-set overlap, scalar answer equality, key-value overlap)
// and can misfire in both directions on circuits sharing gate names.
func (s *AnticheatService) CheckSolutionDiversity(ctx context.Context, userID string, level *model.Level, solution json.RawMessage) (*DiversityResult, error) {
	solutionHash := CanonicalSolutionHash(solution)

	others, err := s.otherSolutions(ctx, level.ID, userID)
	if err != nil {
		return nil, err
	}

	pol := s.policyView()
	exactMatches := 0
	similarCount := 0
	for _, other := range others {
		if CanonicalSolutionHash(other) == solutionHash {
			exactMatches++
			continue
		}
		if solutionSimilarity(solution, other) >= pol.SimilarityThreshold {
			similarCount++
		}
	}

	details := map[string]interface{}{
		"solution_hash":     solutionHash[:16] + "...",
		"exact_duplicates":  exactMatches,
		"similar_solutions": similarCount,
		"total_compared":    len(others),
	}

	if exactMatches > 0 {
		return &DiversityResult{
			Unique:  false,
			Message: fmt.Sprintf("This exact solution has been submitted by %d other student(s). Please develop your own unique approach.", exactMatches),
			Details: details,
		}, nil
	}

	if similarCount > pol.MaxSimilarSolutions {
		return &DiversityResult{
			Unique:  false,
			Message: fmt.Sprintf("This solution is very similar to %d other submissions. Consider a different approach to demonstrate your understanding.", similarCount),
			Details: details,
		}, nil
	}

	return &DiversityResult{Unique: true, Details: details}, nil
}

// otherSolutions reads other students' best solutions, through the cache when
// available. Staleness is acceptable here: this is a detection heuristic, not
// a correctness guarantee.
func (s *AnticheatService) otherSolutions(ctx context.Context, levelID, userID string) ([]json.RawMessage, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, levelID, userID); ok {
			return cached, nil
		}
	}

	solutions, err := s.progress.FindOthersBestSolutions(levelID, userID, 500)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, levelID, userID, solutions); err != nil {
			logger.Log.Warn("solution cache write failed", zap.Error(err))
		}
	}
	return solutions, nil
}

// CanonicalSolutionHash hashes a solution with stable key ordering, so two
// payloads differing only in key order hash identically.
func CanonicalSolutionHash(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		sum := sha256.Sum256(raw)
		return hex.EncodeToString(sum[:])
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		sum := sha256.Sum256(raw)
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// solutionSimilarity scores structural similarity in [0, 1].
func solutionSimilarity(raw1, raw2 json.RawMessage) float64 {
	var sol1, sol2 map[string]interface{}
	if json.Unmarshal(raw1, &sol1) != nil || json.Unmarshal(raw2, &sol2) != nil {
		return 0
	}

	// Circuit solutions: gate:qubits set overlap.
	c1, ok1 := sol1["circuit"].(map[string]interface{})
	c2, ok2 := sol2["circuit"].(map[string]interface{})
	if ok1 && ok2 {
		ops1 := opStrings(c1)
		ops2 := opStrings(c2)
		if len(ops1) == 0 || len(ops2) == 0 {
			return 0
		}
		return setOverlap(ops1, ops2)
	}

	// Gate puzzle solutions: gate list overlap, identical order scores 1.
	g1 := gateNames(sol1["gates"])
	g2 := gateNames(sol2["gates"])
	if len(g1) > 0 && len(g2) > 0 {
		if reflect.DeepEqual(g1, g2) {
			return 1.0
		}
		return setOverlap(g1, g2)
	}

	// Algorithm solutions: key parameter equality.
	for _, key := range []string{"found_item", "answer", "final_key"} {
		v1, has1 := sol1[key]
		v2, has2 := sol2[key]
		if has1 && has2 && v1 != nil && v2 != nil {
			if reflect.DeepEqual(v1, v2) {
				return 1.0
			}
			return 0.5
		}
	}

	// Fallback: shared keys with matching values.
	common := 0
	matching := 0
	for k, v1 := range sol1 {
		v2, ok := sol2[k]
		if !ok {
			continue
		}
		common++
		if reflect.DeepEqual(v1, v2) {
			matching++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(matching) / float64(common)
}

func opStrings(circuit map[string]interface{}) []string {
	ops, _ := circuit["operations"].([]interface{})
	out := make([]string, 0, len(ops))
	for _, raw := range ops {
		op, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%v:%v", op["gate"], op["qubits"]))
	}
	return out
}

func gateNames(raw interface{}) []string {
	gates, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(gates))
	for _, g := range gates {
		switch v := g.(type) {
		case string:
			out = append(out, v)
		case map[string]interface{}:
			if name, ok := v["gate"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

func setOverlap(a, b []string) float64 {
	setA := map[string]bool{}
	for _, s := range a {
		setA[s] = true
	}
	seen := map[string]bool{}
	common := 0
	for _, s := range b {
		if setA[s] && !seen[s] {
			common++
			seen[s] = true
		}
	}
	total := len(a)
	if len(b) > total {
		total = len(b)
	}
	if total == 0 {
		return 0
	}
	return float64(common) / float64(total)
}

func tierTitle(t model.EducationTier) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
