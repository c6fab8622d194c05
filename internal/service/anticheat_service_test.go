package service

import (
	"context"
	"encoding/json"
	"testing"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
)

type fakeGameFinder struct {
	bySlug map[string]*model.Game
	byTier map[model.EducationTier][]model.Game
}

func (f *fakeGameFinder) FindBySlug(slug string) (*model.Game, error) {
	if g, ok := f.bySlug[slug]; ok {
		return g, nil
	}
	return nil, util.ErrGameNotFound
}

func (f *fakeGameFinder) FindByTier(tier model.EducationTier) ([]model.Game, error) {
	return f.byTier[tier], nil
}

type fakeLevelSeq struct {
	bySeq map[int]*model.Level
}

func (f *fakeLevelSeq) FindBySequence(gameID string, sequence int) (*model.Level, error) {
	if l, ok := f.bySeq[sequence]; ok {
		return l, nil
	}
	return nil, util.ErrLevelNotFound
}

type fakeProgressReader struct {
	byUserLevel    map[string]*model.Progress
	completedCount map[string]int64
	masteryCount   int64
	solutions      []json.RawMessage
}

func (f *fakeProgressReader) FindByUserAndLevel(userID, levelID string) (*model.Progress, error) {
	if p, ok := f.byUserLevel[userID+"/"+levelID]; ok {
		return p, nil
	}
	return nil, util.ErrProgressNotFound
}

func (f *fakeProgressReader) CountCompletedInGame(userID, gameID string) (int64, error) {
	return f.completedCount[gameID], nil
}

func (f *fakeProgressReader) CountGamesWithMastery(userID string, gameIDs []string, minStars int) (int64, error) {
	return f.masteryCount, nil
}

func (f *fakeProgressReader) FindOthersBestSolutions(levelID, excludeUserID string, limit int) ([]json.RawMessage, error) {
	return f.solutions, nil
}

func newTestAnticheat(games *fakeGameFinder, levels *fakeLevelSeq, progress *fakeProgressReader) *AnticheatService {
	if games == nil {
		games = &fakeGameFinder{}
	}
	if levels == nil {
		levels = &fakeLevelSeq{}
	}
	if progress == nil {
		progress = &fakeProgressReader{}
	}
	return NewAnticheatService(games, levels, progress, nil, config.DefaultIntegrity())
}

func intPtr(v int) *int { return &v }

func TestValidateCompletionTime(t *testing.T) {
	svc := newTestAnticheat(nil, nil, nil)
	level := &model.Level{EstimatedMinutes: 10, Difficulty: 1}

	if err := svc.ValidateCompletionTime(level, nil); err != nil {
		t.Fatalf("missing time must pass: %v", err)
	}

	// 10 min estimate at difficulty 1: threshold is 60s.
	if err := svc.ValidateCompletionTime(level, intPtr(3)); err == nil {
		t.Fatal("3s completion must be rejected")
	} else if re, ok := util.AsRejection(err); !ok || re.Code != util.CodeTimeAnomaly {
		t.Fatalf("expected TIME_ANOMALY, got %v", err)
	}
	if err := svc.ValidateCompletionTime(level, intPtr(59)); err == nil {
		t.Fatal("59s must be rejected at the 60s threshold")
	}
	if err := svc.ValidateCompletionTime(level, intPtr(60)); err != nil {
		t.Fatalf("60s must pass: %v", err)
	}

	// Higher difficulty scales the threshold up 5% per step.
	hard := &model.Level{EstimatedMinutes: 10, Difficulty: 3}
	if err := svc.ValidateCompletionTime(hard, intPtr(65)); err == nil {
		t.Fatal("65s must be rejected at difficulty 3 (threshold 66s)")
	}
	if err := svc.ValidateCompletionTime(hard, intPtr(66)); err != nil {
		t.Fatalf("66s must pass at difficulty 3: %v", err)
	}

	// Very short estimates fall back to the absolute minimum.
	tiny := &model.Level{EstimatedMinutes: 0, Difficulty: 1}
	if err := svc.ValidateCompletionTime(tiny, intPtr(4)); err == nil {
		t.Fatal("absolute minimum must still apply")
	}
	if err := svc.ValidateCompletionTime(tiny, intPtr(5)); err != nil {
		t.Fatalf("5s must pass the absolute minimum: %v", err)
	}
}

func TestValidateScoreBounds(t *testing.T) {
	svc := newTestAnticheat(nil, nil, nil)

	if err := svc.ValidateScoreBounds(-1, 100); err == nil {
		t.Fatal("negative score must be rejected")
	}
	if err := svc.ValidateScoreBounds(110, 100); err != nil {
		t.Fatalf("score at the bonus tolerance must pass: %v", err)
	}
	if err := svc.ValidateScoreBounds(111, 100); err == nil {
		t.Fatal("score above the bonus tolerance must be rejected")
	} else if re, _ := util.AsRejection(err); re.Code != util.CodeInvalidScore {
		t.Fatalf("expected INVALID_SCORE, got %s", re.Code)
	}
}

func TestCheckPrerequisites(t *testing.T) {
	basics := &model.Game{Slug: "gate-puzzle", Name: "Gate Puzzle"}
	basics.ID = "game-basics"

	gameCfg, _ := json.Marshal(map[string]interface{}{"prerequisite_games": []string{"gate-puzzle"}})
	game := &model.Game{Slug: "grovers-maze", Name: "Grover's Maze", Config: gameCfg}
	game.ID = "game-grover"

	prevLevel := &model.Level{GameID: game.ID, Sequence: 1, Title: "Warmup"}
	prevLevel.ID = "level-1"
	level := &model.Level{GameID: game.ID, Sequence: 2, Title: "Maze"}
	level.ID = "level-2"

	games := &fakeGameFinder{bySlug: map[string]*model.Game{"gate-puzzle": basics}}
	levels := &fakeLevelSeq{bySeq: map[int]*model.Level{1: prevLevel}}
	progress := &fakeProgressReader{
		byUserLevel:    map[string]*model.Progress{},
		completedCount: map[string]int64{},
	}
	svc := newTestAnticheat(games, levels, progress)

	err := svc.CheckPrerequisites("u1", game, level)
	re, ok := util.AsRejection(err)
	if !ok || re.Code != util.CodePrerequisitesNotMet {
		t.Fatalf("expected PREREQUISITES_NOT_MET, got %v", err)
	}
	missing := re.Details["missing"].([]map[string]interface{})
	if len(missing) != 2 {
		t.Fatalf("expected both game and level prerequisites missing, got %v", missing)
	}

	// Satisfy both prerequisites.
	progress.completedCount[basics.ID] = 3
	progress.byUserLevel["u1/level-1"] = &model.Progress{Completed: true}
	if err := svc.CheckPrerequisites("u1", game, level); err != nil {
		t.Fatalf("prerequisites met but still rejected: %v", err)
	}

	// First level in a game has no sequence prerequisite.
	first := &model.Level{GameID: game.ID, Sequence: 1}
	noPrereqGame := &model.Game{Slug: "solo"}
	if err := svc.CheckPrerequisites("u2", noPrereqGame, first); err != nil {
		t.Fatalf("first level of a game without prerequisites: %v", err)
	}
}

func TestCheckEducationTierMastery(t *testing.T) {
	juniorGame := model.Game{Slug: "gate-puzzle"}
	juniorGame.ID = "g1"

	games := &fakeGameFinder{
		byTier: map[model.EducationTier][]model.Game{
			model.JuniorHigh: {juniorGame},
		},
	}
	progress := &fakeProgressReader{masteryCount: 0}
	svc := newTestAnticheat(games, nil, progress)

	// First tier is ungated.
	if err := svc.CheckEducationTierMastery("u1", model.BasicSchool); err != nil {
		t.Fatalf("first tier must be ungated: %v", err)
	}

	err := svc.CheckEducationTierMastery("u1", model.SeniorHigh)
	re, ok := util.AsRejection(err)
	if !ok || re.Code != util.CodeTierMasteryRequired {
		t.Fatalf("expected TIER_MASTERY_REQUIRED, got %v", err)
	}
	if re.Details["previous_tier"] != string(model.JuniorHigh) {
		t.Fatalf("details should name the gating tier: %v", re.Details)
	}

	progress.masteryCount = 1
	if err := svc.CheckEducationTierMastery("u1", model.SeniorHigh); err != nil {
		t.Fatalf("mastery threshold met but still rejected: %v", err)
	}
}

func TestCanonicalSolutionHashStability(t *testing.T) {
	a := json.RawMessage(`{"gates":["H","X"],"score":90}`)
	b := json.RawMessage(`{"score":90,"gates":["H","X"]}`)
	c := json.RawMessage(`{"score":91,"gates":["H","X"]}`)

	if CanonicalSolutionHash(a) != CanonicalSolutionHash(b) {
		t.Fatal("key order must not change the hash")
	}
	if CanonicalSolutionHash(a) == CanonicalSolutionHash(c) {
		t.Fatal("different payloads must hash differently")
	}
}

func TestCheckSolutionDiversity(t *testing.T) {
	level := &model.Level{}
	level.ID = "level-1"
	mine := json.RawMessage(`{"gates":["H","X"],"score":90}`)

	t.Run("unique", func(t *testing.T) {
		progress := &fakeProgressReader{solutions: []json.RawMessage{
			json.RawMessage(`{"gates":["Z"],"score":50}`),
		}}
		svc := newTestAnticheat(nil, nil, progress)
		result, err := svc.CheckSolutionDiversity(context.Background(), "u1", level, mine)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Unique {
			t.Fatalf("distinct solution flagged: %v", result)
		}
	})

	t.Run("exact duplicate under reordered keys", func(t *testing.T) {
		progress := &fakeProgressReader{solutions: []json.RawMessage{
			json.RawMessage(`{"score":90,"gates":["H","X"]}`),
		}}
		svc := newTestAnticheat(nil, nil, progress)
		result, err := svc.CheckSolutionDiversity(context.Background(), "u1", level, mine)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Unique {
			t.Fatal("exact duplicate not detected")
		}
		if result.Details["exact_duplicates"] != 1 {
			t.Fatalf("details: %v", result.Details)
		}
	})

	t.Run("similar solutions above threshold", func(t *testing.T) {
		// Identical gate sequence with a different score: similar, not exact.
		similar := json.RawMessage(`{"gates":["H","X"],"score":85}`)
		progress := &fakeProgressReader{solutions: []json.RawMessage{similar, similar, similar}}
		svc := newTestAnticheat(nil, nil, progress)
		result, err := svc.CheckSolutionDiversity(context.Background(), "u1", level, mine)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Unique {
			t.Fatalf("three near-identical solutions should fail the screen: %v", result.Details)
		}
	})
}
