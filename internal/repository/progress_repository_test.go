package repository

import (
	"encoding/json"
	"testing"

	"quantum_quest_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One in-memory sqlite database per test, shared by all statements.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.User{}, &model.Progress{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{SubjectID: "idp|student", Username: "student"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func userXP(t *testing.T, db *gorm.DB, userID string) int {
	t.Helper()
	var user model.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user.TotalXP
}

func secPtr(v int) *int { return &v }

func TestApplySubmissionFirstCompletion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewProgressRepository(db)

	sol := json.RawMessage(`{"gates":["H"]}`)
	p, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score:       95,
		MaxScore:    100,
		TimeSeconds: secPtr(120),
		Solution:    sol,
		XPReward:    50,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Attempts != 1 || p.Score != 95 || p.Stars != 3 {
		t.Fatalf("row after first submission: %+v", p)
	}
	if !p.Completed || p.CompletedAt == nil {
		t.Fatalf("first starred submission should complete the level: %+v", p)
	}
	if p.BestTimeSeconds == nil || *p.BestTimeSeconds != 120 {
		t.Fatalf("best time: %v", p.BestTimeSeconds)
	}
	if got := userXP(t, db, user.ID); got != 50 {
		t.Fatalf("xp after completion: %d", got)
	}
}

func TestApplySubmissionMonotonicAndOneTimeXP(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewProgressRepository(db)

	if _, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 95, MaxScore: 100, TimeSeconds: secPtr(120), XPReward: 50,
	}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// A worse score with a better time: score holds, time improves, no new XP.
	p, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 50, MaxScore: 100, TimeSeconds: secPtr(90), XPReward: 50,
	})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if p.Attempts != 2 || p.Score != 95 || p.Stars != 3 {
		t.Fatalf("row after worse score: %+v", p)
	}
	if *p.BestTimeSeconds != 90 {
		t.Fatalf("best time should improve to 90, got %d", *p.BestTimeSeconds)
	}

	// A slower run later leaves the best time alone.
	p, err = repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 100, MaxScore: 100, TimeSeconds: secPtr(150), XPReward: 50,
	})
	if err != nil {
		t.Fatalf("third apply: %v", err)
	}
	if p.Score != 100 || *p.BestTimeSeconds != 90 {
		t.Fatalf("row after slower perfect run: %+v", p)
	}

	if got := userXP(t, db, user.ID); got != 50 {
		t.Fatalf("xp must be awarded once, got %d", got)
	}
}

func TestApplySubmissionAwardsXPOnFirstStar(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewProgressRepository(db)

	p, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 40, MaxScore: 100, XPReward: 50,
	})
	if err != nil {
		t.Fatalf("starless apply: %v", err)
	}
	if p.Completed || p.Stars != 0 {
		t.Fatalf("starless submission must not complete: %+v", p)
	}
	if got := userXP(t, db, user.ID); got != 0 {
		t.Fatalf("xp before first star: %d", got)
	}

	p, err = repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 60, MaxScore: 100, XPReward: 50,
	})
	if err != nil {
		t.Fatalf("starred apply: %v", err)
	}
	if !p.Completed || p.Stars != 1 {
		t.Fatalf("one-star submission should complete: %+v", p)
	}
	if got := userXP(t, db, user.ID); got != 50 {
		t.Fatalf("xp after first star: %d", got)
	}
}

func TestApplySubmissionKeepsSolutionOnScoreOnlyUpdate(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewProgressRepository(db)

	sol := json.RawMessage(`{"gates":["H","Z","Z"]}`)
	if _, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 80, MaxScore: 100, Solution: sol,
	}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// A higher score with no solution payload improves the score but must not
	// null out the stored solution.
	if _, err := repo.ApplySubmission(user.ID, "level-1", SubmissionUpdate{
		Score: 90, MaxScore: 100,
	}); err != nil {
		t.Fatalf("score-only apply: %v", err)
	}

	row, err := repo.FindByUserAndLevel(user.ID, "level-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Score != 90 {
		t.Fatalf("score: %d", row.Score)
	}
	if string(row.BestSolution) != string(sol) {
		t.Fatalf("best solution overwritten: %q", row.BestSolution)
	}
}

func TestFindOthersBestSolutionsExcludesOwnAndEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepository(db)

	mine := &model.User{SubjectID: "idp|me", Username: "me"}
	other := &model.User{SubjectID: "idp|other", Username: "other"}
	silent := &model.User{SubjectID: "idp|silent", Username: "silent"}
	for _, u := range []*model.User{mine, other, silent} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed %s: %v", u.Username, err)
		}
	}

	if _, err := repo.ApplySubmission(mine.ID, "level-1", SubmissionUpdate{
		Score: 90, MaxScore: 100, Solution: json.RawMessage(`{"gates":["H"]}`),
	}); err != nil {
		t.Fatalf("apply mine: %v", err)
	}
	if _, err := repo.ApplySubmission(other.ID, "level-1", SubmissionUpdate{
		Score: 90, MaxScore: 100, Solution: json.RawMessage(`{"gates":["X","H"]}`),
	}); err != nil {
		t.Fatalf("apply other: %v", err)
	}
	// A row with no stored solution must not appear in the comparison set.
	if _, err := repo.ApplySubmission(silent.ID, "level-1", SubmissionUpdate{
		Score: 90, MaxScore: 100,
	}); err != nil {
		t.Fatalf("apply silent: %v", err)
	}

	solutions, err := repo.FindOthersBestSolutions("level-1", mine.ID, 10)
	if err != nil {
		t.Fatalf("find others: %v", err)
	}
	if len(solutions) != 1 || string(solutions[0]) != `{"gates":["X","H"]}` {
		t.Fatalf("solutions: %v", solutions)
	}
}
