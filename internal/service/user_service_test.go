package service

import (
	"fmt"
	"testing"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
)

type memUserStore struct {
	byID      map[string]*model.User
	bySubject map[string]*model.User
	nextID    int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]*model.User{}, bySubject: map[string]*model.User{}}
}

func (m *memUserStore) Create(user *model.User) error {
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	m.byID[user.ID] = user
	m.bySubject[user.SubjectID] = user
	return nil
}

func (m *memUserStore) FindByID(id string) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, util.ErrUserNotFound
}

func (m *memUserStore) FindBySubjectID(subjectID string) (*model.User, error) {
	if u, ok := m.bySubject[subjectID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, util.ErrUserNotFound
}

func (m *memUserStore) Update(user *model.User) error {
	copied := *user
	m.byID[user.ID] = &copied
	m.bySubject[user.SubjectID] = &copied
	return nil
}

func (m *memUserStore) FindTopByXP(limit int) ([]model.User, error) {
	var out []model.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const testSecret = "test-secret-needs-at-least-32-characters"

func TestExchangeProvisionsNewUser(t *testing.T) {
	store := newMemUserStore()
	svc := NewUserService(store, testSecret, time.Hour)

	user, token, err := svc.Exchange(ExchangeRequest{
		SubjectID: "idp|alice",
		Username:  "alice",
		Email:     "alice@example.edu",
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if user.ID == "" || user.Role != model.Student {
		t.Fatalf("provisioned user: %+v", user)
	}
	if user.EducationTier != model.BasicSchool {
		t.Fatalf("missing tier should default to basic_school, got %s", user.EducationTier)
	}

	claims, err := util.ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.Student {
		t.Fatalf("claims: %+v", claims)
	}
	if claims.Subject != "idp|alice" {
		t.Fatalf("subject claim: %s", claims.Subject)
	}
}

func TestExchangeRefreshesExistingUser(t *testing.T) {
	store := newMemUserStore()
	svc := NewUserService(store, testSecret, time.Hour)

	first, _, err := svc.Exchange(ExchangeRequest{
		SubjectID:     "idp|bob",
		Username:      "bob",
		EducationTier: model.SeniorHigh,
	})
	if err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	second, _, err := svc.Exchange(ExchangeRequest{
		SubjectID:   "idp|bob",
		Username:    "bob-renamed",
		Email:       "bob@example.edu",
		DisplayName: "Bob",
	})
	if err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("same subject must map to the same user")
	}
	if second.Username != "bob-renamed" || second.Email != "bob@example.edu" {
		t.Fatalf("profile not refreshed: %+v", second)
	}
	// An absent or lower tier in the assertion never demotes the user.
	if second.EducationTier != model.SeniorHigh {
		t.Fatalf("tier demoted to %s", second.EducationTier)
	}

	third, _, err := svc.Exchange(ExchangeRequest{
		SubjectID:     "idp|bob",
		Username:      "bob-renamed",
		EducationTier: model.Undergraduate,
	})
	if err != nil {
		t.Fatalf("third exchange: %v", err)
	}
	if third.EducationTier != model.Undergraduate {
		t.Fatalf("tier should move forward, got %s", third.EducationTier)
	}
}

func TestExchangeRejectsForgedToken(t *testing.T) {
	store := newMemUserStore()
	svc := NewUserService(store, testSecret, time.Hour)

	_, token, err := svc.Exchange(ExchangeRequest{SubjectID: "idp|carol", Username: "carol"})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if _, err := util.ParseJWT(token, "wrong-secret-also-32-characters-long!!"); err == nil {
		t.Fatal("token must not verify under a different secret")
	}
}

func TestLeaderboardLimitClamping(t *testing.T) {
	store := newMemUserStore()
	for i := 0; i < 30; i++ {
		_ = store.Create(&model.User{SubjectID: fmt.Sprintf("s%d", i), Username: "u"})
	}
	svc := NewUserService(store, testSecret, time.Hour)

	users, err := svc.Leaderboard(0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(users) != 20 {
		t.Fatalf("default limit should be 20, got %d", len(users))
	}

	users, err = svc.Leaderboard(101)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(users) != 20 {
		t.Fatalf("out-of-range limit should fall back to 20, got %d", len(users))
	}

	users, err = svc.Leaderboard(5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(users) != 5 {
		t.Fatalf("explicit limit ignored, got %d", len(users))
	}
}
