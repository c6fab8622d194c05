package service

import (
	"errors"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
)

// UserStore is the slice of the user repository the identity endpoints need.
type UserStore interface {
	Create(user *model.User) error
	FindByID(id string) (*model.User, error)
	FindBySubjectID(subjectID string) (*model.User, error)
	Update(user *model.User) error
	FindTopByXP(limit int) ([]model.User, error)
}

// ExchangeRequest carries the identity asserted by the platform gateway.
// Upstream credential verification happens before this service is reached.
type ExchangeRequest struct {
	SubjectID     string              `json:"subjectId" binding:"required"`
	Username      string              `json:"username" binding:"required"`
	Email         string              `json:"email"`
	DisplayName   string              `json:"displayName"`
	EducationTier model.EducationTier `json:"educationTier"`
}

// UserService provisions users from asserted identities and issues session
// tokens.
type UserService struct {
	users      UserStore
	jwtSecret  string
	jwtExpires time.Duration
}

func NewUserService(users UserStore, jwtSecret string, jwtExpires time.Duration) *UserService {
	return &UserService{users: users, jwtSecret: jwtSecret, jwtExpires: jwtExpires}
}

// Exchange finds or creates the user behind the asserted subject and returns
// the user with a signed session token. Profile fields are refreshed from the
// assertion on every exchange; education tier only moves forward.
func (s *UserService) Exchange(req ExchangeRequest) (*model.User, string, error) {
	user, err := s.users.FindBySubjectID(req.SubjectID)
	switch {
	case errors.Is(err, util.ErrUserNotFound):
		user = &model.User{
			SubjectID:     req.SubjectID,
			Username:      req.Username,
			Email:         req.Email,
			DisplayName:   req.DisplayName,
			Role:          model.Student,
			EducationTier: req.EducationTier,
		}
		if user.EducationTier == "" {
			user.EducationTier = model.BasicSchool
		}
		if err := s.users.Create(user); err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", err
	default:
		user.Username = req.Username
		user.Email = req.Email
		user.DisplayName = req.DisplayName
		if model.TierIndex(req.EducationTier) > model.TierIndex(user.EducationTier) {
			user.EducationTier = req.EducationTier
		}
		if err := s.users.Update(user); err != nil {
			return nil, "", err
		}
	}

	token, err := util.GenerateJWT(user, s.jwtSecret, s.jwtExpires)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) Get(userID string) (*model.User, error) {
	return s.users.FindByID(userID)
}

// Leaderboard returns the top users by accumulated XP.
func (s *UserService) Leaderboard(limit int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.users.FindTopByXP(limit)
}
