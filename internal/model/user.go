package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Proctor UserRole = "proctor"
	Admin   UserRole = "admin"
)

// EducationTier is the ordered progression of audiences a game targets.
// Tier gating compares positions in this order, not string values.
type EducationTier string

const (
	BasicSchool   EducationTier = "basic_school"
	JuniorHigh    EducationTier = "junior_high"
	SeniorHigh    EducationTier = "senior_high"
	Undergraduate EducationTier = "undergraduate"
	Postgraduate  EducationTier = "postgraduate"
	Researcher    EducationTier = "researcher"
)

var tierOrder = []EducationTier{
	BasicSchool,
	JuniorHigh,
	SeniorHigh,
	Undergraduate,
	Postgraduate,
	Researcher,
}

// TierIndex returns the position of t in the tier progression, or -1 when t
// is not a known tier.
func TierIndex(t EducationTier) int {
	for i, tier := range tierOrder {
		if tier == t {
			return i
		}
	}
	return -1
}

// PreviousTier returns the tier directly below t and false when t is the
// first tier or unknown.
func PreviousTier(t EducationTier) (EducationTier, bool) {
	idx := TierIndex(t)
	if idx <= 0 {
		return "", false
	}
	return tierOrder[idx-1], true
}

// swagger:model User
type User struct {
	UUIDBase

	SubjectID     string        `gorm:"size:255;uniqueIndex;not null" json:"-"` // identity provider subject
	Username      string        `gorm:"size:100;not null" json:"username"`
	Email         string        `gorm:"size:255" json:"email"`
	DisplayName   string        `gorm:"size:255" json:"displayName"`
	Role          UserRole      `gorm:"size:20;default:'student'" json:"role"`
	EducationTier EducationTier `gorm:"size:30;default:'basic_school'" json:"educationTier"`
	TotalXP       int           `gorm:"default:0" json:"totalXp"`
}

func (User) TableName() string {
	return "users"
}
