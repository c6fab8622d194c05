package model

import (
	"encoding/json"
	"time"
)

// SessionStatus is the proctored session lifecycle state.
type SessionStatus string

const (
	SessionPending     SessionStatus = "PENDING"
	SessionVerified    SessionStatus = "VERIFIED"
	SessionActive      SessionStatus = "ACTIVE"
	SessionCompleted   SessionStatus = "COMPLETED"
	SessionFlagged     SessionStatus = "FLAGGED"
	SessionInvalidated SessionStatus = "INVALIDATED"
)

type ProctoringProvider string

const (
	ProviderBuiltin  ProctoringProvider = "builtin"
	ProviderLockdown ProctoringProvider = "lockdown_browser"
	ProviderExternal ProctoringProvider = "external"
)

type FlagSeverity string

const (
	SeverityInfo     FlagSeverity = "info"
	SeverityWarning  FlagSeverity = "warning"
	SeverityCritical FlagSeverity = "critical"
)

// swagger:model ProctoredSession
type ProctoredSession struct {
	UUIDBase

	UserID             string             `gorm:"index;type:varchar(36);not null" json:"userId"`
	LevelID            string             `gorm:"index;type:varchar(36);not null" json:"levelId"`
	SessionToken       string             `gorm:"size:64;uniqueIndex;not null" json:"-"`
	VerificationCode   string             `gorm:"size:16;not null" json:"-"`
	Status             SessionStatus      `gorm:"size:20;default:'PENDING';index" json:"status"`
	Provider           ProctoringProvider `gorm:"size:30;default:'builtin'" json:"provider"`
	BrowserFingerprint string             `gorm:"size:64" json:"-"`
	UserAgent          string             `gorm:"size:512" json:"-"`
	IPAddress          string             `gorm:"size:45" json:"-"`
	StartedAt          *time.Time         `json:"startedAt,omitempty"`
	VerifiedAt         *time.Time         `json:"verifiedAt,omitempty"`
	EndedAt            *time.Time         `json:"endedAt,omitempty"`
	MaxDurationMinutes int                `gorm:"default:60" json:"maxDurationMinutes"`
	IntegrityScore     *int               `json:"integrityScore,omitempty"`
	ProctorNotes       string             `gorm:"type:text" json:"proctorNotes,omitempty"`

	Flags []ProctoringFlag `gorm:"foreignKey:SessionID" json:"flags,omitempty"`
}

func (ProctoredSession) TableName() string {
	return "proctored_sessions"
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionInvalidated
}

// Expired reports whether the session has exceeded its maximum duration,
// counted from activation.
func (p *ProctoredSession) Expired(now time.Time) bool {
	if p.StartedAt == nil {
		return false
	}
	return now.After(p.StartedAt.Add(time.Duration(p.MaxDurationMinutes) * time.Minute))
}

// swagger:model ProctoringFlag
type ProctoringFlag struct {
	UUIDBase

	SessionID   string          `gorm:"index;type:varchar(36);not null" json:"sessionId"`
	FlagType    string          `gorm:"size:50;not null" json:"flagType"`
	Severity    FlagSeverity    `gorm:"size:10;default:'info'" json:"severity"`
	Description string          `gorm:"size:512" json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    json.RawMessage `gorm:"type:json" json:"metadata,omitempty"`
}

func (ProctoringFlag) TableName() string {
	return "proctoring_flags"
}
