package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
	"quantum_quest_backend/pkg/logger"
	"quantum_quest_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SessionStore is the slice of the proctoring repository the state machine
// needs.
type SessionStore interface {
	Create(session *model.ProctoredSession) error
	FindByToken(token string) (*model.ProctoredSession, error)
	Update(session *model.ProctoredSession) error
	AddFlag(flag *model.ProctoringFlag) error
	ListFlags(sessionID string) ([]model.ProctoringFlag, error)
	ListByUser(userID string) ([]model.ProctoredSession, error)
}

// BrowserInfo is the client environment captured at creation and compared on
// every later interaction.
type BrowserInfo struct {
	Fingerprint string `json:"fingerprint"`
	UserAgent   string `json:"userAgent"`
	IPAddress   string `json:"ipAddress"`
}

// ProctoringService drives the proctored-session state machine:
// PENDING -> VERIFIED -> ACTIVE -> {COMPLETED | FLAGGED -> COMPLETED | INVALIDATED}.
// Sessions are never deleted; flags are append-only audit records.
type ProctoringService struct {
	sessions SessionStore
}

func NewProctoringService(sessions SessionStore) *ProctoringService {
	return &ProctoringService{sessions: sessions}
}

func (s *ProctoringService) Create(userID, levelID string, provider model.ProctoringProvider, maxDurationMinutes int, browser *BrowserInfo) (*model.ProctoredSession, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}

	if provider == "" {
		provider = model.ProviderBuiltin
	}
	if maxDurationMinutes <= 0 {
		maxDurationMinutes = 60
	}

	session := &model.ProctoredSession{
		UserID:             userID,
		LevelID:            levelID,
		SessionToken:       token,
		VerificationCode:   code,
		Status:             model.SessionPending,
		Provider:           provider,
		MaxDurationMinutes: maxDurationMinutes,
	}
	if browser != nil {
		session.BrowserFingerprint = browser.Fingerprint
		session.UserAgent = browser.UserAgent
		session.IPAddress = browser.IPAddress
	}

	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	logger.Log.Info("proctored session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.String("level_id", levelID))

	return session, nil
}

// Verify checks the human-entered code and moves PENDING -> VERIFIED. A wrong
// code raises a warning flag and fails; fingerprint drift raises a warning
// flag but does not block.
func (s *ProctoringService) Verify(token, code string, browser BrowserInfo) (*model.ProctoredSession, error) {
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionPending {
		return nil, invalidTransition(fmt.Sprintf("Session is not pending (status: %s)", session.Status))
	}

	if session.VerificationCode != code {
		s.addFlag(session, "INVALID_VERIFICATION_CODE", model.SeverityWarning,
			"Incorrect verification code entered", nil)
		return nil, invalidTransition("Invalid verification code")
	}

	if session.BrowserFingerprint != "" && browser.Fingerprint != "" && browser.Fingerprint != session.BrowserFingerprint {
		s.addFlag(session, "BROWSER_FINGERPRINT_MISMATCH", model.SeverityWarning,
			fmt.Sprintf("Browser fingerprint changed from %s... to %s...",
				prefix(session.BrowserFingerprint, 16), prefix(browser.Fingerprint, 16)), nil)
	}

	now := time.Now()
	session.Status = model.SessionVerified
	session.VerifiedAt = &now
	session.UserAgent = browser.UserAgent
	session.IPAddress = browser.IPAddress

	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Start moves VERIFIED -> ACTIVE and resets the exam clock to now.
func (s *ProctoringService) Start(token string) (*model.ProctoredSession, error) {
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionVerified {
		return nil, invalidTransition(fmt.Sprintf("Session must be verified first (status: %s)", session.Status))
	}

	now := time.Now()
	session.Status = model.SessionActive
	session.StartedAt = &now

	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateActive confirms the session may accept a submission. Expiry
// invalidates the session with a critical flag and fails; IP or user-agent
// drift only accumulates warning flags.
func (s *ProctoringService) ValidateActive(token string, browser BrowserInfo) (*model.ProctoredSession, error) {
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionActive {
		return nil, invalidTransition(fmt.Sprintf("Session is not active (status: %s)", session.Status))
	}

	now := time.Now()
	if session.Expired(now) {
		session.Status = model.SessionInvalidated
		elapsed := now.Sub(*session.StartedAt).Round(time.Second)
		s.addFlag(session, "TIME_LIMIT_EXCEEDED", model.SeverityCritical,
			fmt.Sprintf("Submission attempted after time limit (%s > %dm)", elapsed, session.MaxDurationMinutes), nil)
		if err := s.sessions.Update(session); err != nil {
			return nil, err
		}
		return nil, invalidTransition("Session time limit exceeded")
	}

	if session.IPAddress != "" && browser.IPAddress != "" && session.IPAddress != browser.IPAddress {
		s.addFlag(session, "IP_ADDRESS_CHANGED", model.SeverityWarning,
			fmt.Sprintf("IP changed from %s to %s", session.IPAddress, browser.IPAddress), nil)
	}

	if session.UserAgent != "" && browser.UserAgent != "" && session.UserAgent != browser.UserAgent {
		s.addFlag(session, "USER_AGENT_CHANGED", model.SeverityWarning,
			"Browser user agent changed during session", nil)
	}

	return session, nil
}

// Complete moves ACTIVE or FLAGGED -> COMPLETED and computes the final
// integrity score from the accumulated flags.
func (s *ProctoringService) Complete(token string, notes string) (*model.ProctoredSession, error) {
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionActive && session.Status != model.SessionFlagged {
		return nil, invalidTransition(fmt.Sprintf("Cannot complete session with status: %s", session.Status))
	}

	flags, err := s.sessions.ListFlags(session.ID)
	if err != nil {
		return nil, err
	}
	integrity := IntegrityScore(flags)

	now := time.Now()
	session.Status = model.SessionCompleted
	session.EndedAt = &now
	session.IntegrityScore = &integrity
	session.ProctorNotes = notes

	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Flag appends a flag regardless of status; a critical flag on an ACTIVE
// session moves it to FLAGGED.
func (s *ProctoringService) Flag(token, flagType string, severity model.FlagSeverity, description string, metadata map[string]interface{}) error {
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		return err
	}

	s.addFlag(session, flagType, severity, description, metadata)

	if severity == model.SeverityCritical && session.Status == model.SessionActive {
		session.Status = model.SessionFlagged
		return s.sessions.Update(session)
	}
	return nil
}

func (s *ProctoringService) GetByToken(token string) (*model.ProctoredSession, error) {
	return s.sessions.FindByToken(token)
}

// ListUserSessions returns a user's sessions, optionally filtered to one
// level.
func (s *ProctoringService) ListUserSessions(userID, levelID string) ([]model.ProctoredSession, error) {
	sessions, err := s.sessions.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if levelID == "" {
		return sessions, nil
	}
	filtered := sessions[:0]
	for _, sess := range sessions {
		if sess.LevelID == levelID {
			filtered = append(filtered, sess)
		}
	}
	return filtered, nil
}

func (s *ProctoringService) addFlag(session *model.ProctoredSession, flagType string, severity model.FlagSeverity, description string, metadata map[string]interface{}) {
	var meta json.RawMessage
	if metadata != nil {
		meta, _ = json.Marshal(metadata)
	}
	flag := &model.ProctoringFlag{
		SessionID:   session.ID,
		FlagType:    flagType,
		Severity:    severity,
		Description: description,
		Timestamp:   time.Now(),
		Metadata:    meta,
	}
	if err := s.sessions.AddFlag(flag); err != nil {
		logger.Log.Error("failed to record proctoring flag",
			zap.String("session_id", session.ID),
			zap.String("flag_type", flagType),
			zap.Error(err))
		return
	}
	monitoring.ProctoringFlags.WithLabelValues(string(severity), flagType).Inc()
}

// FlagEvidenceCaptured records an evidence upload. It is an audit entry, not
// a suspicion signal, so it never counts against the integrity score.
const FlagEvidenceCaptured = "EVIDENCE_CAPTURED"

var auditFlagTypes = map[string]bool{
	FlagEvidenceCaptured: true,
}

// IntegrityScore starts at 100 and subtracts 30 per critical, 10 per
// warning, 2 per info flag, floored at 0. Audit-only flag types are skipped.
func IntegrityScore(flags []model.ProctoringFlag) int {
	score := 100
	for _, f := range flags {
		if auditFlagTypes[f.FlagType] {
			continue
		}
		switch f.Severity {
		case model.SeverityCritical:
			score -= 30
		case model.SeverityWarning:
			score -= 10
		case model.SeverityInfo:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

var lockdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)LockDown\s*Browser`),
	regexp.MustCompile(`(?i)Respondus`),
	regexp.MustCompile(`(?i)RLDB`),
}

// ValidateLockdownBrowser checks that the user agent identifies the required
// kiosk browser.
func ValidateLockdownBrowser(userAgent string) error {
	for _, p := range lockdownPatterns {
		if p.MatchString(userAgent) {
			return nil
		}
	}
	return util.Reject(util.CodeLockdownBrowserMissing,
		"This assessment requires Respondus LockDown Browser. Please launch the assessment from LockDown Browser.", nil)
}

// GenerateBrowserFingerprint canonicalizes the client environment into a
// deterministic 32-hex-char fingerprint.
func GenerateBrowserFingerprint(userAgent, screenResolution, timezone, language string) string {
	components := []string{
		userAgent,
		orUnknown(screenResolution),
		orUnknown(timezone),
		orUnknown(language),
	}
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])[:32]
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func generateVerificationCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func invalidTransition(message string) *util.RejectionError {
	return util.Reject(util.CodeInvalidProctoredSess, message, nil)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
