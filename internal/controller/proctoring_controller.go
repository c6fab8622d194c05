package controller

import (
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/service"
	"quantum_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProctoringController struct {
	ProctoringService *service.ProctoringService
	EvidenceService   *service.EvidenceService
	Monitor           *service.ProctoringMonitor
}

func NewProctoringController(proctoringService *service.ProctoringService, evidenceService *service.EvidenceService, monitor *service.ProctoringMonitor) *ProctoringController {
	return &ProctoringController{
		ProctoringService: proctoringService,
		EvidenceService:   evidenceService,
		Monitor:           monitor,
	}
}

type CreateSessionRequest struct {
	LevelID            string                   `json:"levelId" binding:"required"`
	Provider           model.ProctoringProvider `json:"provider"`
	MaxDurationMinutes int                      `json:"maxDurationMinutes"`
	Browser            *service.BrowserInfo     `json:"browserInfo"`
}

type VerifySessionRequest struct {
	Code    string              `json:"code" binding:"required"`
	Browser service.BrowserInfo `json:"browserInfo"`
}

type FlagSessionRequest struct {
	FlagType    string                 `json:"flagType" binding:"required"`
	Severity    model.FlagSeverity     `json:"severity" binding:"required"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type CompleteSessionRequest struct {
	Notes string `json:"notes"`
}

// sessionView is the client-facing shape of a session. The verification code
// is only shown while the session is still PENDING; the session token only on
// creation.
type sessionView struct {
	*model.ProctoredSession
	SessionToken         string `json:"sessionToken,omitempty"`
	VerificationCode     string `json:"verificationCode,omitempty"`
	TimeRemainingSeconds *int   `json:"timeRemainingSeconds,omitempty"`
}

func newSessionView(session *model.ProctoredSession, includeToken bool) sessionView {
	view := sessionView{ProctoredSession: session}
	if includeToken {
		view.SessionToken = session.SessionToken
	}
	if session.Status == model.SessionPending {
		view.VerificationCode = session.VerificationCode
	}
	if session.Status == model.SessionActive && session.StartedAt != nil {
		deadline := session.StartedAt.Add(time.Duration(session.MaxDurationMinutes) * time.Minute)
		remaining := int(time.Until(deadline).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		view.TimeRemainingSeconds = &remaining
	}
	return view
}

// canAccess reports whether the caller may inspect the session. Students see
// only their own sessions; proctors and teachers see all of them.
func canAccess(user *util.Claims, session *model.ProctoredSession) bool {
	if session.UserID == user.UserID {
		return true
	}
	switch user.Role {
	case model.Proctor, model.Teacher, model.Admin:
		return true
	}
	return false
}

// @Summary Create proctored session
// @Description Creates a PENDING session for a level; the lockdown_browser provider requires a LockDown Browser user agent
// @Tags proctoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body CreateSessionRequest true "Session parameters"
// @Success 201 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/proctoring/sessions [post]
func (c *ProctoringController) CreateSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if req.Provider == model.ProviderLockdown {
		if err := service.ValidateLockdownBrowser(ctx.GetHeader("User-Agent")); err != nil {
			util.HandleServiceError(ctx, err)
			return
		}
	}

	session, err := c.ProctoringService.Create(user.UserID, req.LevelID, req.Provider, req.MaxDurationMinutes, req.Browser)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, newSessionView(session, true))
}

// @Summary Verify proctored session
// @Description Confirms the verification code and moves the session to VERIFIED
// @Tags proctoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Param verification body VerifySessionRequest true "Verification code and browser info"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/proctoring/sessions/{token}/verify [post]
func (c *ProctoringController) VerifySession(ctx *gin.Context) {
	var req VerifySessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.ProctoringService.Verify(ctx.Param("token"), req.Code, req.Browser)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, newSessionView(session, false))
}

// @Summary Start proctored session
// @Description Moves a VERIFIED session to ACTIVE and starts the exam clock
// @Tags proctoring
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/proctoring/sessions/{token}/start [post]
func (c *ProctoringController) StartSession(ctx *gin.Context) {
	session, err := c.ProctoringService.Start(ctx.Param("token"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, newSessionView(session, false))
}

// @Summary Flag proctored session
// @Description Appends an integrity flag to the session audit trail
// @Tags proctoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Param flag body FlagSessionRequest true "Flag details"
// @Success 200 {object} util.Response
// @Router /api/proctoring/sessions/{token}/flags [post]
func (c *ProctoringController) FlagSession(ctx *gin.Context) {
	var req FlagSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProctoringService.Flag(ctx.Param("token"), req.FlagType, req.Severity, req.Description, req.Metadata); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Complete proctored session
// @Description Moves an ACTIVE or FLAGGED session to COMPLETED and computes the integrity score
// @Tags proctoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Param completion body CompleteSessionRequest false "Proctor notes"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/proctoring/sessions/{token}/complete [post]
func (c *ProctoringController) CompleteSession(ctx *gin.Context) {
	var req CompleteSessionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	session, err := c.ProctoringService.Complete(ctx.Param("token"), req.Notes)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, newSessionView(session, false))
}

// @Summary Get proctored session
// @Tags proctoring
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Success 200 {object} util.Response
// @Router /api/proctoring/sessions/{token} [get]
func (c *ProctoringController) GetSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.ProctoringService.GetByToken(ctx.Param("token"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if !canAccess(user, session) {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, newSessionView(session, false))
}

// @Summary List my proctored sessions
// @Tags proctoring
// @Produce json
// @Security BearerAuth
// @Param levelId query string false "Filter by level ID"
// @Success 200 {object} util.Response
// @Router /api/proctoring/sessions [get]
func (c *ProctoringController) ListSessions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessions, err := c.ProctoringService.ListUserSessions(user.UserID, ctx.Query("levelId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	views := make([]sessionView, len(sessions))
	for i := range sessions {
		views[i] = newSessionView(&sessions[i], false)
	}
	util.Success(ctx, views)
}

// @Summary Upload proctoring evidence
// @Description Stores a webcam or screen snapshot for an active session
// @Tags proctoring
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param token path string true "Session token"
// @Param kind formData string false "Evidence kind (webcam, screen)"
// @Param file formData file true "Snapshot file"
// @Success 201 {object} util.Response
// @Router /api/proctoring/sessions/{token}/evidence [post]
func (c *ProctoringController) UploadEvidence(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	kind := ctx.PostForm("kind")
	if kind == "" {
		kind = "webcam"
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	objectKey, err := c.EvidenceService.UploadSnapshot(
		ctx.Request.Context(),
		ctx.Param("token"),
		kind,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"objectKey": objectKey})
}

// @Summary Proctoring monitor websocket
// @Description Upgrades to a websocket carrying heartbeats and client-reported integrity events
// @Tags proctoring
// @Security BearerAuth
// @Param token path string true "Session token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/proctoring/sessions/{token}/monitor [get]
func (c *ProctoringController) MonitorSession(ctx *gin.Context) {
	if err := c.Monitor.Serve(ctx.Writer, ctx.Request, ctx.Param("token")); err != nil {
		util.HandleServiceError(ctx, err)
	}
}
