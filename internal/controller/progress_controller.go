package controller

import (
	"errors"

	"quantum_quest_backend/internal/service"
	"quantum_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary Submit level completion
// @Description Runs the full integrity pipeline and records progress on success
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Level ID"
// @Param submission body service.SubmitRequest true "Completion submission"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/levels/{id}/complete [post]
func (c *ProgressController) SubmitLevel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.SubmitLevel(ctx.Request.Context(), user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary Get level progress
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path string true "Level ID"
// @Success 200 {object} util.Response
// @Router /api/levels/{id}/progress [get]
func (c *ProgressController) GetLevelProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.LevelProgress(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrProgressNotFound) {
			util.Success(ctx, nil)
			return
		}
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Get game progress
// @Description Returns the user's progress across all levels of a game
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Game slug"
// @Success 200 {object} util.Response
// @Router /api/games/{slug}/progress [get]
func (c *ProgressController) GetGameProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.GameProgress(user.UserID, ctx.Param("slug"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
