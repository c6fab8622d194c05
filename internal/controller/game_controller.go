package controller

import (
	"quantum_quest_backend/internal/service"
	"quantum_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	GameService      *service.GameService
	ChallengeService *service.ChallengeService
}

func NewGameController(gameService *service.GameService, challengeService *service.ChallengeService) *GameController {
	return &GameController{GameService: gameService, ChallengeService: challengeService}
}

// @Summary List games
// @Description Lists active games, optionally filtered by education tier
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param tier query string false "Education tier filter"
// @Success 200 {object} util.Response
// @Router /api/games [get]
func (c *GameController) ListGames(ctx *gin.Context) {
	games, err := c.GameService.ListGames(ctx.Query("tier"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, games)
}

// @Summary Get game
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Game slug"
// @Success 200 {object} util.Response
// @Router /api/games/{slug} [get]
func (c *GameController) GetGame(ctx *gin.Context) {
	game, err := c.GameService.GetGame(ctx.Param("slug"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, game)
}

// @Summary List game levels
// @Description Lists a game's levels ordered by sequence
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Game slug"
// @Success 200 {object} util.Response
// @Router /api/games/{slug}/levels [get]
func (c *GameController) ListLevels(ctx *gin.Context) {
	levels, err := c.GameService.ListLevels(ctx.Param("slug"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// @Summary Get challenge parameters
// @Description Returns the level configuration with per-student seeded challenge fields
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param id path string true "Level ID"
// @Param rotation query string false "Seed rotation override (static, daily, weekly, attempt)"
// @Success 200 {object} util.Response
// @Router /api/levels/{id}/challenge [get]
func (c *GameController) GetChallengeParams(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	params, err := c.ChallengeService.ChallengeParams(user.UserID, ctx.Param("id"), ctx.Query("rotation"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, params)
}
