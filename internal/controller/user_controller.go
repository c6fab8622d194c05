package controller

import (
	"strconv"

	"quantum_quest_backend/internal/service"
	"quantum_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// @Summary Exchange identity for a session token
// @Description Provisions the user behind an asserted identity and returns a JWT
// @Tags users
// @Accept json
// @Produce json
// @Param identity body service.ExchangeRequest true "Asserted identity"
// @Success 200 {object} util.Response
// @Router /api/auth/exchange [post]
func (c *UserController) Exchange(ctx *gin.Context) {
	var req service.ExchangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, token, err := c.UserService.Exchange(req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

// @Summary Get my profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/users/me [get]
func (c *UserController) GetMe(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.UserService.Get(user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// @Summary XP leaderboard
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries (default 20, max 100)"
// @Success 200 {object} util.Response
// @Router /api/leaderboard [get]
func (c *UserController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	users, err := c.UserService.Leaderboard(limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, users)
}
