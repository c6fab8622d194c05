package util

import (
	"errors"
	"net/http"

	"quantum_quest_backend/pkg/logger"
	"quantum_quest_backend/pkg/quantum"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the uniform JSON envelope all handlers return.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse wraps paginated list results.
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// HandleServiceError maps a service-layer error onto the envelope. Rejections
// keep their code and details; known not-found sentinels become 404; an oracle
// outage becomes 503 so clients can retry; anything else is logged and hidden
// behind a 500.
func HandleServiceError(c *gin.Context, err error) {
	if re, ok := AsRejection(err); ok {
		c.JSON(re.HTTPStatus(), Response{
			Code:    re.HTTPStatus(),
			Message: re.Message,
			Data: gin.H{
				"code":    re.Code,
				"details": re.Details,
			},
		})
		return
	}

	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrLevelNotFound),
		errors.Is(err, ErrProgressNotFound),
		errors.Is(err, ErrSessionNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, quantum.ErrOracleUnavailable):
		Error(c, http.StatusServiceUnavailable, "verification service unavailable")
	default:
		LogInternalError(c, err)
	}
}
