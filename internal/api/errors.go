package api

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes.
// Unexpected errors are logged and answered without details.
func respondError(c *gin.Context, err error) {
	var verrs validation.Errors
	var ruleErr *models.RuleError
	var transErr *models.TransitionError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": verrs,
		})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": ruleErr.Message,
			"code":  ruleErr.Code,
		})
	case errors.As(err, &transErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": transErr.Error(),
			"code":  "INVALID_TRANSITION",
			"from":  transErr.From,
			"to":    transErr.To,
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		util.Logger(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// idParam parses a positive int64 path parameter, answering 400 when it is not one
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name, nil)
		return 0, false
	}
	return v, true
}
