package handlers

import (
	"errors"
	"net/http"
	"time"

	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.BaseResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
		RequestID: c.GetString("request_id"),
	})
}

// respondError writes err as a BaseResponse. Errors without a public kind
// are logged and reported as INTERNAL_ERROR.
func respondError(c *gin.Context, services interfaces.Services, err error, data interface{}) {
	apiErr := models.FromError(err)
	if apiErr.Code == models.ErrCodeInternalError {
		services.GetLogger().WithError(err).Error("request failed",
			"request_id", c.GetString("request_id"),
			"path", c.FullPath())
	}

	c.JSON(apiErr.StatusCode, models.BaseResponse{
		Success: false,
		Data:    data,
		Error: &models.ErrorInfo{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
			Fields:  apiErr.Fields,
		},
		Timestamp: time.Now().Unix(),
		RequestID: c.GetString("request_id"),
	})
}

// bindError reports a request that failed binding or validation
func bindError(err error) *models.APIError {
	apiErr := models.NewAPIError(models.ErrCodeInvalidRequest, "Invalid request parameters", http.StatusBadRequest)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			apiErr.WithField(fe.Field(), fe.Tag())
		}
		return apiErr
	}
	return apiErr.WithDetails(err.Error())
}
