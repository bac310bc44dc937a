package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/logger"
)

const genericFailure = "request could not be completed"

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
// Invalid lifecycle transitions are integrity errors: they are logged and reported generically.
func Error(c *gin.Context, err error) {
	log := logger.FromGin(c)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindInvalidTransition {
			log.WithError(err).Error("invalid state transition")
			c.JSON(appErr.Code, ErrorResponse{Error: genericFailure})
			return
		}
		if appErr.Code >= http.StatusInternalServerError {
			log.WithError(err).Error("request failed")
		}
		c.JSON(appErr.Code, ErrorResponse{
			Error:   appErr.Message,
			Kind:    string(appErr.Kind),
			Details: appErr.Details,
		})
		return
	}

	log.WithError(err).Error("unhandled error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BadRequest sends a 400 with an optional details string, the way binding failures are reported.
func BadRequest(c *gin.Context, message string, details error) {
	resp := gin.H{"error": message}
	if details != nil {
		resp["details"] = details.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
