// Package handlers contains the HTTP request handlers of the engine API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// errorBody is the uniform error envelope of the API.
type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeError maps an application error to its HTTP status and envelope.
// Unknown error types are logged and masked as 500s.
func writeError(c *gin.Context, log logger.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		log.Error(c.Request.Context(), "unexpected error", err,
			logger.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, errorBody{
			Code:    string(errors.CodeInternal),
			Message: "internal server error",
		})
		return
	}

	c.JSON(appErr.HTTPStatus(), errorBody{
		Code:    string(appErr.Code()),
		Message: appErr.Error(),
		Details: appErr.Details(),
	})
}
