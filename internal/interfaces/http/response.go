package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error part of a failed response
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// respondError maps err to its HTTP status; unclassified errors are logged and hidden
func (h *Handlers) respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	meta := apperrors.MetadataFor(code)

	body := &ErrorBody{Code: string(code), Message: meta.PublicMessage}
	if appErr := apperrors.As(err); appErr != nil && code != apperrors.CodeInternal {
		body.Message = appErr.Message()
		if meta.DetailsAllowed {
			body.Details = appErr.Details()
		}
	}

	if meta.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"code", code,
			"error", err)
	}

	c.AbortWithStatusJSON(meta.HTTPStatus, Response{Success: false, Error: body})
}
