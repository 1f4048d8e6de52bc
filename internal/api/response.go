package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "directory-engine/internal/common/errors"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Field   string              `json:"field,omitempty"`
	Details string              `json:"details,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// respondError writes the error envelope. Store and internal failures keep
// their cause out of the body.
func respondError(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)

	body := &ErrorBody{Code: stdErr.Code, Message: stdErr.Message}
	if field, ok := stdErr.Metadata["field"].(string); ok {
		body.Field = field
	}
	switch stdErr.Code {
	case apperrors.ErrCodeInvalidRequest, apperrors.ErrCodeValidationFailed:
		body.Details = stdErr.Details
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), Envelope{Success: false, Error: body})
}

func respondBadBody(c *gin.Context, err error) {
	respondError(c, apperrors.NewInvalidRequestError("malformed JSON body: "+err.Error()))
}

func notFoundRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, Envelope{Success: false, Error: &ErrorBody{
		Code:    apperrors.ErrCodeNotFound,
		Message: "Resource not found",
	}})
}
