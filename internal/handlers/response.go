package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the error taxonomy onto HTTP statuses:
// caller input errors are 400/422, missing entities 404, wrong-state
// operations 409, and everything else a 500.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, apperrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case stderrors.Is(err, apperrors.ErrInvalidOptions):
		RespondError(c, http.StatusBadRequest, "invalid_options", err)
	case stderrors.Is(err, apperrors.ErrInvalidRatio):
		RespondError(c, http.StatusBadRequest, "invalid_ratio", err)
	case stderrors.Is(err, apperrors.ErrUnsupportedLayout):
		RespondError(c, http.StatusUnprocessableEntity, "unsupported_layout", err)
	case stderrors.Is(err, apperrors.ErrInvalidState):
		RespondError(c, http.StatusConflict, "invalid_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
