package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coachflow-backend/internal/pkg/apierr"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
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

// RespondErr maps err onto a status and code. *apierr.Error wins over the
// sentinel errors it may wrap.
func RespondErr(c *gin.Context, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, status, code, err)
}

func Classify(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status, ae.Code
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, pkgerrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, pkgerrors.ErrUnsubscribed), errors.Is(err, pkgerrors.ErrChannelUnavailable):
		return http.StatusUnprocessableEntity, "undeliverable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
