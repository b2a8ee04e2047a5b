package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/platform/apierr"
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

// RespondErr writes err using its apierr kind and aborts the chain. Internal
// errors are recorded on the context for the request logger and reported to
// the caller without detail.
func RespondErr(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.Internal("unknown error")
	}
	_ = c.Error(err)
	c.Abort()
	if ae.Kind == apierr.KindInternal {
		c.JSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "internal server error", Code: string(apierr.KindInternal)},
		})
		return
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusBadRequest
	}
	RespondError(c, status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
