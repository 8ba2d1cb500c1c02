package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/apierr"
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

// RespondAPIError classifies err with apierr and writes the envelope.
func RespondAPIError(c *gin.Context, err error, fallbackStatus int, fallbackCode string) {
	ae := apierr.From(err, fallbackStatus, fallbackCode)
	if ae == nil {
		ae = apierr.New(fallbackStatus, fallbackCode, nil)
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
