package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform JSON body.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Code: CodeOK, Message: "ok", Data: data})
}

// Fail writes an error envelope from an AppError.
func Fail(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		appErr = Internal("unknown error")
	}
	c.JSON(appErr.HTTPStatus, Envelope{Code: appErr.Code, Message: appErr.Message})
}
