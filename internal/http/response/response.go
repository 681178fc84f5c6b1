// Package response implements spec §6's wire envelope: every handler
// response is {code, msg, data}, code=200 on success and 500/400 on error.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the single shape every endpoint in this service responds with.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// RespondOK writes {code:200, msg:"success", data:payload}.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Msg: "success", Data: payload})
}

// RespondError writes {code, msg, data} per spec §6/§7: code is mirrored into
// the HTTP status, data carries the structured validation errors when given.
func RespondError(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{Code: status, Msg: msg, Data: data})
}
