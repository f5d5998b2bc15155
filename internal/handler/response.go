package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the body of every /api response. Code is 0 on success and the
// HTTP status otherwise; Kind names the failure class for clients.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Kind    string         `json:"kind,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, envelope{Message: "ok", Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	Fail(c, status, "", message, meta)
}

func Fail(c *gin.Context, status int, kind, message string, meta map[string]any) {
	c.JSON(status, envelope{Code: status, Kind: kind, Message: message, Meta: meta})
}
