package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope every endpoint returns.
//
//	{"request_id":"…","code":"generation_quota","error":"…","message":"…","retryable":false}
//
// The mini app branches on Code and Retryable and shows Error; Message
// carries the same text for clients of the older envelope.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Error     string `json:"error" example:"farcasturd not generated"`
	Message   string `json:"message" example:"farcasturd not generated"`
	Retryable bool   `json:"retryable" example:"false"`
}

// fail aborts with an error envelope. 5xx responses are retryable and
// logged with the request logger.
func fail(c *gin.Context, status int, code, msg string) {
	abortWith(c, status, code, msg, status >= http.StatusInternalServerError)
}

// failFinal is fail for server-side failures that will not clear on their
// own, such as an exhausted image quota.
func failFinal(c *gin.Context, status int, code, msg string) {
	abortWith(c, status, code, msg, false)
}

func abortWith(c *gin.Context, status int, code, msg string, retryable bool) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Bool("retryable", retryable).
			Str("path", c.FullPath()).
			Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Error:     msg,
		Message:   msg,
		Retryable: retryable,
	})
}

// Fail lets the router's fallbacks use the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okCached is a 200 carrying a Cache-Control policy for the CDN in front of
// the mini app and the NFT marketplaces reading metadata.
func okCached(c *gin.Context, cacheControl string, body any) {
	c.Header("Cache-Control", cacheControl)
	c.JSON(http.StatusOK, body)
}
