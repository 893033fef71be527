// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the three request authenticators:
//
//   - Session / RequireSession: user routes. Authorization: Bearer <session
//     token> issued by /api/auth/verify. Session runs globally and stores a
//     verified session in the Gin context (SessionFrom); RequireSession
//     rejects protected routes that have none.
//   - CronSecret: the scheduled mention poll. Authorization: Bearer <CRON_SECRET>.
//   - NeynarSignature: the mentions webhook. X-Neynar-Signature is the hex
//     HMAC-SHA512 of the raw body keyed by the webhook secret. The body is
//     restored after verification so the handler can bind it.
//
// Failures use the standard error envelope.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/auth"
)

const sessionKey = "session"

// SessionParser verifies a bearer token.
type SessionParser interface {
	Parse(token string) (auth.Session, error)
}

// SessionFrom returns the authenticated session, if any.
func SessionFrom(c *gin.Context) (auth.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return auth.Session{}, false
	}
	s, ok := v.(auth.Session)
	return s, ok
}

// bearer extracts the token from an Authorization header.
func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func deny(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
		"retryable":  false,
	})
}

// Session parses an optional bearer token and, when valid, stores the
// session for later middleware and handlers. It never rejects.
func Session(p SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := bearer(c); tok != "" {
			if sess, err := p.Parse(tok); err == nil {
				c.Set(sessionKey, sess)
			}
		}
		c.Next()
	}
}

// RequireSession rejects requests that Session did not authenticate.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); !ok {
			deny(c, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		c.Next()
	}
}

// CronSecret guards the scheduled job endpoint. An empty secret rejects
// every request.
func CronSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(bearer(c))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			deny(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		c.Next()
	}
}

// NeynarSignature verifies webhook deliveries. An empty secret disables the
// check; callers log that at startup.
func NeynarSignature(secret string, maxBody int64) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil {
			deny(c, http.StatusBadRequest, "bad_request", "unreadable body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidSignature(key, body, c.GetHeader(HeaderNeynarSignature)) {
			deny(c, http.StatusUnauthorized, "unauthorized", "invalid webhook signature")
			return
		}
		c.Next()
	}
}

// ValidSignature reports whether sig is the hex HMAC-SHA512 of body.
func ValidSignature(key, body []byte, sig string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, key)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
