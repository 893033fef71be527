// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a small hardening middleware for the
// JSON and image API behind a reverse proxy. HSTS is opt-in and only sent for
// HTTPS requests. The API is called from a mini app that Farcaster clients
// render inside an iframe, so framing is controlled with a CSP
// frame-ancestors list when one is configured, and denied otherwise.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS     bool          // set only when traffic is HTTPS end-to-end
	HSTSMaxAge     time.Duration // defaults to 180 days
	NoStore        bool          // Cache-Control: no-store on every response
	EnablePolicy   bool          // Permissions-Policy and friends
	FrameAncestors []string      // allowed embedders; empty means DENY
}

// SecurityHeaders returns a Gin middleware that adds the security headers.
// Handlers that set their own Cache-Control (images, metadata) run after it
// and win.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"
	frame := ""
	if len(opt.FrameAncestors) > 0 {
		frame = "frame-ancestors " + strings.Join(opt.FrameAncestors, " ")
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		if frame != "" {
			h.Set("Content-Security-Policy", frame)
		} else {
			h.Set("X-Frame-Options", "DENY")
		}

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			const hdr = "Access-Control-Expose-Headers"
			if cur := h.Get(hdr); cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
