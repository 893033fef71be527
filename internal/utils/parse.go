// Package utils provides small parsing helpers for request values. They are
// independent of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// ParseFID parses a Farcaster ID from a path, query or header value. It
// reports false for anything that is not a positive base-10 integer.
//
// Example:
//
//	fid, ok := utils.ParseFID("198116") // 198116, true
//	_, ok = utils.ParseFID("-1")        // 0, false
//	_, ok = utils.ParseFID("1e3")       // 0, false
func ParseFID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// AtoiDefault parses a query value such as ?limit=, returning def when s is
// empty or not an integer. Range checks are left to the caller.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
