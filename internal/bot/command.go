// Package bot parses "@farcasturd @target" reply commands out of casts.
//
// Only replies are eligible, the bot handle must appear in the text, and the
// target is the first @mention that is not the bot. Casts that target their
// own author are dropped here; the service repeats the check by FID after
// resolving the username.
package bot

import (
	"regexp"
	"strings"

	"github.com/tbourn/farcasturd-backend/internal/farcaster"
)

var mentionRe = regexp.MustCompile(`@(\w+)`)

// Command is a parsed turd request.
type Command struct {
	SenderFID      int64
	SenderUsername string
	TargetUsername string
	CastHash       string
}

// ParseCommand returns the command in cast, or nil when the cast is not one.
// botHandle is compared without the leading '@' and case-insensitively.
func ParseCommand(cast farcaster.Cast, botHandle string) *Command {
	if !cast.IsReply() {
		return nil
	}
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(botHandle), "@"))
	if handle == "" {
		return nil
	}
	text := strings.ToLower(cast.Text)
	if !strings.Contains(text, "@"+handle) {
		return nil
	}

	var target string
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		if m[1] != handle {
			target = m[1]
			break
		}
	}
	if target == "" {
		return nil
	}
	if strings.EqualFold(target, cast.Author.Username) {
		return nil
	}
	return &Command{
		SenderFID:      cast.Author.FID,
		SenderUsername: cast.Author.Username,
		TargetUsername: target,
		CastHash:       cast.Hash,
	}
}
