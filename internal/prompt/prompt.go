// Package prompt builds the image-generation prompt for a Farcasturd.
//
// Build is pure: the same FID, profile and palette always produce the same
// string. Personalization comes from the display name, a short bio snippet,
// a persona phrase picked by keyword matching on the bio, and optionally the
// avatar palette.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/palette"
)

// BioSnippetMax caps the bio excerpt, in runes.
const BioSnippetMax = 200

type persona struct {
	name     string
	keywords []string
	phrase   string
}

// Order matters: the first category with a matching keyword wins.
var personas = []persona{
	{
		name:     "tech",
		keywords: []string{"developer", "engineer", "code", "coding", "software", "hacker", "programmer", "builder", "founder", "ai"},
		phrase:   "Give it a builder personality: tiny headset or glasses, a glowing laptop nearby, focused but friendly.",
	},
	{
		name:     "art",
		keywords: []string{"artist", "art", "design", "designer", "painter", "illustrator", "creative", "photographer"},
		phrase:   "Give it an artist personality: a beret or paint splashes, holding a tiny brush, playful and expressive.",
	},
	{
		name:     "crypto",
		keywords: []string{"crypto", "web3", "onchain", "defi", "nft", "eth", "ethereum", "degen", "base", "blockchain"},
		phrase:   "Give it an onchain degen personality: laser eyes optional, a small glowing coin or chain link accessory, confident grin.",
	},
	{
		name:     "music",
		keywords: []string{"music", "musician", "dj", "producer", "singer", "songwriter", "band", "guitar"},
		phrase:   "Give it a musician personality: headphones or a tiny guitar, musical notes floating nearby, grooving mood.",
	},
	{
		name:     "gaming",
		keywords: []string{"gamer", "gaming", "games", "esports", "streamer", "twitch", "playstation", "xbox", "nintendo"},
		phrase:   "Give it a gamer personality: a controller in hand, RGB glow accents, competitive but cheerful.",
	},
}

const defaultPersona = "Give it a cheerful, approachable personality with a big friendly smile."

// Persona returns the persona category name for bio ("default" when none
// matches).
func Persona(bio string) string {
	name, _ := matchPersona(bio)
	return name
}

func matchPersona(bio string) (string, string) {
	if strings.TrimSpace(bio) == "" {
		return "default", defaultPersona
	}
	words := strings.FieldsFunc(cases.Fold().String(bio), func(r rune) bool {
		return !(r == '-' || r == '_' || isAlnum(r))
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, p := range personas {
		for _, kw := range p.keywords {
			if _, ok := set[kw]; ok {
				return p.name, p.phrase
			}
		}
	}
	return "default", defaultPersona
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127
}

// DisplayName picks the name used in the prompt.
func DisplayName(fid int64, p farcaster.Profile) string {
	if n := strings.TrimSpace(p.DisplayName); n != "" {
		return n
	}
	if n := strings.TrimSpace(p.Username); n != "" {
		return n
	}
	return fmt.Sprintf("FID %d", fid)
}

// Build renders the prompt. pal may be nil.
func Build(fid int64, p farcaster.Profile, pal *palette.Palette) string {
	var b strings.Builder
	b.WriteString(`Create a 1024x1024 profile picture of a cute, stylized poop character called a "Farcasturd". `)
	fmt.Fprintf(&b, `This Farcasturd should visually represent the Farcaster user "%s". `, DisplayName(fid, p))
	b.WriteString(`Use the provided Farcaster profile image as the main reference for colors, vibe, and personality. `)
	b.WriteString(`Transfer key elements like general color palette, hair/hat shape, and mood from the face into the Farcasturd character.`)
	b.WriteString(` The Farcasturd must clearly read as a poop/turd, but still fun, charming, and shareable, not gross or offensive. `)
	b.WriteString(`Style: clean, modern, semi-3D illustration with soft lighting and clear silhouette, designed to look great at small avatar sizes. `)
	b.WriteString(`Background: simple but interesting, with subtle bathroom/chain/onchain hints that fit the Farcasturd brand, avoid clutter. `)

	_, phrase := matchPersona(p.Bio)
	b.WriteString(phrase)
	b.WriteString(" ")

	if pal != nil {
		fmt.Fprintf(&b, "Color palette: main %s, accent %s, highlight %s, background %s. ",
			pal.Primary, pal.Secondary, pal.Vibrant, pal.Muted)
	}
	if bio := snippet(p.Bio); bio != "" {
		fmt.Fprintf(&b, `Use this short description as loose inspiration for personality and mood: "%s". `, bio)
	}
	b.WriteString(`High detail, crisp edges, no text, no logos, and no UI elements in the image.`)
	return b.String()
}

func snippet(bio string) string {
	bio = strings.TrimSpace(bio)
	r := []rune(bio)
	if len(r) > BioSnippetMax {
		r = r[:BioSnippetMax]
	}
	return string(r)
}
