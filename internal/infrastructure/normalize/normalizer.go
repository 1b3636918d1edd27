// Package normalize canonicalizes raw command strings before rule matching.
//
// Normalization exists purely so the classifier cannot be bypassed with
// trivial obfuscation (excess whitespace, look-alike characters, one level of
// encoding). The original raw text is always what executes.
package normalize

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/doeshing/cmdgate/internal/ports"
)

// aliases resolves common short forms of destructive operations so the rule
// table only needs the canonical verb.
var aliases = map[string]string{
	"del":   "rm",
	"erase": "rm",
	"rd":    "rmdir",
}

// lookalikes folds unicode characters commonly used to evade literal matches.
var lookalikes = map[rune]rune{
	' ': ' ', // no-break space
	' ': ' ',
	' ': ' ',
	'　': ' ', // ideographic space
	'‐': '-',
	'‑': '-',
	'‒': '-',
	'–': '-',
	'—': '-',
	'−': '-', // minus sign
	'‘': '\'',
	'’': '\'',
	'“': '"',
	'”': '"',
	'⁄': '/', // fraction slash
	'∕': '/', // division slash
}

// wrappers are commands whose first non-flag argument is itself a command.
var wrappers = map[string]bool{
	"sudo": true,
	"doas": true,
	"su":   true,
}

var percentEncoded = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

// base64Token matches tokens that look like a standalone base64 block.
var base64Token = regexp.MustCompile(`^[A-Za-z0-9+/]{8,}={0,2}$`)

// Normalizer implements the ports.Normalizer contract. It is stateless and
// safe for concurrent use.
type Normalizer struct{}

// New builds a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize canonicalizes raw for matching. It is pure and deterministic:
// fold look-alike runes, collapse whitespace, lower-case the command verb
// and the verb behind a privilege wrapper (other arguments may be
// case-sensitive paths), resolve the alias table and
// decode one level of common encodings. If decoding produces non-printable
// or ambiguous output the literal token is kept.
func (n *Normalizer) Normalize(raw string) string {
	folded := foldLookalikes(raw)

	fields := strings.Fields(folded)
	if len(fields) == 0 {
		return ""
	}

	for i, field := range fields {
		fields[i] = decodeToken(field)
	}

	// Decoded payloads may themselves contain whitespace.
	fields = strings.Fields(strings.Join(fields, " "))
	if len(fields) == 0 {
		return ""
	}

	fields[0] = foldVerb(fields[0])

	// Privilege wrappers carry the real verb in a later token; fold that
	// one too so "sudo RM" matches the same rules as "sudo rm".
	if wrappers[fields[0]] {
		for i := 1; i < len(fields); i++ {
			if strings.HasPrefix(fields[i], "-") {
				continue
			}
			fields[i] = foldVerb(fields[i])
			break
		}
	}

	return strings.Join(fields, " ")
}

func foldVerb(token string) string {
	verb := strings.ToLower(token)
	if canonical, ok := aliases[verb]; ok {
		verb = canonical
	}
	return verb
}

func foldLookalikes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := lookalikes[r]; ok {
			r = mapped
		}
		// Fullwidth ASCII variants fold onto their ASCII counterparts.
		if r >= '！' && r <= '～' {
			r = r - '！' + '!'
		}
		// Zero-width characters are dropped entirely.
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// decodeToken attempts one level of URL or base64 decoding on a single token.
// The decoded form is only used for matching, never for execution.
func decodeToken(token string) string {
	if percentEncoded.MatchString(token) {
		if decoded, err := url.PathUnescape(token); err == nil && printable(decoded) {
			return decoded
		}
		return token
	}
	if base64Token.MatchString(token) && len(token)%4 == 0 {
		if raw, err := base64.StdEncoding.DecodeString(token); err == nil {
			decoded := string(raw)
			if printable(decoded) && looksLikeText(decoded) {
				return decoded
			}
		}
	}
	return token
}

func printable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == unicode.ReplacementChar {
			return false
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// looksLikeText rejects decodes that are technically printable but are
// unlikely to be an embedded command, e.g. random identifiers that happen to
// be valid base64. A command has at least one space or path separator.
func looksLikeText(s string) bool {
	return strings.ContainsAny(s, " /")
}

var _ ports.Normalizer = (*Normalizer)(nil)
