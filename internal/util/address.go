package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	emailRe   = regexp.MustCompile(`[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+\.[a-zA-Z0-9\-.]+`)
	bracketRe = regexp.MustCompile(`<([^<>]+)>`)
)

// ExtractEmail pulls a sender address out of a free-text From field.
// It takes the last thing shaped like local@domain; if nothing matches,
// it falls back to the contents of the last <...> pair. Returns
// ("", false) when no address can be found.
func ExtractEmail(raw string) (string, bool) {
	decoded := html.UnescapeString(raw)

	if matches := emailRe.FindAllString(decoded, -1); len(matches) > 0 {
		return strings.ToLower(matches[len(matches)-1]), true
	}

	if matches := bracketRe.FindAllStringSubmatch(decoded, -1); len(matches) > 0 {
		return strings.ToLower(matches[len(matches)-1][1]), true
	}

	return "", false
}

// PhoneFromMailbox extracts an E.164-like phone number from the
// local-part of a mailbox like "'+15145551234'@mx.example.com".
// Returns ("", false) when the field has no local-part.
func PhoneFromMailbox(to string) (string, bool) {
	local, _, found := strings.Cut(to, "@")
	if !found {
		return "", false
	}

	local = strings.TrimSpace(local)
	local = strings.Trim(local, `'"`)
	if local == "" {
		return "", false
	}

	return "+" + strings.TrimLeft(local, "+"), true
}
