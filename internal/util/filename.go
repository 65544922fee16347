package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)

// SanitizeFilename reduces an attachment filename to its base name and
// strips anything that could escape the staging directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	return name
}

// AllowedAttachment reports whether the filename carries one of the
// extensions the bridge accepts for outbound faxing.
func AllowedAttachment(name string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "txt", "pdf":
		return true
	default:
		return false
	}
}
