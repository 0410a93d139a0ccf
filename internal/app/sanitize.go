package app

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup and null bytes and trims surrounding space.
// Entities are unescaped again so names like "Tom & Jerry" keep their length.
func sanitizeText(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = html.UnescapeString(textPolicy.Sanitize(input))
	return strings.TrimSpace(input)
}
