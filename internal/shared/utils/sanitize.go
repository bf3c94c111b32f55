package utils

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy     *bluemonday.Policy
	strictPolicyOnce sync.Once
)

func strict() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeText strips all markup from user supplied text (titles,
// descriptions, comments, bios) and returns plain text. Entities are decoded
// so the JSON API does not double escape.
func SanitizeText(s string) string {
	clean := strict().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(clean))
}
