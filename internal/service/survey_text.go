package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plainText strips markup and returns the unescaped text. Responses are JSON, so entity
// encoding is left to whatever renders them. The result is stable when cleaned again,
// which keeps stored choice answers equal to the template options.
func plainText(policy *bluemonday.Policy, value string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
}
