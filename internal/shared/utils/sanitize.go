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

func policy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// StripMarkup removes HTML tags from text that will be shown in the chat
// log. Entities are decoded again so "a < b" survives unchanged.
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy().Sanitize(s)))
}
