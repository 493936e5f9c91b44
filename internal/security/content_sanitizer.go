// Package security cleans user-supplied free text before it is validated and
// stored. Blog bodies keep a safe subset of HTML; contact form fields are
// reduced to plain text.
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer rewrites untrusted text. Implementations are safe for
// concurrent use.
type ContentSanitizer interface {
	Sanitize(raw string) string
}

type policySanitizer struct {
	policy *bluemonday.Policy
}

func (s *policySanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// NewRichTextSanitizer keeps formatting markup (paragraphs, lists, links,
// images, headings) and removes scripts, styles and event attributes.
// Links get rel="nofollow noopener" and open in a new tab.
func NewRichTextSanitizer() ContentSanitizer {
	p := bluemonday.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return &policySanitizer{policy: p}
}

// NewPlainTextSanitizer strips every tag.
func NewPlainTextSanitizer() ContentSanitizer {
	return &policySanitizer{policy: bluemonday.StrictPolicy()}
}

var (
	richText  = NewRichTextSanitizer()
	plainText = NewPlainTextSanitizer()
)

// SanitizeHTML is the package-level rich text sanitizer, usable as a
// schema field transform.
func SanitizeHTML(raw string) string { return richText.Sanitize(raw) }

// StripTags is the package-level plain text sanitizer.
func StripTags(raw string) string { return plainText.Sanitize(raw) }
